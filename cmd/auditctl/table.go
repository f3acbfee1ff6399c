package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/JonMunkholm/auditdash/internal/core"
)

// renderDataset renders up to limit records of ds, showing at most maxCols
// leading columns plus the decision. limit <= 0 shows every record.
func renderDataset(ds *core.Dataset, limit, maxCols int, colorize bool) string {
	decisionCol := ds.DecisionIndex()

	cols := make([]int, 0, len(ds.Columns))
	for i := range ds.Columns {
		if i == decisionCol {
			continue
		}
		if maxCols > 0 && len(cols) >= maxCols {
			break
		}
		cols = append(cols, i)
	}

	tw := table.NewWriter()
	if colorize {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleLight)
	}

	header := table.Row{"#"}
	for _, i := range cols {
		header = append(header, ds.Columns[i])
	}
	header = append(header, core.DecisionColumn)
	tw.AppendHeader(header)

	shown := len(ds.Records)
	if limit > 0 && limit < shown {
		shown = limit
	}
	for _, rec := range ds.Records[:shown] {
		row := table.Row{strconv.Itoa(rec.Index + 1)}
		for _, i := range cols {
			row = append(row, rec.Fields[i])
		}
		row = append(row, string(rec.Decision))
		tw.AppendRow(row)
	}
	if hidden := len(ds.Records) - shown; hidden > 0 {
		tw.AppendFooter(table.Row{"", fmt.Sprintf("%d more records", hidden)})
	}

	decisionNumber := len(cols) + 2
	configs := []table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	}
	decision := table.ColumnConfig{Number: decisionNumber}
	if colorize {
		decision.Transformer = colorDecision
	}
	configs = append(configs, decision)
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func colorDecision(val interface{}) string {
	s := fmt.Sprint(val)
	switch core.Decision(s) {
	case core.DecisionYes:
		return text.FgGreen.Sprint(s)
	case core.DecisionNo:
		return text.FgRed.Sprint(s)
	}
	return text.Faint.Sprint(s)
}

// progressLine summarizes completion.
func progressLine(p core.Progress) string {
	return fmt.Sprintf("%d of %d records audited (%d%%)", p.Completed, p.Total, p.Percent())
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

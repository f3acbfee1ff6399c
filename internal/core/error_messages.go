// Package core provides the business logic for record auditing.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Source unavailable: the spreadsheet service could not be reached
//	         Action: Check your connection and try again
//	         Matches: ErrSourceUnavailable
//
//	SRC002 - Authentication failed: the service account was rejected
//	         Action: Verify the credentials and that the sheet is shared with the account
//	         Matches: ErrAuth
//
//	SRC003 - Not found: the spreadsheet or worksheet does not exist
//	         Action: Check the sheet URL and worksheet name
//	         Matches: ErrNotFound
//
// # Write Errors (WRT001-WRT099)
//
//	WRT001 - Write-back failed: the decision is kept locally but the sheet is stale
//	         Action: Your next decision will retry the save
//	         Matches: ErrWrite
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large            (pattern "file too large")
//	FILE002 - Invalid file              (ErrMalformedInput)
//	FILE003 - Unsupported file type     (pattern "unsupported file type")
//	FILE004 - No file                   (pattern "no file provided")
//	FILE005 - Empty file                (pattern "empty file")
//	FILE006 - System busy               (ErrImportBusy)
//
// # Session Errors (SES001-SES099)
//
//	SES001 - No dataset loaded          (ErrNoDataset)
//	SES002 - Record not found           (ErrIndexOutOfRange)
//	SES003 - Invalid decision           (ErrInvalidDecision)
//	SES004 - No spreadsheet selected    (ErrNoSpreadsheet)
//	SES005 - Wrong source               (ErrWrongSource)
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled          (pattern "context canceled")
//	REQ002 - Request timed out          (pattern "context deadline exceeded")
//	REQ003 - Invalid request            (pattern "invalid request")
//	RATE001 - Rate limited              (pattern "rate limit")
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original error.
//
// # Matching
//
// Sentinel errors are matched with errors.Is in table order, so more specific
// sentinels (ErrAuth) come before the ones they wrap (ErrSourceUnavailable).
// Pattern fallbacks are matched case-insensitively with strings.Contains.
// Patterns that refine a sentinel (e.g. "empty file" under ErrMalformedInput)
// are checked before the sentinels.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// refinedPatterns narrow a sentinel match down to a more specific message.
var refinedPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FILE003",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or xlsx file to upload",
			Code:    "FILE004",
		},
	},
}

var sentinelMessages = []sentinelMessage{
	{
		target: ErrAuth,
		msg: UserMessage{
			Message: "The spreadsheet service rejected the credentials",
			Action:  "Verify the credentials and that the sheet is shared with the service account",
			Code:    "SRC002",
		},
	},
	{
		target: ErrSourceUnavailable,
		msg: UserMessage{
			Message: "The spreadsheet service could not be reached",
			Action:  "Check your connection and try again",
			Code:    "SRC001",
		},
	},
	{
		target: ErrNotFound,
		msg: UserMessage{
			Message: "The spreadsheet or worksheet was not found",
			Action:  "Check the sheet URL and worksheet name",
			Code:    "SRC003",
		},
	},
	{
		target: ErrWrite,
		msg: UserMessage{
			Message: "Your decision was kept but could not be saved to the sheet",
			Action:  "Your next decision will retry the save",
			Code:    "WRT001",
		},
	},
	{
		target: ErrMalformedInput,
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Ensure the file is a comma-separated CSV or an xlsx workbook with a header row",
			Code:    "FILE002",
		},
	},
	{
		target: ErrImportBusy,
		msg: UserMessage{
			Message: "The system is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "FILE006",
		},
	},
	{
		target: ErrNoDataset,
		msg: UserMessage{
			Message: "No data is loaded",
			Action:  "Upload a file or select a worksheet first",
			Code:    "SES001",
		},
	},
	{
		target: ErrIndexOutOfRange,
		msg: UserMessage{
			Message: "That record does not exist",
			Action:  "Reload the page and try again",
			Code:    "SES002",
		},
	},
	{
		target: ErrInvalidDecision,
		msg: UserMessage{
			Message: "Decisions must be Yes or No",
			Action:  "Choose Yes or No",
			Code:    "SES003",
		},
	},
	{
		target: ErrNoSpreadsheet,
		msg: UserMessage{
			Message: "No spreadsheet is open",
			Action:  "Enter a Google Sheet URL first",
			Code:    "SES004",
		},
	},
	{
		target: ErrWrongSource,
		msg: UserMessage{
			Message: "That action is not available for the selected source",
			Action:  "Switch the data source and try again",
			Code:    "SES005",
		},
	},
}

// errorPatterns catch errors that carry no sentinel.
var errorPatterns = []errorPattern{
	{
		pattern: "no file provided",
		msg:     refinedPatterns[3].msg,
	},
	{
		pattern: "file too large",
		msg:     refinedPatterns[0].msg,
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again; large sheets can take a while to save",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Reload the page and try again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("save: %w", ErrWrite))
//	// msg.Code == "WRT001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, ErrMalformedInput) {
		for _, ep := range refinedPatterns {
			if strings.Contains(errStr, ep.pattern) {
				return ep.msg
			}
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// IsWarning reports whether err leaves the session fully usable. A failed
// write-back is a warning: the decision is kept locally.
func IsWarning(err error) bool {
	return errors.Is(err, ErrWrite)
}

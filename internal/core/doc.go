// Package core provides the domain logic for row-by-row record audits.
//
// This package holds everything that does not depend on a transport: the
// record model, source adapters, the audit session state machine, import and
// export codecs and error mapping. It is used by the web server and the
// auditctl command without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Dataset: An ordered set of [Record] values sharing one column layout.
//     Every dataset carries the "Audit Result" decision column; it is
//     synthesized with Pending when the source lacks it.
//   - Adapter: A data source. [FileAdapter] serves a read-only uploaded
//     snapshot and [SheetAdapter] reads and rewrites a worksheet through a
//     [SheetGateway].
//   - Session: The per-user state machine. It binds one dataset to its
//     source and records Yes/No decisions, writing the whole dataset back
//     to writable sources after every decision.
//   - Journal: An optional sink for session events.
//
// # Session Lifecycle
//
// A session is either empty or loaded. Selecting a source (file or sheet)
// and opening a spreadsheet keep it empty; loading a file or selecting a
// worksheet binds a dataset and makes it loaded.
//
// Switching source, loading another file or selecting a different worksheet
// discards the bound dataset. A decision is applied in memory first; a failed
// write-back keeps it and is reported as a warning (see [IsWarning]).
//
// # Error Handling
//
// Operations return sentinel errors such as [ErrNoDataset] and
// [ErrIndexOutOfRange], wrapped with context. [MapError] turns any of them
// into a user-facing message with a support code:
//
//   - SES001-SES005: Session state errors (nothing loaded, bad index)
//   - SRC001-SRC003: Source errors (unavailable, auth, not found)
//   - WRT001: Write-back failures
//   - FILE001-FILE006: File errors (size, encoding, format)
//   - REQ001-REQ003, RATE001: Request errors
//   - ERR000: Anything unrecognized
package core

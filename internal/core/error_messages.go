package core

// error_messages.go maps technical errors to messages a person can act on.
// Callers quote the code to support staff.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Source missing: the file or blob could not be found
//	SRC002 - Source too large: the file exceeds the size limit
//	SRC003 - Source access: storage rejected the credentials
//	SRC004 - Source unavailable: any other read or transport failure
//
// # Row and Record Errors
//
//	ROW001 - Malformed row: fewer than four fields
//	TS001  - Timestamp: the timestamp could not be parsed
//	CHN001 - Missing channel: a source was queued without a channel name
//	RES001 - Empty result: nothing survived the merge
//	RES002 - Interrupted: the merge ran past its time limit
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Unknown sink: the requested export destination is not configured
//	EXP002 - Export not found: no saved export with that id
//	EXP003 - Export failed: writing the payload failed
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - No sources: the request carried no sources
//	REQ002 - Too many sources: the request exceeds the per-run source limit
//	REQ003 - Invalid request: malformed JSON or form
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns precede general ones. ERR000 is the
// fallback.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "missing channel label",
		msg: UserMessage{
			Message: "A source was added without a channel name",
			Action:  "Give every queued file a channel name",
			Code:    "CHN001",
		},
	},
	{
		pattern: "source too large",
		msg: UserMessage{
			Message: "Source file exceeds the size limit",
			Action:  "Split the export into smaller files",
			Code:    "SRC002",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "Source file was not found",
			Action:  "Check the path and try again",
			Code:    "SRC001",
		},
	},
	{
		pattern: "path/not_found",
		msg: UserMessage{
			Message: "Source file was not found in Dropbox",
			Action:  "Check the Dropbox path and try again",
			Code:    "SRC001",
		},
	},
	{
		pattern: "outside source root",
		msg: UserMessage{
			Message: "Source path is outside the allowed directory",
			Action:  "Use a path inside the configured source root",
			Code:    "SRC001",
		},
	},
	{
		pattern: "invalid_grant",
		msg: UserMessage{
			Message: "Storage credentials were rejected",
			Action:  "Refresh the Dropbox refresh token",
			Code:    "SRC003",
		},
	},
	{
		pattern: "unauthorized",
		msg: UserMessage{
			Message: "Storage credentials were rejected",
			Action:  "Check the storage credentials",
			Code:    "SRC003",
		},
	},
	{
		pattern: "malformed row",
		msg: UserMessage{
			Message: "A row has fewer than four fields",
			Action:  "Check that the export uses ID, User, Timestamp, Message columns",
			Code:    "ROW001",
		},
	},
	{
		pattern: "timestamp parse failure",
		msg: UserMessage{
			Message: "A timestamp could not be read",
			Action:  "Use a date-time such as 2024-01-01T10:00:00",
			Code:    "TS001",
		},
	},
	{
		pattern: "no data to display",
		msg: UserMessage{
			Message: "No data to display",
			Action:  "Check the skipped sources and rows, then add more files",
			Code:    "RES001",
		},
	},
	{
		pattern: "merge interrupted",
		msg: UserMessage{
			Message: "The merge took too long and was stopped",
			Action:  "Merge fewer or smaller files at a time",
			Code:    "RES002",
		},
	},
	{
		pattern: "unknown sink",
		msg: UserMessage{
			Message: "Export destination is not configured",
			Action:  "Choose a configured destination",
			Code:    "EXP001",
		},
	},
	{
		pattern: "export not found",
		msg: UserMessage{
			Message: "Saved export not found",
			Action:  "Check the export id",
			Code:    "EXP002",
		},
	},
	{
		pattern: "export:",
		msg: UserMessage{
			Message: "The export could not be written",
			Action:  "Please try again",
			Code:    "EXP003",
		},
	},
	{
		pattern: "no sources",
		msg: UserMessage{
			Message: "No files were queued",
			Action:  "Add at least one file with a channel name",
			Code:    "REQ001",
		},
	},
	{
		pattern: "too many sources",
		msg: UserMessage{
			Message: "Too many files in one merge",
			Action:  "Merge fewer files at a time",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body",
			Code:    "REQ003",
		},
	},
	{
		pattern: "too many concurrent merges",
		msg: UserMessage{
			Message: "System is busy with other merges",
			Action:  "Please wait a moment and try again",
			Code:    "RATE002",
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
	{
		pattern: "source unavailable",
		msg: UserMessage{
			Message: "A source could not be read",
			Action:  "Check the file location and storage connection",
			Code:    "SRC004",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err and keeps it for logging. Returns nil for nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

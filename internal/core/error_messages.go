package core

// error_messages.go maps technical failures during commit to user messages.
//
// Import problems found in the files themselves are reported with the
// messages in messages.go. Everything that goes wrong after the files were
// accepted (database constraints, lost connections, contention, timeouts)
// is mapped here so operators get an actionable text and a code to quote.
//
// # Storage Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A result with this key already exists
//	        SQLSTATE 23505, patterns: "duplicate key"
//	DB002 - Foreign key: A referenced candidate or list does not exist
//	        SQLSTATE 23503, patterns: "violates foreign key"
//	DB003 - Check violation: A value is out of range
//	        SQLSTATE 23514, 22003, patterns: "violates check constraint", "out of range"
//	DB004 - Connection refused: Unable to connect to database
//	        patterns: "connection refused"
//	DB005 - Connection reset: Database connection was interrupted
//	        patterns: "connection reset", "broken pipe"
//	DB006 - Deadlock: Database was busy with conflicting operations
//	        SQLSTATE 40P01, patterns: "deadlock"
//	DB007 - Serialization: A concurrent import changed the same results
//	        SQLSTATE 40001, patterns: "could not serialize"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - System busy: Too many imports in progress
//	IMP002 - Request cancelled: Import was cancelled
//	IMP003 - Timeout: Import took too long
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the application log for
// the technical error.
//
// SQLSTATE codes are checked first via pgconn.PgError. Patterns are matched
// case-insensitively using strings.Contains, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// AsMessage converts the user message into an import message.
func (m UserMessage) AsMessage() Message {
	return Message{Code: m.Code, Template: m.Message}
}

var (
	msgDuplicateKey = UserMessage{
		Message: "A result with this key already exists",
		Action:  "Please try again; if the problem persists contact support",
		Code:    "DB001",
	}
	msgForeignKey = UserMessage{
		Message: "A referenced candidate or list does not exist",
		Action:  "Check that all candidates and lists are part of the upload",
		Code:    "DB002",
	}
	msgCheckViolation = UserMessage{
		Message: "A value is out of range",
		Action:  "Check the numbers in the uploaded file",
		Code:    "DB003",
	}
	msgDeadlock = UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB006",
	}
	msgSerialization = UserMessage{
		Message: "A concurrent import changed the same results",
		Action:  "Please try again",
		Code:    "DB007",
	}
	msgTooManyImports = UserMessage{
		Message: "Too many imports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgCancelled = UserMessage{
		Message: "Import was cancelled",
		Action:  "Please try again",
		Code:    "IMP002",
	}
	msgTimeout = UserMessage{
		Message: "Import took too long",
		Action:  "Please try again later",
		Code:    "IMP003",
	}
)

// sqlStates maps PostgreSQL error codes to user messages.
var sqlStates = map[string]UserMessage{
	"23505": msgDuplicateKey,
	"23503": msgForeignKey,
	"23514": msgCheckViolation,
	"22003": msgCheckViolation,
	"40P01": msgDeadlock,
	"40001": msgSerialization,
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched in order, more specific patterns first.
var errorPatterns = []errorPattern{
	{pattern: "duplicate key", msg: msgDuplicateKey},
	{pattern: "violates foreign key", msg: msgForeignKey},
	{pattern: "violates check constraint", msg: msgCheckViolation},
	{pattern: "out of range", msg: msgCheckViolation},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "broken pipe",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{pattern: "deadlock", msg: msgDeadlock},
	{pattern: "could not serialize", msg: msgSerialization},
	{pattern: "too many concurrent imports", msg: msgTooManyImports},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := sqlStates[pgErr.Code]; ok {
			return msg
		}
	}
	switch {
	case errors.Is(err, ErrTooManyImports):
		return msgTooManyImports
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	}

	errStr := strings.ToLower(err.Error())
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

// IsRetryable reports whether err is a transient storage conflict that
// succeeds when the transaction is run again.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// UserError wraps a technical error with a user-friendly message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

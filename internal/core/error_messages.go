package core

// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with codes for
// support reference. Every rejected line is stored with its code, so a code
// seen in rejected_input.errors.jsonl can be looked up here.
//
// # Structural Errors (STR001)
//
//	STR001 - Malformed record: line is not a single valid JSON object
//	         Action: Check the producer emits one JSON object per line
//	         Patterns: "malformed"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date: transaction_time is not ISO-8601
//	         Patterns: "invalid date"
//
//	VAL002 - Invalid number: value is not an exact decimal or is out of range
//	         Patterns: "invalid number"
//
//	VAL003 - Required field missing
//	         Patterns: "required field is missing"
//
//	VAL004 - Required field empty
//	         Patterns: "required field is empty"
//
//	VAL005 - Wrong type: value has the wrong JSON type
//	         Patterns: "must be a string", "must be an object", "must be a list"
//
//	VAL006 - Invalid integer: identifier or quantity is not an integer
//	         Patterns: "invalid integer"
//
//	VAL007 - Total mismatch: line totals do not sum to total_cost
//	         Patterns: "total mismatch"
//
//	VAL008 - Out of range: negative price, non-positive popularity, quantity overflow
//	         Patterns: "must not be negative", "greater than zero", "out of range"
//
// # Integrity Errors (KEY001, REF001-REF002)
//
//	KEY001 - Duplicate key: primary key already registered
//	         Patterns: "duplicate key"
//
//	REF001 - Unknown customer: transaction references an unregistered customer
//	         Patterns: "not a registered customer"
//
//	REF002 - Unknown product: transaction references an unregistered sku
//	         Patterns: "not a registered product"
//
// # Erasure Errors (ERA001)
//
//	ERA001 - Malformed erasure request; stops a strict batch load
//	         Patterns: "malformed erasure request"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE003 - Encoding error ("invalid gzip", "encoding error")
//	FILE004 - No file ("no file provided")
//	FILE005 - Empty file ("empty file")
//	FILE006 - Unknown batch file name ("unknown batch file")
//	FILE007 - Output schema mismatch ("schema mismatch")
//
// # Batch Errors (BAT001-BAT099)
//
//	BAT001 - Unknown entity kind ("unknown entity kind")
//	BAT002 - System busy ("too many concurrent batches")
//	BAT003 - Request cancelled ("context canceled")
//	BAT004 - Request timeout ("context deadline exceeded")
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Connection refused
//	EXP002 - Connection reset
//	EXP003 - Timeout
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests ("rate limit")
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// # Pattern Matching
//
// Typed per-line errors (structural, duplicate key, foreign key, malformed
// erasure) are classified by type first. A ValidationError is matched on its
// Message only, taking the pattern that appears earliest. Other errors are
// matched on their full text.
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns come first.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Erasure must precede the generic structural pattern.
	{
		pattern: "malformed erasure request",
		msg:     malformedErasureMessage,
	},
	{
		pattern: "malformed",
		msg:     structuralMessage,
	},

	// Integrity
	{
		pattern: "duplicate key",
		msg:     duplicateKeyMessage,
	},
	{
		pattern: "not a registered customer",
		msg:     unknownCustomerMessage,
	},
	{
		pattern: "not a registered product",
		msg:     unknownProductMessage,
	},

	// Validation
	{
		pattern: "total mismatch",
		msg: UserMessage{
			Message: "Line totals do not add up to total_cost",
			Action:  "Check the purchase totals in the source system",
			Code:    "VAL007",
		},
	},
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use ISO-8601, e.g. 2024-01-15T10:30:00Z",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid integer",
		msg: UserMessage{
			Message: "Invalid integer detected",
			Action:  "Identifiers and quantities must be whole numbers",
			Code:    "VAL006",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use a plain decimal with at most 2 decimal places",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field is missing",
		msg: UserMessage{
			Message: "Required field is missing",
			Action:  "Ensure all mandatory fields are present and not null",
			Code:    "VAL003",
		},
	},
	{
		pattern: "required field is empty",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure all mandatory fields have values",
			Code:    "VAL004",
		},
	},
	{
		pattern: "must be a string",
		msg:     wrongTypeMessage,
	},
	{
		pattern: "must be an object",
		msg:     wrongTypeMessage,
	},
	{
		pattern: "must be a list",
		msg:     wrongTypeMessage,
	},
	{
		pattern: "must not be negative",
		msg:     outOfRangeMessage,
	},
	{
		pattern: "greater than zero",
		msg:     outOfRangeMessage,
	},
	{
		pattern: "out of range",
		msg:     outOfRangeMessage,
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the batch into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid gzip",
		msg: UserMessage{
			Message: "File is not valid gzip",
			Action:  "Upload plain JSON lines or a gzip-compressed file",
			Code:    "FILE003",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Attach a batch file to the request",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with at least one record",
			Code:    "FILE005",
		},
	},
	{
		pattern: "unknown batch file",
		msg: UserMessage{
			Message: "Batch file name is not recognised",
			Action:  "Name batches customers, products, transactions or erasure-requests .json.gz",
			Code:    "FILE006",
		},
	},
	{
		pattern: "schema mismatch",
		msg: UserMessage{
			Message: "Output file columns do not match the expected schema",
			Action:  "Regenerate the output with the current version",
			Code:    "FILE007",
		},
	},

	// Batches
	{
		pattern: "unknown entity kind",
		msg: UserMessage{
			Message: "Entity kind is not recognised",
			Action:  "Use customer, product, transaction or erasure-request",
			Code:    "BAT001",
		},
	},
	{
		pattern: "too many concurrent batches",
		msg: UserMessage{
			Message: "Too many batches in progress",
			Action:  "Please wait a moment and try again",
			Code:    "BAT002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "BAT003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller batch or check your connection",
			Code:    "BAT004",
		},
	},

	// Export sinks
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to export target",
			Action:  "Please try again in a few moments",
			Code:    "EXP001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Export connection was interrupted",
			Action:  "Please try again",
			Code:    "EXP002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "EXP003",
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

var (
	malformedErasureMessage = UserMessage{
		Message: "Erasure request could not be parsed",
		Action:  "Fix the erasure feed; each line needs customer-id or email",
		Code:    "ERA001",
	}
	structuralMessage = UserMessage{
		Message: "Record is not a valid JSON object",
		Action:  "Check the producer emits one JSON object per line",
		Code:    "STR001",
	}
	duplicateKeyMessage = UserMessage{
		Message: "A record with this key already exists",
		Action:  "Remove the duplicate from the feed",
		Code:    "KEY001",
	}
	unknownCustomerMessage = UserMessage{
		Message: "Transaction references an unknown customer",
		Action:  "Ensure the customer batch is loaded first",
		Code:    "REF001",
	}
	unknownProductMessage = UserMessage{
		Message: "Transaction references an unknown product",
		Action:  "Ensure the product batch is loaded first",
		Code:    "REF002",
	}
	wrongTypeMessage = UserMessage{
		Message: "Field has the wrong type",
		Action:  "Check the field types against the feed contract",
		Code:    "VAL005",
	}
	outOfRangeMessage = UserMessage{
		Message: "Value is outside the allowed range",
		Action:  "Prices must be >= 0, popularity > 0",
		Code:    "VAL008",
	}
)

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage if err is nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := typedMessage(err); ok {
		return msg
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		return earliestPattern(ve.Message)
	}
	return matchPattern(err.Error())
}

// typedMessage classifies the per-line error types by their fields. Their
// Error text embeds record keys, so it is never pattern matched.
func typedMessage(err error) (UserMessage, bool) {
	var (
		se StructuralError
		de DuplicateKeyError
		fe ForeignKeyError
	)
	switch {
	case errors.Is(err, ErrMalformedErasure):
		return malformedErasureMessage, true
	case errors.As(err, &de):
		return duplicateKeyMessage, true
	case errors.As(err, &fe):
		if fe.Referent == EntityCustomer {
			return unknownCustomerMessage, true
		}
		return unknownProductMessage, true
	case errors.As(err, &se):
		return structuralMessage, true
	}
	return UserMessage{}, false
}

func matchPattern(text string) UserMessage {
	errStr := strings.ToLower(text)
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// earliestPattern returns the pattern that starts first in text. Validation
// messages lead with the rule and may quote the offending value after it.
func earliestPattern(text string) UserMessage {
	errStr := strings.ToLower(text)
	msg, at := defaultMessage, -1
	for _, ep := range errorPatterns {
		i := strings.Index(errStr, ep.pattern)
		if i >= 0 && (at < 0 || i < at) {
			msg, at = ep.msg, i
		}
	}
	return msg
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

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

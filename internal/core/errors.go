package core

// errors.go defines the four per-line failure kinds produced during ingestion
// and the fatal sentinels that stop a load outright.
//
// Per-line kinds are recovered by the Session one line at a time:
//
//   - StructuralError: the line is not a well-formed JSON object
//   - ValidationError: well-formed, but breaks a field or domain rule
//   - DuplicateKeyError: the primary key is already registered
//   - ForeignKeyError: a referenced customer or product is not registered
//
// KindOf classifies any wrapped error chain into one of these kinds.

import (
	"errors"
	"fmt"
)

// ErrUnknownBatchFile is returned when a directory load meets a .json.gz file
// whose name does not map to an entity kind. It aborts the whole load.
var ErrUnknownBatchFile = errors.New("unknown batch file")

// ErrMalformedErasure is returned by batch loads in strict erasure mode when
// an erasure request line cannot be parsed.
var ErrMalformedErasure = errors.New("malformed erasure request")

// ErrorKind names the class of a rejected line.
type ErrorKind string

const (
	KindStructural   ErrorKind = "structural"
	KindValidation   ErrorKind = "validation"
	KindDuplicateKey ErrorKind = "duplicate_key"
	KindForeignKey   ErrorKind = "foreign_key"
	KindUnknown      ErrorKind = "unknown"
)

// StructuralError reports a line that could not be decoded as a JSON object.
type StructuralError struct {
	Entity EntityKind
	Err    error
}

func (e StructuralError) Error() string {
	return fmt.Sprintf("malformed %s record: %v", e.Entity, e.Err)
}

func (e StructuralError) Unwrap() error { return e.Err }

// DuplicateKeyError reports an entity whose primary key is already admitted.
type DuplicateKeyError struct {
	Entity EntityKind
	Field  string
	Key    string
}

func (e DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: %s %s %s is already registered", e.Entity, e.Field, e.Key)
}

// ForeignKeyError reports a transaction that references a customer or
// product missing from the registry at admission time.
type ForeignKeyError struct {
	TransactionID string
	Referent      EntityKind
	Field         string
	Key           string
}

func (e ForeignKeyError) Error() string {
	return fmt.Sprintf("unknown reference: transaction %q %s %s is not a registered %s",
		e.TransactionID, e.Field, e.Key, e.Referent)
}

// KindOf classifies err by walking its chain. Unrecognised errors are
// KindUnknown.
func KindOf(err error) ErrorKind {
	var (
		se StructuralError
		ve ValidationError
		de DuplicateKeyError
		fe ForeignKeyError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		return KindStructural
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &de):
		return KindDuplicateKey
	case errors.As(err, &fe):
		return KindForeignKey
	default:
		return KindUnknown
	}
}

package core

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Reject is one input line that was not admitted. Line holds the original
// bytes without the trailing newline.
type Reject struct {
	Source     string    `json:"source"`
	LineNumber int       `json:"line"`
	Line       []byte    `json:"-"`
	Kind       ErrorKind `json:"kind"`
	Code       string    `json:"code"`
	Reason     string    `json:"reason"`
}

// NewReject classifies err and builds the reject entry for line.
func NewReject(source string, lineNumber int, line []byte, err error) Reject {
	return Reject{
		Source:     source,
		LineNumber: lineNumber,
		Line:       append([]byte(nil), line...),
		Kind:       KindOf(err),
		Code:       MapError(err).Code,
		Reason:     err.Error(),
	}
}

// Bytes renders the reject as "<source>: <line>".
func (r Reject) Bytes() []byte {
	b := make([]byte, 0, len(r.Source)+2+len(r.Line))
	b = append(b, r.Source...)
	b = append(b, ": "...)
	return append(b, r.Line...)
}

// RejectLog is the ordered list of rejected lines for a session.
type RejectLog struct {
	entries []Reject
}

// Append adds r to the end of the log.
func (l *RejectLog) Append(r Reject) { l.entries = append(l.entries, r) }

// Len returns the number of rejects.
func (l *RejectLog) Len() int { return len(l.entries) }

// Entries returns a copy of the log in encounter order.
func (l *RejectLog) Entries() []Reject {
	return append([]Reject(nil), l.entries...)
}

// WriteRejects writes each reject as "<source>: <line>\n". The original
// line bytes are reproduced exactly.
func WriteRejects(w io.Writer, rejects []Reject) error {
	bw := bufio.NewWriter(w)
	for _, r := range rejects {
		if _, err := bw.Write(r.Bytes()); err != nil {
			return fmt.Errorf("write reject: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write reject: %w", err)
		}
	}
	return bw.Flush()
}

// WriteRejectReasons writes one JSON object per reject with its source, line
// number, kind, code and reason, in the same order as WriteRejects.
func WriteRejectReasons(w io.Writer, rejects []Reject) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range rejects {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write reject reason: %w", err)
		}
	}
	return bw.Flush()
}

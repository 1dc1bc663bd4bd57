package core

// streaming.go provides streaming readers for batch input.
//
// Batches are processed line by line and never loaded whole:
//
//   - OpenBatchReader: detects gzip by magic bytes and decompresses
//   - BOMSkippingReader: removes a UTF-8 BOM (0xEF 0xBB 0xBF) at stream start
//   - StreamingCountingReader: tracks compressed bytes read for progress
//   - LineReader: yields lines with their original bytes intact
//
// Invalid UTF-8 is deliberately not repaired here; a bad line must reach the
// reject log byte for byte.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// utf8BOM is the byte order mark some Windows tools prepend to text files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader drops a UTF-8 BOM at the start of the stream and passes
// everything else through unchanged.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, _ := r.br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
			r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// StreamingCountingReader counts the raw (possibly compressed) bytes read
// from a batch. Total is zero when the size is unknown.
type StreamingCountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64
}

// NewStreamingCountingReader creates a counting reader with optional total size.
func NewStreamingCountingReader(r io.Reader, total int64) *StreamingCountingReader {
	return &StreamingCountingReader{
		reader: r,
		Total:  total,
	}
}

// Read implements io.Reader.
func (r *StreamingCountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *StreamingCountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// gzipMagic is the two-byte gzip member header.
var gzipMagic = []byte{0x1f, 0x8b}

// OpenBatchReader wraps r for line reading: compressed bytes are counted,
// gzip input is decompressed, and a leading BOM is dropped. Plain text input
// is passed through. The returned counter reports progress against
// totalSize.
func OpenBatchReader(r io.Reader, totalSize int64) (io.ReadCloser, *StreamingCountingReader, error) {
	counter := NewStreamingCountingReader(r, totalSize)
	br := bufio.NewReader(counter)

	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("read batch header: %w", err)
	}
	if !bytes.Equal(head, gzipMagic) {
		return io.NopCloser(NewBOMSkippingReader(br)), counter, nil
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid gzip stream: %w", err)
	}
	return &gzipBatchReader{Reader: NewBOMSkippingReader(zr), zr: zr}, counter, nil
}

type gzipBatchReader struct {
	io.Reader
	zr *gzip.Reader
}

func (g *gzipBatchReader) Close() error { return g.zr.Close() }

// LineReader yields newline-terminated lines. The terminator is stripped and
// nothing else is altered, including any carriage return.
type LineReader struct {
	r    *bufio.Reader
	line int
}

// NewLineReader reads lines from r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next line and its 1-based number. It returns io.EOF after
// the last line; a final line without a newline is still returned, while an
// empty segment after the final newline is not.
func (l *LineReader) Next() ([]byte, int, error) {
	b, err := l.r.ReadBytes('\n')
	if len(b) == 0 && err != nil {
		if errors.Is(err, io.EOF) {
			return nil, l.line, io.EOF
		}
		return nil, l.line, fmt.Errorf("read line %d: %w", l.line+1, err)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, l.line, fmt.Errorf("read line %d: %w", l.line+1, err)
	}
	l.line++
	return bytes.TrimSuffix(b, []byte{'\n'}), l.line, nil
}

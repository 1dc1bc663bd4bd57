package core

// session.go implements the ingestion orchestrator.
//
// A Session owns one Registry, the reject log and the erasure log. Lines are
// parsed ahead in windows and admitted one at a time under the session
// mutex, so admission order always equals input order regardless of how
// many parse workers run.
//
// Per-line failures never stop a batch. The only fatal conditions are I/O
// errors, context cancellation and, in strict mode, a malformed erasure
// request.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionOptions configures a Session. Zero values select defaults.
type SessionOptions struct {
	// ParseWorkers bounds concurrent line parsing (default: GOMAXPROCS).
	ParseWorkers int

	// WindowSize is the number of lines parsed ahead of admission.
	WindowSize int

	// LenientErasure records malformed erasure requests as ordinary rejects
	// instead of stopping the load.
	LenientErasure bool

	// Digest replaces personal fields on erasure (default: SHA256Hex).
	Digest Pseudonymizer

	Logger *slog.Logger
}

// Session is one ingestion run. It is safe for concurrent use.
type Session struct {
	id        string
	createdAt time.Time
	opts      SessionOptions
	logger    *slog.Logger

	mu       sync.RWMutex
	registry *Registry
	rejects  RejectLog
	erasures []ErasureRecord
}

// NewSession returns an empty session.
func NewSession(opts SessionOptions) *Session {
	if opts.ParseWorkers <= 0 {
		opts.ParseWorkers = defaultWorkers()
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.Digest == nil {
		opts.Digest = SHA256Hex
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	id := uuid.New().String()
	return &Session{
		id:        id,
		createdAt: time.Now().UTC(),
		opts:      opts,
		logger:    opts.Logger.With("session_id", id),
		registry:  NewRegistry(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// BatchResult summarises one LoadBatch call.
type BatchResult struct {
	BatchID  string        `json:"batch_id"`
	Source   string        `json:"source"`
	Kind     EntityKind    `json:"kind"`
	Lines    int           `json:"lines"`
	Accepted int           `json:"accepted"`
	Erased   int           `json:"erased,omitempty"`
	Rejects  []Reject      `json:"rejects"`
	Duration time.Duration `json:"duration_ns"`
}

// Rejected returns the number of rejected lines in the batch.
func (r *BatchResult) Rejected() int { return len(r.Rejects) }

// LoadBatch reads kind records line by line from r, tagging rejects with
// source. It returns the partial result alongside any fatal error.
func (s *Session) LoadBatch(ctx context.Context, kind EntityKind, source string, r io.Reader) (*BatchResult, error) {
	parse, err := parserFor(kind)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := &BatchResult{BatchID: uuid.New().String(), Source: source, Kind: kind}
	logger := s.logger.With("batch_id", res.BatchID, "source", source, "kind", kind)

	lines := NewLineReader(r)
	window := make([]rawLine, 0, s.opts.WindowSize)

	flush := func() error {
		if len(window) == 0 {
			return nil
		}
		results, err := parseWindow(ctx, parse, window, s.opts.ParseWorkers)
		if err != nil {
			return err
		}
		for i, l := range window {
			if err := s.admitParsed(kind, source, l, results[i], res, logger); err != nil {
				return err
			}
		}
		window = window[:0]
		return nil
	}

	for {
		data, n, err := lines.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s.finish(res, start, logger), err
		}
		window = append(window, rawLine{number: n, data: data})
		if len(window) == cap(window) {
			if err := flush(); err != nil {
				return s.finish(res, start, logger), err
			}
		}
	}
	if err := flush(); err != nil {
		return s.finish(res, start, logger), err
	}
	return s.finish(res, start, logger), nil
}

func (s *Session) finish(res *BatchResult, start time.Time, logger *slog.Logger) *BatchResult {
	res.Duration = time.Since(start)
	logger.Info("batch loaded",
		"lines", res.Lines,
		"accepted", res.Accepted,
		"rejected", res.Rejected(),
		"duration", res.Duration,
	)
	return res
}

// admitParsed admits one parsed line or records it as a reject.
func (s *Session) admitParsed(kind EntityKind, source string, l rawLine, p parsed, res *BatchResult, logger *slog.Logger) error {
	res.Lines++

	s.mu.Lock()
	defer s.mu.Unlock()

	err := p.err
	if err == nil {
		var affected int
		affected, err = s.admitLocked(p.entity, source)
		res.Erased += affected
	}
	if err == nil {
		res.Accepted++
		return nil
	}

	rej := NewReject(source, l.number, l.data, err)
	s.rejects.Append(rej)
	res.Rejects = append(res.Rejects, rej)
	logger.Debug("line rejected", "line", l.number, "kind", rej.Kind, "code", rej.Code, "reason", rej.Reason)

	if kind == EntityErasureRequest && p.err != nil && !s.opts.LenientErasure {
		return fmt.Errorf("%w: %s line %d: %v", ErrMalformedErasure, source, l.number, p.err)
	}
	return nil
}

// admitLocked routes a parsed entity to the registry or the erasure engine.
// The caller holds s.mu.
func (s *Session) admitLocked(entity any, source string) (int, error) {
	switch v := entity.(type) {
	case *Customer:
		return 0, s.registry.AdmitCustomer(v)
	case *Product:
		return 0, s.registry.AdmitProduct(v)
	case *Transaction:
		return 0, s.registry.AdmitTransaction(v)
	case *ErasureRequest:
		seen := s.registry.CustomerCount()
		n := s.registry.Erase(*v, s.opts.Digest)
		s.erasures = append(s.erasures, ErasureRecord{
			Request:       *v,
			Source:        source,
			Affected:      n,
			CustomersSeen: seen,
			AppliedAt:     time.Now().UTC(),
		})
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported entity %T", entity)
	}
}

// LoadFile loads a single batch file whose name identifies its kind.
func (s *Session) LoadFile(ctx context.Context, path string) (*BatchResult, error) {
	kind, err := KindForFile(path)
	if err != nil {
		return nil, err
	}
	return s.loadFile(ctx, BatchFile{Path: path, Kind: kind})
}

func (s *Session) loadFile(ctx context.Context, bf BatchFile) (*BatchResult, error) {
	f, err := os.Open(bf.Path)
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	defer f.Close()

	var size int64
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}
	r, _, err := OpenBatchReader(f, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", bf.Path, err)
	}
	defer r.Close()

	return s.LoadBatch(ctx, bf.Kind, bf.Path, r)
}

// LoadPath loads a single batch file, or every batch under a directory in
// priority order. It stops at the first fatal error.
func (s *Session) LoadPath(ctx context.Context, path string) ([]*BatchResult, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if !st.IsDir() {
		res, err := s.LoadFile(ctx, path)
		if res == nil {
			return nil, err
		}
		return []*BatchResult{res}, err
	}

	files, err := DiscoverBatchFiles(path)
	if err != nil {
		return nil, err
	}
	s.logger.Info("loading directory", "path", path, "files", len(files))

	results := make([]*BatchResult, 0, len(files))
	for _, bf := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.loadFile(ctx, bf)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// AdmitCustomer parses and admits a single customer record.
// Failures are returned to the caller and are not added to the reject log.
func (s *Session) AdmitCustomer(raw []byte) error {
	c, err := ParseCustomer(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.AdmitCustomer(c)
}

// AdmitProduct parses and admits a single product record.
func (s *Session) AdmitProduct(raw []byte) error {
	p, err := ParseProduct(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.AdmitProduct(p)
}

// AdmitTransaction parses and admits a single transaction record.
func (s *Session) AdmitTransaction(raw []byte) error {
	t, err := ParseTransaction(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.AdmitTransaction(t)
}

// ApplyErasureRequest parses a single erasure request and applies it to the
// customers loaded so far. It returns the number of customers changed.
func (s *Session) ApplyErasureRequest(raw []byte) (int, error) {
	r, err := ParseErasureRequest(raw)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admitLocked(r, "request")
}

// ReplayErasures applies every logged erasure request to the customers
// admitted after that request ran. Customers already erased by a request
// are not hashed again by it. It returns the number of customers changed.
func (s *Session) ReplayErasures() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for i := range s.erasures {
		rec := &s.erasures[i]
		n := s.registry.EraseFrom(rec.Request, s.opts.Digest, rec.CustomersSeen)
		rec.Affected += n
		rec.CustomersSeen = s.registry.CustomerCount()
		total += n
	}
	if total > 0 {
		s.logger.Info("replayed erasure requests", "requests", len(s.erasures), "affected", total)
	}
	return total
}

// Stats holds the session counters.
type Stats struct {
	SessionID       string `json:"session_id"`
	Customers       int    `json:"customers"`
	Products        int    `json:"products"`
	Transactions    int    `json:"transactions"`
	ErasureRequests int    `json:"erasure_requests"`
	Rejected        int    `json:"rejected"`
}

// Stats returns the current counters.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

func (s *Session) statsLocked() Stats {
	return Stats{
		SessionID:       s.id,
		Customers:       s.registry.CustomerCount(),
		Products:        s.registry.ProductCount(),
		Transactions:    s.registry.TransactionCount(),
		ErasureRequests: len(s.erasures),
		Rejected:        s.rejects.Len(),
	}
}

// CustomerCount returns the number of admitted customers.
func (s *Session) CustomerCount() int { return s.Stats().Customers }

// ProductCount returns the number of admitted products.
func (s *Session) ProductCount() int { return s.Stats().Products }

// TransactionCount returns the number of admitted transactions.
func (s *Session) TransactionCount() int { return s.Stats().Transactions }

// ErasureRequestCount returns the number of applied erasure requests.
func (s *Session) ErasureRequestCount() int { return s.Stats().ErasureRequests }

// RejectedCount returns the number of rejected lines.
func (s *Session) RejectedCount() int { return s.Stats().Rejected }

// Customer returns a copy of the customer registered under id.
func (s *Session) Customer(id int64) (Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.registry.Customer(id)
	if !ok {
		return Customer{}, false
	}
	return *c, true
}

// Rejects returns the reject log in encounter order.
func (s *Session) Rejects() []Reject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rejects.Entries()
}

// ErasureLog returns the applied erasure requests in order.
func (s *Session) ErasureLog() []ErasureRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ErasureRecord(nil), s.erasures...)
}

// Snapshot is a consistent copy of session state for output and export.
type Snapshot struct {
	SessionID    string
	TakenAt      time.Time
	Customers    []Customer
	Products     []Product
	Transactions []Transaction
	Rejects      []Reject
	Erasures     []ErasureRecord
	Stats        Stats
}

// Snapshot copies the session state under one read lock.
func (s *Session) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{
		SessionID:    s.id,
		TakenAt:      time.Now().UTC(),
		Customers:    s.registry.Customers(),
		Products:     s.registry.Products(),
		Transactions: s.registry.Transactions(),
		Rejects:      s.rejects.Entries(),
		Erasures:     append([]ErasureRecord(nil), s.erasures...),
		Stats:        s.statsLocked(),
	}
}

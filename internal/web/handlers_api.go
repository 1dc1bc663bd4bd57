package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/retailetl/internal/core"
	"github.com/JonMunkholm/retailetl/internal/export"
	"github.com/JonMunkholm/retailetl/internal/logging"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Stats())
}

// handleRejects returns the reject log as JSON, or as the raw rejected
// lines when format=text.
func (s *Server) handleRejects(w http.ResponseWriter, r *http.Request) {
	rejects := s.session.Rejects()
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := core.WriteRejects(w, rejects); err != nil {
			logging.FromContext(r.Context()).Error("write rejects", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(rejects),
		"rejects": rejects,
	})
}

func (s *Server) handleErasureLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.ErasureLog())
}

func (s *Server) handleReplayErasures(w http.ResponseWriter, r *http.Request) {
	n := s.session.ReplayErasures()
	logging.FromContext(r.Context()).Info("erasures replayed", "customers", n)
	writeJSON(w, http.StatusOK, map[string]int{"erased": n})
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.limiter.Status())
}

// saveResponse is the body returned by /api/save.
type saveResponse struct {
	SessionID string           `json:"session_id"`
	Stats     core.Stats       `json:"stats"`
	Exports   []export.Summary `json:"exports"`
}

// handleSave writes the session to the output folder and every configured
// sink. Partial sink failures still return the summaries with a 502.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snap := s.session.Snapshot()
	sinks := append([]export.Sink{export.FileSink{Dir: s.cfg.Ingest.OutputDir}}, s.sinks...)

	summaries, err := export.Run(r.Context(), snap, logging.FromContext(r.Context()), sinks...)
	resp := saveResponse{SessionID: snap.SessionID, Stats: snap.Stats, Exports: summaries}
	if err != nil {
		var sinkErr *export.SinkError
		if errors.As(err, &sinkErr) && sinkErr.Sink == "files" {
			respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBatch loads one batch body (plain or gzip JSON lines) of the kind
// named in the path. The source query parameter names the batch in the
// reject log and defaults to the canonical file name for the kind.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if r.Body == nil || r.ContentLength == 0 {
		respondError(w, r, errNoBody, http.StatusBadRequest)
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = kind.BatchFileName()
	}

	ctx := r.Context()
	if s.cfg.Ingest.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Ingest.Timeout)
		defer cancel()
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxUploadSize)
	var res *core.BatchResult
	err = s.limiter.Run(ctx, func(ctx context.Context) error {
		rc, counter, err := core.OpenBatchReader(body, r.ContentLength)
		if err != nil {
			return err
		}
		defer rc.Close()

		res, err = s.session.LoadBatch(ctx, kind, source, rc)
		logging.FromContext(ctx).Debug("batch read", "kind", kind, "bytes", counter.BytesRead, "progress", counter.Progress())
		return err
	})

	switch {
	case err == nil:
		w.Header().Set("X-Batch-ID", res.BatchID)
		w.Header().Set("X-Rejected", strconv.Itoa(res.Rejected()))
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, core.ErrMalformedErasure) && res != nil:
		logging.FromContext(ctx).Warn("batch stopped on malformed erasure", "kind", kind, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  err.Error(),
			"code":   core.MapError(err).Code,
			"result": res,
		})
	default:
		respondError(w, r, err, statusFor(err))
	}
}

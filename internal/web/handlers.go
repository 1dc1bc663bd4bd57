package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/JonMunkholm/retailetl/internal/logging"
)

// handleHealth reports liveness and the session ID.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"session": s.session.ID(),
	})
}

// readRecord reads one record body, bounded by the upload limit.
func (s *Server) readRecord(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errNoBody
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxUploadSize))
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, errTooLarge
		}
		return nil, err
	}
	if len(body) == 0 {
		return nil, errEmptyBody
	}
	return body, nil
}

// admitHandler adapts a single-record admit function to the front-end
// contract: 200 with an empty body, or 400 with the reason as text.
func (s *Server) admitHandler(admit func([]byte) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := s.readRecord(w, r)
		if err != nil {
			respondReason(w, r, err)
			return
		}
		if err := admit(body); err != nil {
			respondReason(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleCustomer(w http.ResponseWriter, r *http.Request) {
	s.admitHandler(s.session.AdmitCustomer)(w, r)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	s.admitHandler(s.session.AdmitProduct)(w, r)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	s.admitHandler(s.session.AdmitTransaction)(w, r)
}

func (s *Server) handleErasureRequest(w http.ResponseWriter, r *http.Request) {
	s.admitHandler(func(raw []byte) error {
		n, err := s.session.ApplyErasureRequest(raw)
		if err == nil {
			logging.FromContext(r.Context()).Info("erasure applied", "customers", n)
		}
		return err
	})(w, r)
}

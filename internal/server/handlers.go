package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"

	"castbot/internal/bot"
	"castbot/internal/storage"
	logx "castbot/pkg/logx"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// Handler builds the route table. Exposed for httptest.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhook/{secret}", s.handleWebhook)
	mux.HandleFunc("GET /jobs/status", s.handleJobStatus)
	mux.HandleFunc("POST /jobs/status", s.handleJobStatusSet)
	mux.HandleFunc("GET /jobs/result", s.handleJobResult)
	mux.HandleFunc("POST /jobs/result/reset", s.handleJobResultReset)
	mux.HandleFunc("GET /afterstream", s.handleAfterstreamList)
	mux.HandleFunc("POST /afterstream/{id}/resolve", s.handleAfterstreamResolve)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.recoverer(mux)
}

// recoverer keeps a panicking handler from killing the process.
func (s *Service) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("http handler panicked",
					logx.String("path", r.URL.Path),
					logx.Any("panic", rec),
					logx.String("stack", string(debug.Stack())))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	switch s.ingest.HandleWebhook(r.Context(), r.PathValue("secret"), body) {
	case bot.IngestForbidden:
		http.Error(w, "forbidden", http.StatusForbidden)
	case bot.IngestBadRequest:
		http.Error(w, "bad payload", http.StatusBadRequest)
	case bot.IngestIgnored:
		w.WriteHeader(http.StatusNoContent)
	case bot.IngestUnknownCommand:
		http.Error(w, "unknown command", http.StatusNotFound)
	case bot.IngestFailed:
		http.Error(w, "command failed", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Service) handleJobStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"busy": s.state.Busy()})
}

func (s *Service) handleJobStatusSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Busy *bool `json:"busy"`
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<10))
	if err := dec.Decode(&req); err != nil || req.Busy == nil {
		http.Error(w, `"busy" must be a boolean`, http.StatusBadRequest)
		return
	}
	s.state.SetBusy(*req.Busy)
	s.log.Debug("busy flag set", logx.Bool("busy", *req.Busy))
	writeJSON(w, http.StatusOK, map[string]bool{"busy": *req.Busy})
}

func (s *Service) handleJobResult(w http.ResponseWriter, _ *http.Request) {
	type resultJSON struct {
		User string `json:"user"`
		Text string `json:"text"`
		// Audio marshals as base64 per encoding/json []byte rules.
		Audio []byte `json:"audio"`
	}
	var out struct {
		Result *resultJSON `json:"result"`
	}
	if r := s.state.Result(); r != nil {
		out.Result = &resultJSON{User: r.User, Text: r.Text, Audio: r.Audio}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleJobResultReset(w http.ResponseWriter, _ *http.Request) {
	s.state.ResetResult()
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleAfterstreamList(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.UnresolvedNotes(r.Context())
	if err != nil {
		s.log.Error("afterstream list failed", logx.Err(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if notes == nil {
		notes = []storage.AfterstreamNote{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Service) handleAfterstreamResolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	switch err := s.store.ResolveNote(r.Context(), id); {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "no such note", http.StatusNotFound)
	case err != nil:
		s.log.Error("resolve failed", logx.Int64("id", id), logx.Err(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

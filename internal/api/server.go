// Package api exposes the management HTTP surface: voice-line CRUD,
// scheduler and radio control, and live settings.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hammamikhairi/tannoy/internal/assets"
	"github.com/hammamikhairi/tannoy/internal/config"
	"github.com/hammamikhairi/tannoy/internal/domain"
	"github.com/hammamikhairi/tannoy/internal/logger"
	"github.com/hammamikhairi/tannoy/internal/radio"
	"github.com/hammamikhairi/tannoy/internal/registry"
	"github.com/hammamikhairi/tannoy/internal/scheduler"
	"github.com/hammamikhairi/tannoy/internal/speech"
)

// Server holds the handlers for the management API.
type Server struct {
	lines  *registry.Registry
	synth  domain.Synthesizer
	sched  *scheduler.Scheduler
	radio  *radio.Player
	store  *assets.Store
	config *config.Store
	log    *logger.Logger
}

// NewServer wires the API over the application components.
func NewServer(
	lines *registry.Registry,
	synth domain.Synthesizer,
	sched *scheduler.Scheduler,
	radioPlayer *radio.Player,
	store *assets.Store,
	cfgStore *config.Store,
	log *logger.Logger,
) *Server {
	return &Server{
		lines:  lines,
		synth:  synth,
		sched:  sched,
		radio:  radioPlayer,
		store:  store,
		config: cfgStore,
		log:    log,
	}
}

// Handler returns the routed HTTP handler with CORS and request logging
// applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	mux.HandleFunc("GET /lines", s.handleListLines)
	mux.HandleFunc("POST /lines", s.handleAddLine)
	mux.HandleFunc("PUT /lines/{id}", s.handleEditLine)
	mux.HandleFunc("GET /lines/{id}/audio", s.handleLineAudio)
	mux.HandleFunc("POST /lines/toggle", s.handleToggleLines)
	mux.HandleFunc("POST /lines/toggle-all", s.handleToggleAll)
	mux.HandleFunc("POST /lines/remove", s.handleRemoveLines)
	mux.HandleFunc("POST /lines/remove-all", s.handleRemoveAll)

	mux.HandleFunc("POST /scheduler/start", s.handleSchedulerStart)
	mux.HandleFunc("POST /scheduler/stop", s.handleSchedulerStop)
	mux.HandleFunc("GET /scheduler/status", s.handleSchedulerStatus)

	mux.HandleFunc("POST /radio/start", s.handleRadioStart)
	mux.HandleFunc("POST /radio/stop", s.handleRadioStop)
	mux.HandleFunc("GET /radio/status", s.handleRadioStatus)

	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("PUT /settings", s.handleUpdateSettings)

	return s.withCORS(s.withLogging(mux))
}

// withLogging logs each request at debug level with its duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http: %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

// withCORS allows browser frontends on any origin to call the API.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errorDetail is the JSON body of every error response.
type errorDetail struct {
	Detail string `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("http: encoding response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorDetail{Detail: detail})
}

// fail maps a domain or speech error onto an HTTP status.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var apiErr *speech.APIError
	switch {
	case errors.Is(err, domain.ErrEmptyText),
		errors.Is(err, domain.ErrNotConfigured),
		errors.Is(err, domain.ErrNoTracks):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAssetNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyRunning):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &apiErr):
		switch apiErr.Kind {
		case speech.KindUnauthorized, speech.KindBadVoice:
			s.writeError(w, http.StatusBadRequest, err.Error())
		case speech.KindRateLimited:
			s.writeError(w, http.StatusTooManyRequests, err.Error())
		case speech.KindUnavailable, speech.KindNetwork:
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decode reads a JSON request body into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return false
	}
	return true
}

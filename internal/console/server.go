// Package console serves the local HTTP API the web console talks to.
// Every endpoint degrades gracefully when the upstream service is
// unreachable: local state stays available and upstream failures map
// to gateway errors instead of taking the console down.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/brainzmonster/os/internal/api"
	"github.com/brainzmonster/os/internal/drafts"
	"github.com/brainzmonster/os/internal/llm"
	"github.com/brainzmonster/os/internal/monitor"
	"github.com/brainzmonster/os/internal/retry"
	"github.com/brainzmonster/os/internal/trainer"
)

const maxBodyBytes = 1 << 20

// Deps carries the components the server exposes.
type Deps struct {
	Client  *api.Client
	Monitor *monitor.Monitor
	LLM     *llm.Service
	Trainer *trainer.Coordinator
	Drafts  *drafts.Store
}

// Options tunes the HTTP server and its derived views.
type Options struct {
	Addr          string
	AllowedOrigin string

	// PushInterval paces websocket status pushes.
	PushInterval time.Duration

	// TimelineWindow and TimelinePoints shape GET /api/timeline.
	TimelineWindow time.Duration
	TimelinePoints int

	// DegradedAbove classifies slow probes in timeline views.
	DegradedAbove time.Duration

	// SampleLimit caps how many probe samples list endpoints return.
	SampleLimit int
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.PushInterval <= 0 {
		o.PushInterval = 3 * time.Second
	}
	if o.TimelineWindow <= 0 {
		o.TimelineWindow = time.Hour
	}
	if o.TimelinePoints <= 0 {
		o.TimelinePoints = 80
	}
	if o.DegradedAbove <= 0 {
		o.DegradedAbove = monitor.DefaultDegradedAbove
	}
	if o.SampleLimit <= 0 {
		o.SampleLimit = 200
	}
	return o
}

// Server wraps HTTP serving of the console API.
type Server struct {
	httpServer *http.Server
	deps       Deps
	opts       Options
}

// New creates a configured console server.
func New(deps Deps, opts Options) *Server {
	opts = opts.withDefaults()

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{Addr: opts.Addr, Handler: mux},
		deps:       deps,
		opts:       opts,
	}
	s.registerRoutes(mux)
	return s
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/status/refresh", s.handleStatusRefresh)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/uptime", s.handleUptime)
	mux.HandleFunc("/api/timeline", s.handleTimeline)
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/query/history", s.handleQueryHistory)
	mux.HandleFunc("/api/train", s.handleTrain)
	mux.HandleFunc("/api/train/estimate", s.handleTrainEstimate)
	mux.HandleFunc("/api/train/session", s.handleTrainSession)
	mux.HandleFunc("/api/train/poll", s.handleTrainPoll)
	mux.HandleFunc("/api/train/cancel", s.handleTrainCancel)
	mux.HandleFunc("/api/train/history", s.handleTrainHistory)
	mux.HandleFunc("/api/drafts", s.handleDrafts)
	mux.HandleFunc("/ws/status", s.handleStatusWS)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return false
	}
	return true
}

func decodeJSON(r *http.Request, dest any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dest); err != nil {
		return errors.New("invalid json body")
	}
	return nil
}

func parseLimit(r *http.Request, fallback int) int {
	if fallback <= 0 {
		return fallback
	}
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > fallback {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
}

// errorStatus maps component errors onto HTTP statuses: caller
// mistakes become 4xx, upstream trouble becomes 502/504, everything
// else is a 500.
func errorStatus(err error) int {
	var verr *trainer.ValidationError
	switch {
	case errors.Is(err, llm.ErrEmptyPrompt),
		errors.As(err, &verr),
		errors.Is(err, drafts.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, trainer.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var terr *api.TransportError
	var exhausted *retry.ExhaustedError
	if errors.As(err, &terr) || errors.As(err, &exhausted) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

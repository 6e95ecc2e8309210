// Package web serves the page over HTTP: a JSON API over the engine
// operations, a websocket stream of state snapshots and the Prometheus
// scrape endpoint.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hammamikhairi/talkytime/internal/clock"
	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/engine"
	"github.com/hammamikhairi/talkytime/internal/logger"
	"github.com/hammamikhairi/talkytime/internal/observe"
)

const (
	maxBody         = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// Engine is the part of the engine the HTTP surface drives.
type Engine interface {
	State() engine.State
	ParamsJSON() ([]byte, error)
	Speak(ctx context.Context) (string, error)
	Silence()
	ToggleClock() clock.State
	SetTemplate(tmpl string)
	SelectVoice(i int) error
	SetControl(id string, v any) error
	SetSlider(id string, v float64) error
	History(ctx context.Context, n int) ([]domain.Announcement, error)
	Subscribe(fn func(engine.Event))
}

var _ Engine = (*engine.Engine)(nil)

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request durations.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler replaces the /metrics handler. The default is the
// Prometheus default gatherer.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithOriginPatterns allows websocket connections from other hosts.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.hub.origins = patterns }
}

// Server is the HTTP control surface.
type Server struct {
	eng            Engine
	log            *logger.Logger
	metrics        *observe.Metrics
	metricsHandler http.Handler
	hub            *hub
	handler        http.Handler
}

// New creates the server and subscribes its websocket hub to engine
// changes.
func New(eng Engine, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		eng:            eng,
		log:            log,
		metricsHandler: promhttp.Handler(),
		hub:            newHub(eng, log),
	}
	for _, opt := range opts {
		opt(s)
	}
	eng.Subscribe(s.hub.changed)

	mux := http.NewServeMux()
	s.register(mux)
	s.handler = observe.Middleware(s.metrics, log)(mux)
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /api/state", s.state)
	mux.HandleFunc("GET /api/params", s.params)
	mux.HandleFunc("GET /api/history", s.history)
	mux.HandleFunc("POST /api/speak", s.speak)
	mux.HandleFunc("POST /api/silence", s.silence)
	mux.HandleFunc("POST /api/clock/toggle", s.toggleClock)
	mux.HandleFunc("PUT /api/format", s.setFormat)
	mux.HandleFunc("PUT /api/voice", s.setVoice)
	mux.HandleFunc("PUT /api/controls/{id}", s.setControl)
	mux.HandleFunc("GET /ws", s.hub.serve)
	mux.Handle("GET /metrics", s.metricsHandler)
}

// ── handlers ─────────────────────────────────────────────────────

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.State())
}

func (s *Server) params(w http.ResponseWriter, _ *http.Request) {
	b, err := s.eng.ParamsJSON()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

const defaultHistory = 20

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	n := defaultHistory
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 {
			s.fail(w, fmt.Errorf("%w: n must be a non-negative integer, got %q", domain.ErrInvalidValue, q))
			return
		}
		n = v
	}
	items, err := s.eng.History(r.Context(), n)
	if err != nil {
		s.fail(w, err)
		return
	}
	if items == nil {
		items = []domain.Announcement{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) speak(w http.ResponseWriter, r *http.Request) {
	// The utterance outlives the request.
	id, err := s.eng.Speak(context.WithoutCancel(r.Context()))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":          id,
		"time_string": s.eng.State().TimeString,
	})
}

func (s *Server) silence(w http.ResponseWriter, _ *http.Request) {
	s.eng.Silence()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleClock(w http.ResponseWriter, _ *http.Request) {
	st := s.eng.ToggleClock()
	state := s.eng.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"state": st.String(),
		"label": state.ClockLabel,
	})
}

type formatRequest struct {
	Template *string `json:"template"`
}

func (s *Server) setFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if req.Template == nil {
		s.fail(w, fmt.Errorf("%w: missing template", domain.ErrInvalidValue))
		return
	}
	s.eng.SetTemplate(*req.Template)
	st := s.eng.State()
	writeJSON(w, http.StatusOK, map[string]string{
		"template":    st.Template,
		"time_string": st.TimeString,
	})
}

type voiceRequest struct {
	Index *int `json:"index"`
}

func (s *Server) setVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if req.Index == nil {
		s.fail(w, fmt.Errorf("%w: missing index", domain.ErrInvalidValue))
		return
	}
	if err := s.eng.SelectVoice(*req.Index); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"selected_voice": *req.Index})
}

// controlRequest sets either the precise value (number or color string) or
// the slider position.
type controlRequest struct {
	Value  any      `json:"value"`
	Slider *float64 `json:"slider"`
}

func (s *Server) setControl(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req controlRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}

	var err error
	switch {
	case req.Slider != nil:
		err = s.eng.SetSlider(id, *req.Slider)
	case req.Value != nil:
		err = s.eng.SetControl(id, req.Value)
	default:
		err = fmt.Errorf("%w: missing value or slider", domain.ErrInvalidValue)
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	for _, row := range s.eng.State().Controls {
		if row.Control != nil && row.Control.ID == id {
			writeJSON(w, http.StatusOK, row.Control)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── helpers ──────────────────────────────────────────────────────

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("http: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownControl), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoVoice), errors.Is(err, domain.ErrRecorderDisabled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", domain.ErrInvalidValue, err)
	}
	return nil
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding"}`, http.StatusInternalServerError)
	}
}

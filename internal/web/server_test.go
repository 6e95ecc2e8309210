package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/hammamikhairi/talkytime/internal/clock"
	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/engine"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

type fakeEngine struct {
	mu       sync.Mutex
	template string
	running  bool
	noVoice  bool
	selected int
	values   map[string]any
	sliders  map[string]float64
	spoke    int
	silenced int
	history  []domain.Announcement
	noStore  bool
	sub      func(engine.Event)
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		template: "${hour}",
		selected: -1,
		values:   map[string]any{},
		sliders:  map[string]float64{},
	}
}

func (f *fakeEngine) State() engine.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	label := clock.LabelStart
	if f.running {
		label = clock.LabelStop
	}
	return engine.State{
		Template:   f.template,
		TimeString: "rendered " + f.template,
		ClockLabel: label,
		Running:    f.running,
		Selected:   f.selected,
		Controls: []engine.Row{
			{Heading: "Speech"},
			{Depth: 1, Control: &engine.ControlState{ID: "speech-rate", Label: "rate", Kind: "number", Text: "1"}},
		},
	}
}

func (f *fakeEngine) ParamsJSON() ([]byte, error) {
	return []byte(`{"template":"` + f.template + `"}`), nil
}

func (f *fakeEngine) Speak(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noVoice {
		return "", domain.ErrNoVoice
	}
	f.spoke++
	return "utt-1", nil
}

func (f *fakeEngine) Silence() {
	f.mu.Lock()
	f.silenced++
	f.mu.Unlock()
}

func (f *fakeEngine) ToggleClock() clock.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = !f.running
	if f.running {
		return clock.Running
	}
	return clock.Stopped
}

func (f *fakeEngine) SetTemplate(tmpl string) {
	f.mu.Lock()
	f.template = tmpl
	f.mu.Unlock()
}

func (f *fakeEngine) SelectVoice(i int) error {
	if i != 0 {
		return fmt.Errorf("%w: index %d", domain.ErrNoVoice, i)
	}
	f.mu.Lock()
	f.selected = i
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) SetControl(id string, v any) error {
	if id != "speech-rate" {
		return fmt.Errorf("%w: %s", domain.ErrUnknownControl, id)
	}
	if _, ok := v.(float64); !ok {
		return fmt.Errorf("%w: %v", domain.ErrInvalidValue, v)
	}
	f.mu.Lock()
	f.values[id] = v
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) SetSlider(id string, v float64) error {
	if id != "speech-rate" {
		return domain.ErrUnknownControl
	}
	f.mu.Lock()
	f.sliders[id] = v
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) History(_ context.Context, n int) ([]domain.Announcement, error) {
	if f.noStore {
		return nil, domain.ErrNotImplemented
	}
	if n > 0 && n < len(f.history) {
		return f.history[:n], nil
	}
	return f.history, nil
}

func (f *fakeEngine) Subscribe(fn func(engine.Event)) { f.sub = fn }

func newTestServer(eng *fakeEngine, opts ...Option) *Server {
	return New(eng, logger.New(logger.LevelOff, nil), opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthzAndState(t *testing.T) {
	h := newTestServer(newFakeEngine()).Handler()

	rec := do(t, h, "GET", "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, "GET", "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("state: %d", rec.Code)
	}
	var st struct {
		TimeString string `json:"time_string"`
		ClockLabel string `json:"clock_label"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.TimeString != "rendered ${hour}" || st.ClockLabel != clock.LabelStart {
		t.Fatalf("state = %+v", st)
	}

	rec = do(t, h, "GET", "/api/params", "")
	if rec.Code != http.StatusOK || rec.Body.String() != `{"template":"${hour}"}` {
		t.Fatalf("params: %d %s", rec.Code, rec.Body)
	}
}

func TestSpeakSilenceToggle(t *testing.T) {
	eng := newFakeEngine()
	h := newTestServer(eng).Handler()

	rec := do(t, h, "POST", "/api/speak", "")
	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), "utt-1") {
		t.Fatalf("speak: %d %s", rec.Code, rec.Body)
	}

	eng.noVoice = true
	if rec := do(t, h, "POST", "/api/speak", ""); rec.Code != http.StatusConflict {
		t.Fatalf("speak without voice: %d, want 409", rec.Code)
	}

	if rec := do(t, h, "POST", "/api/silence", ""); rec.Code != http.StatusNoContent || eng.silenced != 1 {
		t.Fatalf("silence: %d", rec.Code)
	}

	rec = do(t, h, "POST", "/api/clock/toggle", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"running"`) || !strings.Contains(rec.Body.String(), clock.LabelStop) {
		t.Fatalf("toggle: %d %s", rec.Code, rec.Body)
	}

	if rec := do(t, h, "GET", "/api/speak", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET speak: %d, want 405", rec.Code)
	}
}

func TestHistory(t *testing.T) {
	eng := newFakeEngine()
	h := newTestServer(eng).Handler()

	rec := do(t, h, "GET", "/api/history", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty history: %d %s", rec.Code, rec.Body)
	}

	eng.history = []domain.Announcement{
		{ID: "b", Text: "16:31", Status: domain.StatusCached},
		{ID: "a", Text: "16:30", Status: domain.StatusOK},
	}
	rec = do(t, h, "GET", "/api/history?n=1", "")
	var got []domain.Announcement
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("history = %+v", got)
	}

	if rec := do(t, h, "GET", "/api/history?n=x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad n: %d, want 400", rec.Code)
	}
	eng.noStore = true
	if rec := do(t, h, "GET", "/api/history", ""); rec.Code != http.StatusNotImplemented {
		t.Fatalf("no store: %d, want 501", rec.Code)
	}
}

func TestUpdates(t *testing.T) {
	eng := newFakeEngine()
	h := newTestServer(eng).Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"format", "PUT", "/api/format", `{"template":"${minute}"}`, http.StatusOK},
		{"format missing", "PUT", "/api/format", `{}`, http.StatusBadRequest},
		{"format bad json", "PUT", "/api/format", `{"template":`, http.StatusBadRequest},
		{"format unknown field", "PUT", "/api/format", `{"tmpl":"x"}`, http.StatusBadRequest},
		{"voice", "PUT", "/api/voice", `{"index":0}`, http.StatusOK},
		{"voice out of range", "PUT", "/api/voice", `{"index":7}`, http.StatusConflict},
		{"control value", "PUT", "/api/controls/speech-rate", `{"value":1.5}`, http.StatusOK},
		{"control slider", "PUT", "/api/controls/speech-rate", `{"slider":0.4}`, http.StatusOK},
		{"control invalid", "PUT", "/api/controls/speech-rate", `{"value":"fast"}`, http.StatusBadRequest},
		{"control empty", "PUT", "/api/controls/speech-rate", `{}`, http.StatusBadRequest},
		{"control unknown", "PUT", "/api/controls/nope", `{"value":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("%s %s = %d (%s), want %d", tt.method, tt.path, rec.Code, rec.Body, tt.want)
			}
		})
	}

	if eng.template != "${minute}" {
		t.Errorf("template = %q", eng.template)
	}
	if eng.selected != 0 {
		t.Errorf("selected = %d", eng.selected)
	}
	if eng.values["speech-rate"] != 1.5 || eng.sliders["speech-rate"] != 0.4 {
		t.Errorf("values = %v sliders = %v", eng.values, eng.sliders)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	scrape := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("talkytime_announcements_total 3\n"))
	})
	h := newTestServer(newFakeEngine(), WithMetricsHandler(scrape)).Handler()

	rec := do(t, h, "GET", "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "talkytime_announcements_total") {
		t.Fatalf("metrics: %d %s", rec.Code, rec.Body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", domain.ErrUnknownControl), http.StatusNotFound},
		{domain.ErrInvalidValue, http.StatusBadRequest},
		{domain.ErrNoVoice, http.StatusConflict},
		{domain.ErrRecorderDisabled, http.StatusConflict},
		{domain.ErrNotImplemented, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWebsocketStreamsState(t *testing.T) {
	eng := newFakeEngine()
	s := newTestServer(eng)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	type frame struct {
		Event string `json:"event"`
		State struct {
			Template string `json:"template"`
		} `json:"state"`
	}

	var first frame
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if first.Event != string(engine.EventControls) || first.State.Template != "${hour}" {
		t.Fatalf("initial frame = %+v", first)
	}
	if n := s.hub.count(); n != 1 {
		t.Fatalf("hub has %d clients, want 1", n)
	}

	eng.SetTemplate("${second}")
	eng.sub(engine.EventTime)

	var next frame
	if err := wsjson.Read(ctx, conn, &next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if next.Event != string(engine.EventTime) || next.State.Template != "${second}" {
		t.Fatalf("update frame = %+v", next)
	}
}

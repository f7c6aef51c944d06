package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/engine"
	"github.com/matheusschuckar/look-pro/feedback"
	"github.com/matheusschuckar/look-pro/store"
)

type fixture struct {
	srv      *Server
	sessions *Sessions
	applied  chan error
	backend  *store.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := store.NewMemoryStore()
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		t.Fatal(err)
	}
	policy := engine.DefaultPolicy()
	policy.Epsilon = 0

	sessions := NewSessions(backend, WithEngineOptions(
		engine.WithPolicy(policy),
		engine.WithMetrics(metrics),
		engine.WithSeed(7),
	))
	applied := make(chan error, 16)
	d := feedback.NewDispatcher(sessions.Recorder,
		feedback.WithAppliedHook(func(_ feedback.Event, err error) { applied <- err }),
	)
	srv := New(Config{
		Sessions:   sessions,
		Dispatcher: d,
		Gatherer:   reg,
		Logger:     zerolog.Nop(),
	})
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return &fixture{srv: srv, sessions: sessions, applied: applied, backend: backend}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Echo().ServeHTTP(rec, req)
	return rec
}

const feed = `[
	{"id": 1, "name": "Tenis", "store_name": "Loja A", "category": "shoes", "view_count": 1},
	{"id": 2, "name": "Vestido", "store_name": "Loja B", "category": "dresses", "view_count": 90},
	{"id": 3, "name": "Bota", "store_name": "Loja C", "category": "shoes"}
]`

func rankIDs(t *testing.T, rec *httptest.ResponseRecorder) []int64 {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp RankResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	out := make([]int64, 0, len(resp.Items))
	for _, c := range resp.Items {
		out = append(out, c.ID)
	}
	return out
}

func TestServer_RankFollowsBumps(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/bump/cat", `{"user_id": "ana", "key": "Shoes", "weight": 5}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("bump status = %d body = %s", rec.Code, rec.Body.String())
	}

	got := rankIDs(t, f.do(t, http.MethodPost, "/v1/rank", `{"user_id": "ana", "candidates": `+feed+`}`))
	if len(got) != 3 || got[2] != 2 {
		t.Errorf("ana order = %v, want dresses last", got)
	}

	// 其他用户不受影响
	other := rankIDs(t, f.do(t, http.MethodPost, "/v1/rank", `{"user_id": "bia", "candidates": `+feed+`}`))
	if other[0] != 2 {
		t.Errorf("bia order = %v, want most viewed first", other)
	}
	if f.sessions.Len() != 2 {
		t.Errorf("sessions = %d, want 2", f.sessions.Len())
	}
}

func TestServer_RankLimitAndCriteria(t *testing.T) {
	f := newFixture(t)
	body := `{"user_id": "ana", "limit": 1, "criteria": {"categories": ["shoes"]}, "candidates": ` + feed + `}`
	got := rankIDs(t, f.do(t, http.MethodPost, "/v1/rank", body))
	if len(got) != 1 || (got[0] != 1 && got[0] != 3) {
		t.Errorf("got %v, want a single shoe", got)
	}
}

func TestServer_RankSeed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/rank", `{"user_id": "ana", "seed": 99, "candidates": []}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp RankResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Seed != 99 {
		t.Errorf("seed = %d, want 99", resp.Seed)
	}
}

func TestServer_BadRequests(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"rank without user", http.MethodPost, "/v1/rank", `{"candidates": []}`, http.StatusBadRequest},
		{"rank malformed body", http.MethodPost, "/v1/rank", `{`, http.StatusBadRequest},
		{"bump unknown facet", http.MethodPost, "/v1/bump/color", `{"user_id": "ana", "key": "red"}`, http.StatusNotFound},
		{"bump empty key", http.MethodPost, "/v1/bump/cat", `{"user_id": "ana", "key": ""}`, http.StatusBadRequest},
		{"bump blank key", http.MethodPost, "/v1/bump/cat", `{"user_id": "ana", "key": "   "}`, http.StatusBadRequest},
		{"bump negative weight", http.MethodPost, "/v1/bump/cat", `{"user_id": "ana", "key": "x", "weight": -1}`, http.StatusBadRequest},
		{"decay zero half-life", http.MethodPost, "/v1/decay", `{"user_id": "ana", "half_life_days": 0}`, http.StatusBadRequest},
		{"preferences without user", http.MethodGet, "/v1/preferences", "", http.StatusBadRequest},
		{"event without kind", http.MethodPost, "/v1/events", `{"user_id": "ana"}`, http.StatusBadRequest},
		{"event without user", http.MethodPost, "/v1/events", `{"kind": "bump", "facet": "cat", "key": "x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			var resp ResponseError
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Message == "" {
				t.Errorf("error body = %q", rec.Body.String())
			}
		})
	}
}

func TestServer_EventsAndPreferences(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/events", `{"kind": "tap", "user_id": "ana", "candidate": {"id": 5, "name": "Saia", "store_name": "Loja A", "category": "skirts"}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var ev EventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil || ev.ID == "" {
		t.Fatalf("event response = %s", rec.Body.String())
	}

	select {
	case err := <-f.applied:
		if err != nil {
			t.Fatalf("event not applied: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not applied in time")
	}

	rec = f.do(t, http.MethodGet, "/v1/preferences?user_id=ana", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc struct {
		Version int                            `json:"version"`
		Cat     map[string]struct{ W float64 } `json:"cat"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Version != 2 || doc.Cat["skirts"].W <= 0 {
		t.Errorf("preferences = %s", rec.Body.String())
	}

	// 写入按用户隔离
	raw, err := f.backend.Get(context.Background(), "u:ana:look.prefs.v2")
	if err != nil || len(raw) == 0 {
		t.Errorf("namespaced prefs missing: %v", err)
	}
}

func TestServer_Decay(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodPost, "/v1/bump/store", `{"user_id": "ana", "key": "Loja A"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("bump status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/v1/decay", `{"user_id": "ana", "half_life_days": 7}`); rec.Code != http.StatusNoContent {
		t.Fatalf("decay status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/rank", `{"user_id": "ana", "candidates": `+feed+`}`)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"sessions":1`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "lookpro_rank_total") {
		t.Errorf("metrics = %d", rec.Code)
	}
}

func TestServer_EventsDisabled(t *testing.T) {
	srv := New(Config{Sessions: NewSessions(store.NewMemoryStore()), Logger: zerolog.Nop()})
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSessions_MissingUser(t *testing.T) {
	s := NewSessions(store.NewMemoryStore())
	if _, err := s.Engine(context.Background(), "  "); !core.IsInvalidInput(err) {
		t.Errorf("err = %v, want invalid input", err)
	}
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSessions_IdleEviction(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewSessions(store.NewMemoryStore(), WithIdleTTL(time.Minute), WithSessionClock(clock))

	first, err := s.Engine(ctx, "ana")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Engine(ctx, "bia"); err != nil {
		t.Fatal(err)
	}

	clock.Advance(30 * time.Second)
	if again, _ := s.Engine(ctx, "ana"); again != first {
		t.Fatal("active session should be reused")
	}

	clock.Advance(45 * time.Second)
	if n := s.Sweep(); n != 1 || s.Len() != 1 {
		t.Fatalf("swept %d, len %d; want bia evicted", n, s.Len())
	}

	clock.Advance(2 * time.Minute)
	renewed, err := s.Engine(ctx, "ana")
	if err != nil {
		t.Fatal(err)
	}
	if renewed == first {
		t.Error("expired session should be replaced")
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestSessions_MaxSessionsEvictsLeastRecent(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryStore()
	s := NewSessions(backend, WithMaxSessions(2), WithIdleTTL(0))

	ana, _ := s.Engine(ctx, "ana")
	if err := ana.BumpCategory(ctx, "shoes"); err != nil {
		t.Fatal(err)
	}
	_, _ = s.Engine(ctx, "bia")
	_, _ = s.Engine(ctx, "ana")
	_, _ = s.Engine(ctx, "caio")

	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	if again, _ := s.Engine(ctx, "ana"); again != ana {
		t.Error("most recently used session evicted")
	}

	// 偏好在回收后仍然保留
	_, _ = s.Engine(ctx, "bia")
	_, _ = s.Engine(ctx, "caio")
	renewed, _ := s.Engine(ctx, "ana")
	if renewed == ana {
		t.Fatal("ana should have been evicted")
	}
	if got := renewed.GetPreferences(ctx).Weight(core.FacetCategory, "shoes"); got <= 0 {
		t.Errorf("shoes weight after eviction = %v", got)
	}
}

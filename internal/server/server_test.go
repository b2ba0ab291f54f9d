package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"arlo/internal/agent/domain"
	"arlo/internal/agent/ports"
)

type stubRunner struct {
	job *ports.Job
	err error

	lastSession string
	lastQuery   string
}

func (r *stubRunner) ProcessQuery(ctx context.Context, sessionID, query string, sink ports.TokenSink) (*ports.Job, error) {
	r.lastSession = sessionID
	r.lastQuery = query
	return r.job, r.err
}

type stubBroker struct {
	mu       sync.Mutex
	pending  []ports.PermissionRequest
	resolved map[string]bool
}

func (b *stubBroker) Request(ctx context.Context, req ports.PermissionRequest) (bool, error) {
	return false, fmt.Errorf("not used in tests")
}

func (b *stubBroker) Resolve(id string, allow bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resolved == nil {
		b.resolved = map[string]bool{}
	}
	b.resolved[id] = allow
}

func (b *stubBroker) Pending() []ports.PermissionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ports.PermissionRequest(nil), b.pending...)
}

type memoryStore struct {
	mu   sync.Mutex
	jobs map[string]*ports.Job
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: map[string]*ports.Job{}}
}

func (s *memoryStore) Save(ctx context.Context, job *ports.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (*ports.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return job, nil
}

func (s *memoryStore) List(ctx context.Context, sessionID string) ([]*ports.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ports.Job
	for _, job := range s.jobs {
		if sessionID == "" || job.SessionID == sessionID {
			out = append(out, job)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	if cfg.Runner == nil {
		cfg.Runner = &stubRunner{job: &ports.Job{ID: "job-1", Status: ports.JobCompleted}}
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, Config{})
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s, want ok status", rec.Body.String())
	}
}

func TestQueryRunsCoordinator(t *testing.T) {
	runner := &stubRunner{job: &ports.Job{ID: "job-7", SessionID: "s1", Status: ports.JobCompleted, Result: "done"}}
	srv := newTestServer(t, Config{Runner: runner})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/query",
		map[string]string{"session_id": "s1", "query": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if runner.lastSession != "s1" || runner.lastQuery != "hello" {
		t.Errorf("runner saw (%q, %q), want (s1, hello)", runner.lastSession, runner.lastQuery)
	}

	var resp struct {
		Job ports.Job `json:"job"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Job.ID != "job-7" || resp.Job.Result != "done" {
		t.Errorf("job = %+v, want id job-7 with result done", resp.Job)
	}
}

func TestQueryDefaultsSession(t *testing.T) {
	runner := &stubRunner{job: &ports.Job{ID: "j"}}
	srv := newTestServer(t, Config{Runner: runner})

	doJSON(t, srv.Handler(), http.MethodPost, "/api/query", map[string]string{"query": "hi"})
	if runner.lastSession != "default" {
		t.Errorf("session = %q, want default", runner.lastSession)
	}
}

func TestQueryRequiresBody(t *testing.T) {
	srv := newTestServer(t, Config{})
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/query", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQueryFailurePropagates(t *testing.T) {
	runner := &stubRunner{
		job: &ports.Job{ID: "j", Status: ports.JobFailed, Error: "planning failed"},
		err: fmt.Errorf("planning failed"),
	}
	srv := newTestServer(t, Config{Runner: runner})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/query", map[string]string{"query": "do it"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "planning failed") {
		t.Errorf("body = %s, want failure reason", rec.Body.String())
	}
}

func TestGetJob(t *testing.T) {
	store := newMemoryStore()
	store.Save(context.Background(), &ports.Job{ID: "job-1", SessionID: "s1", Status: ports.JobCompleted})
	srv := newTestServer(t, Config{Store: store})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/jobs/job-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"job-1"`) {
		t.Errorf("body = %s, want job-1", rec.Body.String())
	}

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/jobs/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d, want 404", rec.Code)
	}
}

func TestListJobsFiltersBySession(t *testing.T) {
	store := newMemoryStore()
	store.Save(context.Background(), &ports.Job{ID: "a", SessionID: "s1"})
	store.Save(context.Background(), &ports.Job{ID: "b", SessionID: "s2"})
	srv := newTestServer(t, Config{Store: store})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/jobs?session=s2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Jobs []*ports.Job `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0].ID != "b" {
		t.Errorf("jobs = %+v, want only b", resp.Jobs)
	}
}

func TestPermissionEndpoints(t *testing.T) {
	broker := &stubBroker{pending: []ports.PermissionRequest{
		{ID: "req-1", Type: ports.PermissionShellExecute, Message: "Run ls?"},
	}}
	srv := newTestServer(t, Config{Broker: broker})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/permissions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "req-1") {
		t.Errorf("body = %s, want req-1 listed", rec.Body.String())
	}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/permissions/req-1",
		map[string]bool{"allow": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	broker.mu.Lock()
	allowed, ok := broker.resolved["req-1"]
	broker.mu.Unlock()
	if !ok || !allowed {
		t.Errorf("broker resolved = %v/%v, want req-1 allowed", allowed, ok)
	}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/permissions/req-1", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing allow status = %d, want 400", rec.Code)
	}
}

func TestEventFeedStreamsHubEvents(t *testing.T) {
	hub := NewHub(nil)
	srv := newTestServer(t, Config{Hub: hub})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	// Registration happens in the handler after the upgrade response,
	// so wait for the hub to see the client before emitting.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Len() == 0 {
		t.Fatal("client never registered with hub")
	}
	hub.OnEvent(domain.NewTokenEvent("s1", "j1", "hi", time.Now()))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event wireEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "token" || event.SessionID != "s1" || event.JobID != "j1" {
		t.Errorf("event = %+v, want token event for s1/j1", event)
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub(nil)
	srv := newTestServer(t, Config{Hub: hub})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	conn.Close()

	// Closing the client eventually removes it via the reader loop.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() > 0 && time.Now().Before(deadline) {
		hub.OnEvent(domain.NewTokenEvent("s", "j", "x", time.Now()))
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Len() != 0 {
		t.Errorf("hub still has %d clients, want 0", hub.Len())
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{Runner: &stubRunner{}}); err == nil {
		t.Error("expected error for missing address")
	}
	if _, err := New(Config{Addr: ":0"}); err == nil {
		t.Error("expected error for missing runner")
	}
}

package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/gymsync/status"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore() (*status.Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 7, 1, 18, 0, 0, 0, time.UTC)}
	return status.NewStore(status.WithClock(clock)), clock
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestStartHandler(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{"valid", `{"discord_id":"42","status":{"activity":"Gym"}}`, http.StatusOK, `{"ok":true}`},
		{"missing discord_id", `{"status":{"activity":"Gym"}}`, http.StatusBadRequest, `{"error":"Invalid payload"}`},
		{"empty discord_id", `{"discord_id":"","status":{"activity":"Gym"}}`, http.StatusBadRequest, `{"error":"Invalid payload"}`},
		{"numeric discord_id", `{"discord_id":42,"status":{"activity":"Gym"}}`, http.StatusBadRequest, `{"error":"Invalid payload"}`},
		{"missing status", `{"discord_id":"42"}`, http.StatusBadRequest, `{"error":"Invalid payload"}`},
		{"status not an object", `{"discord_id":"42","status":"Gym"}`, http.StatusBadRequest, `{"error":"Invalid payload"}`},
		{"missing activity", `{"discord_id":"42","status":{}}`, http.StatusBadRequest, `{"error":"Invalid payload"}`},
		{"activity not text", `{"discord_id":"42","status":{"activity":7}}`, http.StatusBadRequest, `{"error":"Invalid payload"}`},
		{"empty activity", `{"discord_id":"42","status":{"activity":""}}`, http.StatusBadRequest, `{"error":"Invalid payload"}`},
		{"malformed json", `{"discord_id":`, http.StatusBadRequest, `{"error":"Invalid payload"}`},
		{"empty body", ``, http.StatusBadRequest, `{"error":"Invalid payload"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore()
			w := post(t, NewStartHandler(testLogger(), store), tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestStartHandler_CreatesRecord(t *testing.T) {
	store, _ := newTestStore()
	w := post(t, NewStartHandler(testLogger(), store), `{"discord_id":"42","status":{"activity":"Gym"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	snap, err := store.Query("42")
	require.NoError(t, err)
	assert.Equal(t, status.Snapshot{Activity: "Gym"}, snap)
}

func TestPauseHandler(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*status.Store)
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "running",
			setup:    func(s *status.Store) { s.Start("42", "Gym") },
			body:     `{"discord_id":"42"}`,
			wantCode: http.StatusOK,
			wantBody: `{"ok":true}`,
		},
		{
			name:     "missing discord_id",
			setup:    func(*status.Store) {},
			body:     `{}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"discord_id is required"}`,
		},
		{
			name:     "numeric discord_id",
			setup:    func(s *status.Store) { s.Start("42", "Gym") },
			body:     `{"discord_id":42}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"discord_id is required"}`,
		},
		{
			name:     "malformed json",
			setup:    func(*status.Store) {},
			body:     `nope`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"discord_id is required"}`,
		},
		{
			name:     "not found",
			setup:    func(*status.Store) {},
			body:     `{"discord_id":"42"}`,
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"Status not found"}`,
		},
		{
			name: "already paused",
			setup: func(s *status.Store) {
				s.Start("42", "Gym")
				s.Pause("42")
			},
			body:     `{"discord_id":"42"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Already paused"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore()
			tt.setup(store)
			w := post(t, NewPauseHandler(testLogger(), store), tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestResumeHandler(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*status.Store)
		body     string
		wantCode int
		wantBody string
	}{
		{
			name: "paused",
			setup: func(s *status.Store) {
				s.Start("42", "Gym")
				s.Pause("42")
			},
			body:     `{"discord_id":"42"}`,
			wantCode: http.StatusOK,
			wantBody: `{"ok":true}`,
		},
		{
			name:     "missing discord_id",
			setup:    func(*status.Store) {},
			body:     `{"discord_id":null}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"discord_id is required"}`,
		},
		{
			name:     "absent",
			setup:    func(*status.Store) {},
			body:     `{"discord_id":"42"}`,
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"Nothing to resume"}`,
		},
		{
			name:     "running",
			setup:    func(s *status.Store) { s.Start("42", "Gym") },
			body:     `{"discord_id":"42"}`,
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"Nothing to resume"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore()
			tt.setup(store)
			w := post(t, NewResumeHandler(testLogger(), store), tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestStopHandler(t *testing.T) {
	store, _ := newTestStore()
	require.NoError(t, store.Start("42", "Gym"))
	h := NewStopHandler(testLogger(), store)

	w := post(t, h, `{"discord_id":"42"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	_, err := store.Query("42")
	assert.ErrorIs(t, err, status.ErrNotFound)

	// Stopping an absent identity still succeeds.
	w = post(t, h, `{"discord_id":"42"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = post(t, h, `{"discord_id":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"discord_id is required"}`, w.Body.String())
}

func TestQueryHandler(t *testing.T) {
	store, clock := newTestStore()
	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/status/{id}", NewQueryHandler(store))

	get := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status/"+id, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w
	}

	w := get("42")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())

	require.NoError(t, store.Start("42", "Running"))
	clock.Advance(90*time.Second + 500*time.Millisecond)

	w = get("42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"activity":"Running","time":90,"paused":false}`, w.Body.String())

	require.NoError(t, store.Pause("42"))
	clock.Advance(time.Hour)

	w = get("42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"activity":"Running","time":90,"paused":true}`, w.Body.String())
}

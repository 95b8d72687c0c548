// ABOUTME: Test helpers for the session package
// ABOUTME: Fake ADDoc backend issuing HS256 tokens, recording navigator, and wiring helpers

package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/2389/addoc-client/internal/api"
	"github.com/2389/addoc-client/internal/credstore"
	"github.com/2389/addoc-client/internal/metrics"
)

var testSecret = []byte("session-test-secret-32-bytes!!!!")

type fakeAccount struct {
	password string
	user     api.User
}

// fakeBackend imitates the two endpoints the session layer depends on.
type fakeBackend struct {
	t        *testing.T
	srv      *httptest.Server
	accounts map[string]fakeAccount

	meStatus   atomic.Int32 // forced status for /api/users/me when non-zero
	meBody     atomic.Value // forced raw body for /api/users/me when set
	meRequests atomic.Int32

	// GET /api/slow signals slowEntered, then answers 401 once slowRelease closes.
	slowEntered chan struct{}
	slowRelease chan struct{}
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		accounts: map[string]fakeAccount{
			"alice": {password: "correct", user: api.User{ID: 1, Username: "alice", Role: api.RoleAdmin, CreatedAt: "2024-01-01T00:00:00"}},
			"bob":   {password: "hunter2", user: api.User{ID: 2, Username: "bob", Role: api.RoleUser, CreatedAt: "2024-02-01T00:00:00"}},
		},
		t:           t,
		slowEntered: make(chan struct{}),
		slowRelease: make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", b.handleToken)
	mux.HandleFunc("GET /api/users/me", b.handleMe)
	mux.HandleFunc("GET /api/slow", func(w http.ResponseWriter, r *http.Request) {
		close(b.slowEntered)
		<-b.slowRelease
		w.WriteHeader(http.StatusUnauthorized)
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) mint(username string, ttl time.Duration) string {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	s, err := tok.SignedString(testSecret)
	require.NoError(b.t, err)
	return s
}

func (b *fakeBackend) handleToken(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		http.Error(w, `{"detail":"form body required"}`, http.StatusUnprocessableEntity)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, `{"detail":"bad form"}`, http.StatusBadRequest)
		return
	}
	acct, ok := b.accounts[r.PostForm.Get("username")]
	if !ok || acct.password != r.PostForm.Get("password") {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect username or password"}`))
		return
	}
	json.NewEncoder(w).Encode(api.TokenResponse{
		AccessToken: b.mint(acct.user.Username, 30*time.Minute),
		TokenType:   "bearer",
	})
}

func (b *fakeBackend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.meRequests.Add(1)
	if status := b.meStatus.Load(); status != 0 {
		w.WriteHeader(int(status))
		return
	}
	if body, ok := b.meBody.Load().(string); ok {
		w.Write([]byte(body))
		return
	}

	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return testSecret, nil })
	if err != nil || !tok.Valid {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
		return
	}
	sub, _ := tok.Claims.GetSubject()
	acct, ok := b.accounts[sub]
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	json.NewEncoder(w).Encode(acct.user)
}

// recordingNavigator is both the Navigator and the pipeline's Locator.
type recordingNavigator struct {
	mu        sync.Mutex
	location  string
	redirects []string
}

func newRecordingNavigator(location string) *recordingNavigator {
	return &recordingNavigator{location: location}
}

func (n *recordingNavigator) HardRedirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = path
	n.redirects = append(n.redirects, path)
}

func (n *recordingNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *recordingNavigator) SetLocation(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = path
}

func (n *recordingNavigator) Redirects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.redirects...)
}

type harness struct {
	backend *fakeBackend
	store   *credstore.MemoryStore
	nav     *recordingNavigator
	client  *api.Client
	manager *Manager
}

// newHarness wires state, pipeline client, and manager the same way the app does.
func newHarness(t *testing.T, persisted string, location string) *harness {
	t.Helper()
	backend := newFakeBackend(t)
	store := credstore.NewMemoryStore()
	if persisted != "" {
		require.NoError(t, store.Set(context.Background(), persisted))
	}
	nav := newRecordingNavigator(location)

	state := NewState()
	client, err := api.NewClient(api.Config{BaseURL: backend.srv.URL, Timeout: 5 * time.Second}, state, nav)
	require.NoError(t, err)

	manager, err := NewManager(context.Background(), state, client, store, nav)
	require.NoError(t, err)
	client.OnUnauthorized(manager.HandleUnauthorized)

	return &harness{backend: backend, store: store, nav: nav, client: client, manager: manager}
}

// assertConsistent checks the isAuthenticated == (token != "") invariant.
func assertConsistent(t *testing.T, s *State) {
	t.Helper()
	snap := s.Snapshot()
	require.Equal(t, snap.Token != "", snap.Authenticated)
	require.Equal(t, snap.Authenticated, s.IsAuthenticated())
	if !snap.Authenticated {
		require.Nil(t, snap.User)
	}
}

// recordingMetrics counts login results and teardown reasons.
type recordingMetrics struct {
	metrics.Nop

	mu        sync.Mutex
	logins    []string
	teardowns []string
}

func (r *recordingMetrics) RecordLogin(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, result)
}

func (r *recordingMetrics) RecordTeardown(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardowns = append(r.teardowns, reason)
}

func (r *recordingMetrics) Logins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.logins...)
}

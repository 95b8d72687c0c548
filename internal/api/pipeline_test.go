// ABOUTME: Tests for the request interceptor pipeline
// ABOUTME: Covers bearer attachment, 401 teardown, login-view guard, and the opt-out flag

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type fixedLocation string

func (f fixedLocation) Location() string { return string(f) }

// newTestClient returns a client pointed at handler and a counter of
// unauthorized hook invocations.
func newTestClient(t *testing.T, handler http.HandlerFunc, token string, location string) (*Client, *atomic.Int32) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, staticToken(token), fixedLocation(location))
	require.NoError(t, err)

	var teardowns atomic.Int32
	client.OnUnauthorized(func(context.Context) { teardowns.Add(1) })
	return client, &teardowns
}

func TestPipeline_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{}`))
	}, "abc.def.ghi", "/")

	require.NoError(t, client.GetJSON(context.Background(), "/api/anything", nil, nil))
	assert.Equal(t, "Bearer abc.def.ghi", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestPipeline_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	var sawHeader bool
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, sawHeader = r.Header["Authorization"]
		w.Write([]byte(`{}`))
	}, "", "/")

	require.NoError(t, client.GetJSON(context.Background(), "/api/anything", nil, nil))
	assert.Empty(t, gotAuth)
	assert.False(t, sawHeader)
}

func TestPipeline_DoesNotMutateCallerRequest(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}, "tok", "/")

	req, err := client.NewRequest(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestPipeline_401TriggersTeardown(t *testing.T) {
	client, teardowns := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}, "expired", "/editor/5")

	err := client.GetJSON(context.Background(), "/api/users/me", nil, nil)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "Could not validate credentials")
	assert.Equal(t, int32(1), teardowns.Load())
}

func TestPipeline_401OnLoginViewDoesNotTeardown(t *testing.T) {
	client, teardowns := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, "expired", LoginPath)

	err := client.GetJSON(context.Background(), "/api/users/me", nil, nil)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(0), teardowns.Load())
}

func TestPipeline_SkipGlobalErrorHandler(t *testing.T) {
	client, teardowns := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, "expired", "/")

	ctx := SkipGlobalErrorHandler(context.Background())
	err := client.GetJSON(ctx, "/api/users/me", nil, nil)

	require.Error(t, err)
	assert.True(t, IsUnauthorized(err), "error still reaches the caller")
	assert.Equal(t, int32(0), teardowns.Load())
}

func TestPipeline_OtherErrorsDoNotTeardown(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		client, teardowns := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}, "tok", "/")

		err := client.GetJSON(context.Background(), "/api/docs/1", nil, nil)
		require.Error(t, err)
		assert.Equal(t, status, StatusCode(err))
		assert.Equal(t, int32(0), teardowns.Load(), "status %d", status)
	}
}

func TestPipeline_NoHookRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)

	err = client.GetJSON(context.Background(), "/api/users/me", nil, nil)
	assert.True(t, IsUnauthorized(err))
}

func TestPipeline_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := NewClient(Config{BaseURL: url, Timeout: time.Second}, staticToken("tok"), fixedLocation("/"))
	require.NoError(t, err)
	var teardowns atomic.Int32
	client.OnUnauthorized(func(context.Context) { teardowns.Add(1) })

	err = client.GetJSON(context.Background(), "/api/users/me", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
	assert.Equal(t, int32(0), teardowns.Load())
}

// foreignServer records the Authorization header it receives.
func foreignServer(t *testing.T, status int) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var seen atomic.Value
	seen.Store("<no request>")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		w.WriteHeader(status)
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestPipeline_RedirectToOtherHostDropsToken(t *testing.T) {
	foreign, seen := foreignServer(t, http.StatusOK)

	var backendAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		backendAuth = r.Header.Get("Authorization")
		http.Redirect(w, r, foreign.URL+"/steal", http.StatusFound)
	}, "secret-token", "/")

	_, err := client.RecentActivities(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", backendAuth)
	assert.Empty(t, seen.Load(), "credential must not follow a cross-host redirect")
}

func TestPipeline_SameHostRedirectKeepsToken(t *testing.T) {
	var finalAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/activity/latest" {
			http.Redirect(w, r, "/api/activity/latest/", http.StatusMovedPermanently)
			return
		}
		finalAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}, "tok", "/")

	_, err := client.RecentActivities(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", finalAuth)
}

func TestPipeline_HTTPClientToOtherHostHasNoToken(t *testing.T) {
	foreign, seen := foreignServer(t, http.StatusOK)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, "secret-token", "/")

	resp, err := client.HTTPClient().Get(foreign.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, seen.Load())
}

func TestPipeline_401FromOtherHostDoesNotTeardown(t *testing.T) {
	foreign, _ := foreignServer(t, http.StatusUnauthorized)
	client, teardowns := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, foreign.URL+"/login", http.StatusFound)
	}, "tok", "/editor/5")

	err := client.GetJSON(context.Background(), "/api/users/me", nil, nil)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(0), teardowns.Load())
}

func TestPipeline_HookSeesSentToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL}, staticToken("old-token"), fixedLocation("/"))
	require.NoError(t, err)

	var got string
	var tagged bool
	client.OnUnauthorized(func(ctx context.Context) { got, tagged = SentToken(ctx) })

	_ = client.GetJSON(context.Background(), "/api/users/me", nil, nil)
	assert.True(t, tagged)
	assert.Equal(t, "old-token", got)

	_, tagged = SentToken(context.Background())
	assert.False(t, tagged)
}

func TestNewPipeline_NilOriginNeverAttaches(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	t.Cleanup(srv.Close)

	p := NewPipeline(nil, nil, staticToken("tok"), nil, nil, nil)
	resp, err := (&http.Client{Transport: p}).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, gotAuth)
}

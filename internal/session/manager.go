// ABOUTME: Session manager, the sole mutator of session state
// ABOUTME: Implements login, profile fetch, and logout with epoch-guarded profile writes

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/2389/addoc-client/internal/api"
	"github.com/2389/addoc-client/internal/credstore"
	"github.com/2389/addoc-client/internal/metrics"
)

// AuthAPI is the subset of the backend the manager calls.
type AuthAPI interface {
	IssueToken(ctx context.Context, username, password string) (*api.TokenResponse, error)
	CurrentUser(ctx context.Context) (*api.User, error)
}

// Navigator performs a hard navigation: in-memory view state is discarded
// and the target is loaded from scratch.
type Navigator interface {
	HardRedirect(path string)
}

// Manager drives the session state machine.
type Manager struct {
	state   *State
	api     AuthAPI
	store   credstore.Store
	nav     Navigator
	logger  *slog.Logger
	metrics metrics.Recorder

	// persistMu orders store writes made by Login against teardown removals.
	persistMu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = rec }
}

// NewManager creates a Manager over state and hydrates the token from
// store. The profile is not hydrated. nav may be nil.
func NewManager(ctx context.Context, state *State, authAPI AuthAPI, store credstore.Store, nav Navigator, opts ...Option) (*Manager, error) {
	m := &Manager{
		state:   state,
		api:     authAPI,
		store:   store,
		nav:     nav,
		logger:  slog.Default(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "session")

	token, err := store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	if token != "" {
		state.setToken(token)
		m.logger.Debug("session restored from credential store")
	}
	return m, nil
}

// State returns the read-only view shared with the pipeline and guard.
func (m *Manager) State() *State {
	return m.state
}

// Token returns the current bearer token.
func (m *Manager) Token() string {
	return m.state.Token()
}

// User returns a copy of the current profile, or nil.
func (m *Manager) User() *api.User {
	return m.state.User()
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.state.IsAuthenticated()
}

// Login exchanges credentials for a token, persists it, and then fetches the
// profile before returning. On any error the session is left as it was.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	resp, err := m.api.IssueToken(ctx, username, password)
	if err != nil {
		if isRejection(err) {
			m.metrics.RecordLogin(metrics.LoginRejected)
			m.logger.Warn("login rejected", "reason", "credentials_rejected", "username", username)
			return fmt.Errorf("%w: %w", ErrCredentialRejected, err)
		}
		m.metrics.RecordLogin(metrics.LoginError)
		return fmt.Errorf("requesting token: %w", err)
	}
	if resp.AccessToken == "" {
		m.metrics.RecordLogin(metrics.LoginError)
		return ErrMissingToken
	}

	if err := m.install(ctx, resp.AccessToken); err != nil {
		m.metrics.RecordLogin(metrics.LoginError)
		m.logger.Warn("login not completed", "username", username, "error", err)
		return err
	}
	m.metrics.RecordLogin(metrics.LoginSuccess)
	m.logger.Info("logged in", "username", username)

	m.FetchUser(ctx)
	return nil
}

// install persists token and then makes it current. A teardown landing in
// between wins: the store write is undone and ErrLoginInterrupted returned.
func (m *Manager) install(ctx context.Context, token string) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	epoch := m.state.currentEpoch()
	if err := m.store.Set(ctx, token); err != nil {
		if m.state.currentEpoch() != epoch {
			m.removeStored(ctx)
		}
		return fmt.Errorf("persisting token: %w", err)
	}
	if !m.state.setTokenIf(token, epoch) {
		m.removeStored(ctx)
		return ErrLoginInterrupted
	}
	return nil
}

// isRejection reports whether the token endpoint refused the credentials.
func isRejection(err error) bool {
	switch api.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusBadRequest, http.StatusForbidden:
		return true
	}
	return false
}

// profileResult is the outcome of one profile fetch.
type profileResult struct {
	user  *api.User
	err   error
	epoch uint64
}

// fetchProfile calls the profile endpoint and classifies the outcome without
// touching state.
func (m *Manager) fetchProfile(ctx context.Context) profileResult {
	epoch := m.state.currentEpoch()
	user, err := m.api.CurrentUser(ctx)
	switch {
	case err == nil && user == nil:
		err = fmt.Errorf("%w: empty profile", ErrProfileUnavailable)
	case api.IsUnauthorized(err):
		err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
	case err != nil:
		err = fmt.Errorf("%w: %w", ErrProfileUnavailable, err)
	}
	return profileResult{user: user, err: err, epoch: epoch}
}

// FetchUser refreshes the profile. It never fails: an error tears the
// session down instead. Results from a fetch that was overtaken by a logout
// or a new login are discarded.
func (m *Manager) FetchUser(ctx context.Context) {
	res := m.fetchProfile(ctx)

	if res.err != nil {
		had, cleared := m.state.clearAt(res.epoch)
		if !cleared {
			m.logger.Debug("discarding stale profile fetch", "error", res.err)
			return
		}
		reason := metrics.ReasonProfileUnavailable
		if errors.Is(res.err, ErrSessionExpired) {
			reason = metrics.ReasonUnauthorized
		}
		m.logger.Warn("profile fetch failed", "reason", reason, "error", res.err)
		m.finishTeardown(ctx, reason, had)
		return
	}

	if !m.state.setUser(res.user, res.epoch) {
		m.logger.Debug("discarding stale profile fetch")
		return
	}
	m.logger.Debug("profile loaded", "username", res.user.Username, "role", string(res.user.Role))
}

// Logout resets the session, removes the persisted token, and hard
// redirects to the login view. Safe to call any number of times.
func (m *Manager) Logout(ctx context.Context) {
	m.finishTeardown(ctx, metrics.ReasonExplicit, m.state.clear())
}

// HandleUnauthorized is the pipeline's 401 hook. A 401 for a request sent
// with a token that is no longer current is ignored.
func (m *Manager) HandleUnauthorized(ctx context.Context) {
	sent, tagged := api.SentToken(ctx)
	if !tagged {
		m.finishTeardown(ctx, metrics.ReasonUnauthorized, m.state.clear())
		return
	}
	had, cleared := m.state.clearIfToken(sent)
	if !cleared {
		m.logger.Debug("ignoring 401 for a superseded token")
		return
	}
	m.finishTeardown(ctx, metrics.ReasonUnauthorized, had)
}

// finishTeardown runs after State has been cleared. If a login is persisting
// its token right now, removal is left to it: it will see the epoch move and
// undo its own write.
func (m *Manager) finishTeardown(ctx context.Context, reason string, had bool) {
	if m.persistMu.TryLock() {
		m.removeStored(ctx)
		m.persistMu.Unlock()
	}

	if had {
		m.metrics.RecordTeardown(reason)
		m.logger.Info("logged out", "reason", reason)
	}

	if m.nav != nil {
		m.nav.HardRedirect(api.LoginPath)
	}
}

// removeStored must not be skipped because the triggering request was
// cancelled.
func (m *Manager) removeStored(ctx context.Context) {
	if err := m.store.Remove(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error("failed to remove persisted token", "error", err)
	}
}

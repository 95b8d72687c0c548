// ABOUTME: In-memory session state shared read-only with the pipeline and guard
// ABOUTME: Only Manager (same package) can mutate it; every mutation advances the epoch

package session

import (
	"sync"

	"github.com/2389/addoc-client/internal/api"
)

// State holds the current token and profile.
type State struct {
	mu    sync.RWMutex
	token string
	user  *api.User
	epoch uint64
}

// Snapshot is a consistent copy of State taken under one lock.
type Snapshot struct {
	Token         string
	User          *api.User
	Authenticated bool
	Epoch         uint64
}

// NewState returns an empty (anonymous) State.
func NewState() *State {
	return &State{}
}

// Token returns the bearer token, or "" when anonymous.
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the profile, or nil if it has not been fetched.
func (s *State) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// IsAuthenticated reports whether a token is held.
func (s *State) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Snapshot returns all fields at once.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Token:         s.token,
		User:          s.user.Clone(),
		Authenticated: s.token != "",
		Epoch:         s.epoch,
	}
}

func (s *State) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// setToken installs a new token. The profile belongs to the old token and is
// dropped. Returns the new epoch.
func (s *State) setToken(token string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = nil
	s.epoch++
	return s.epoch
}

// setTokenIf installs token only if nothing has changed since epoch.
func (s *State) setTokenIf(token string, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.token = token
	s.user = nil
	s.epoch++
	return true
}

// setUser stores the profile if the epoch is still the one the fetch was
// issued under. Reports whether it was stored.
func (s *State) setUser(user *api.User, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.token == "" {
		return false
	}
	s.user = user.Clone()
	return true
}

// clear resets to anonymous. Reports whether a token was held.
func (s *State) clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// clearIfToken resets to anonymous only while token is still the one held.
func (s *State) clearIfToken(token string) (had, cleared bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		return false, false
	}
	return s.clearLocked(), true
}

// clearAt resets to anonymous only if the epoch is still epoch.
func (s *State) clearAt(epoch uint64) (had, cleared bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false, false
	}
	return s.clearLocked(), true
}

func (s *State) clearLocked() bool {
	had := s.token != ""
	s.token = ""
	s.user = nil
	s.epoch++
	return had
}

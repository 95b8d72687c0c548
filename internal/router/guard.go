// ABOUTME: Navigation guard deciding allow or redirect for a resolved route
// ABOUTME: Reads the session once per decision and never fails

package router

import (
	"github.com/2389/addoc-client/internal/session"
)

// SessionView is the read side of the session the guard consults.
type SessionView interface {
	Snapshot() session.Snapshot
}

// Decision is the guard's verdict. An empty Redirect means proceed.
type Decision struct {
	Redirect string
	Reason   string
}

// Allowed reports whether the transition may commit.
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Guard reasons, used in logs.
const (
	ReasonAuthRequired  = "auth_required"
	ReasonAlreadyLogged = "already_authenticated"
	ReasonAdminRequired = "admin_required"
)

// Guard applies the route requirement rules.
type Guard struct{}

// Decide evaluates to against a single snapshot of view.
func (Guard) Decide(to *Match, view SessionView) Decision {
	var snap session.Snapshot
	if view != nil {
		snap = view.Snapshot()
	}
	meta := to.Route.Meta

	switch {
	case meta.RequiresAuth && !snap.Authenticated:
		return Decision{Redirect: LoginPath, Reason: ReasonAuthRequired}
	case to.Route.Path == LoginPath && snap.Authenticated:
		return Decision{Redirect: HomePath, Reason: ReasonAlreadyLogged}
	case meta.RequiresAdmin && !snap.User.IsAdmin():
		return Decision{Redirect: HomePath, Reason: ReasonAdminRequired}
	}
	return Decision{}
}

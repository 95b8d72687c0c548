// ABOUTME: Wire types for the ADDoc endpoints the session layer consumes
// ABOUTME: Mirrors the JSON shapes returned by the backend

package api

// Role is the authorization role carried by a user profile.
type Role string

// Roles known to the ADDoc backend
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the profile returned by GET /api/users/me.
type User struct {
	ID        int     `json:"id"`
	Username  string  `json:"username"`
	Role      Role    `json:"role"`
	Avatar    *string `json:"avatar,omitempty"`
	CreatedAt string  `json:"created_at"`
	LastLogin *string `json:"last_login,omitempty"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Clone returns a deep copy so callers cannot mutate session state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Avatar != nil {
		v := *u.Avatar
		c.Avatar = &v
	}
	if u.LastLogin != nil {
		v := *u.LastLogin
		c.LastLogin = &v
	}
	return &c
}

// TokenResponse is the body returned by POST /api/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Activity is one entry from GET /api/activity/latest.
type Activity struct {
	ID         int    `json:"id"`
	UserName   string `json:"user_name"`
	Action     string `json:"action"`
	TargetType string `json:"target_type"`
	TargetID   *int   `json:"target_id"`
	Details    string `json:"details"`
	Time       string `json:"time"`
}

// Heatmap maps a YYYY-MM-DD date to the number of actions on that day.
type Heatmap map[string]int

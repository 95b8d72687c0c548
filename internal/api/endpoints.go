// ABOUTME: Typed calls for the endpoints the session layer and dashboard use
// ABOUTME: Token issuance, current user, and the activity feed/heatmap

package api

import (
	"context"
	"net/url"
	"strconv"
)

// DefaultActivityLimit matches the backend's own default.
const DefaultActivityLimit = 10

// IssueToken exchanges username and password for a bearer token.
// The request opts out of the global 401 policy: there is no session to
// tear down yet.
func (c *Client) IssueToken(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var resp TokenResponse
	if err := c.PostForm(SkipGlobalErrorHandler(ctx), "/api/token", form, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser fetches the profile of the bearer of the attached token.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.GetJSON(ctx, "/api/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RecentActivities returns the latest activity entries across all users.
// A non-positive limit uses DefaultActivityLimit.
func (c *Client) RecentActivities(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var activities []Activity
	if err := c.GetJSON(ctx, "/api/activity/latest", query, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// ContributionData returns the current user's per-day activity counts.
func (c *Client) ContributionData(ctx context.Context) (Heatmap, error) {
	heatmap := Heatmap{}
	if err := c.GetJSON(ctx, "/api/activity/heatmap", nil, &heatmap); err != nil {
		return nil, err
	}
	return heatmap, nil
}

// ABOUTME: Route descriptors, the default ADDoc route table, and path matching
// ABOUTME: Supports :param and optional :param? segments

package router

import (
	"fmt"
	"net/url"
	"strings"
)

// Well-known view paths.
const (
	HomePath  = "/"
	LoginPath = "/login"
)

// Meta is the requirement bag a route declares.
type Meta struct {
	RequiresAuth  bool
	RequiresAdmin bool
	Title         string
}

// Route is one navigable view.
type Route struct {
	Path string
	Name string
	View string
	Meta Meta
}

// Match is a resolved navigation target.
type Match struct {
	Route  Route
	Path   string
	Params map[string]string

	// RedirectedFrom is the originally requested path when the guard redirected.
	RedirectedFrom string
}

// DefaultRoutes returns the ADDoc route table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/", Name: "home", View: "HomeView", Meta: Meta{Title: "Home"}},
		{Path: "/knowledge", Name: "knowledge", View: "KnowledgeView", Meta: Meta{Title: "Knowledge Base"}},
		{Path: "/search", Name: "search", View: "SearchView", Meta: Meta{Title: "Search"}},
		{Path: "/login", Name: "login", View: "LoginView", Meta: Meta{Title: "Login"}},
		{Path: "/docs/:id", Name: "doc", View: "DocView", Meta: Meta{Title: "Document"}},
		{Path: "/editor/:id?", Name: "editor", View: "EditorView", Meta: Meta{RequiresAuth: true, Title: "Editor"}},
		{Path: "/admin", Name: "admin", View: "AdminView", Meta: Meta{RequiresAuth: true, RequiresAdmin: true, Title: "Admin"}},
	}
}

type segment struct {
	literal  string
	param    string
	optional bool
}

type compiledRoute struct {
	route    Route
	segments []segment
}

func compile(r Route) (compiledRoute, error) {
	if !strings.HasPrefix(r.Path, "/") {
		return compiledRoute{}, fmt.Errorf("route %q: path must start with /", r.Path)
	}
	c := compiledRoute{route: r}
	parts := splitPath(r.Path)
	for i, part := range parts {
		if !strings.HasPrefix(part, ":") {
			c.segments = append(c.segments, segment{literal: part})
			continue
		}
		name := strings.TrimPrefix(part, ":")
		optional := strings.HasSuffix(name, "?")
		name = strings.TrimSuffix(name, "?")
		if name == "" {
			return compiledRoute{}, fmt.Errorf("route %q: empty parameter name", r.Path)
		}
		if optional && i != len(parts)-1 {
			return compiledRoute{}, fmt.Errorf("route %q: only the last segment may be optional", r.Path)
		}
		c.segments = append(c.segments, segment{param: name, optional: optional})
	}
	return c, nil
}

// match reports whether the cleaned path parts satisfy the route.
func (c compiledRoute) match(parts []string) (map[string]string, bool) {
	if len(parts) > len(c.segments) {
		return nil, false
	}
	params := map[string]string{}
	for i, seg := range c.segments {
		if i >= len(parts) {
			if seg.optional {
				continue
			}
			return nil, false
		}
		if seg.param == "" {
			if parts[i] != seg.literal {
				return nil, false
			}
			continue
		}
		value, err := url.PathUnescape(parts[i])
		if err != nil {
			return nil, false
		}
		params[seg.param] = value
	}
	return params, true
}

// cleanPath drops query and fragment and any trailing slash.
func cleanPath(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	if len(raw) > 1 {
		raw = strings.TrimRight(raw, "/")
		if raw == "" {
			raw = "/"
		}
	}
	return raw
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

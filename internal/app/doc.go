// Package app builds the client in dependency order: credential store,
// session state, router, API client, session manager. The API client's 401
// hook is bound to the manager last, which is the only late binding in the
// graph.
package app

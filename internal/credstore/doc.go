// Package credstore persists the single bearer token that survives client
// restarts.
//
// The rest of the client sees only get/set/remove on one key (TokenKey).
// Three backends are provided:
//
//   - FileStore: a 0600 file, by default ~/.config/addoc/token.
//   - SQLiteStore: a credentials table in a modernc.org/sqlite database.
//   - MemoryStore: process-local, for tests and ephemeral sessions.
//
// Get returns an empty string, not an error, when no token is stored.
package credstore

// Package session owns the client-side credential pair (access token and refresh token)
// and its persistence.
//
// # Ownership
//
// A single [Session] value holds the token pair for one client. Requests read credentials
// through it and every mutation (login, refresh, logout, forced re-authentication) goes
// through [Session.Set], [Session.ReplaceAccess] or [Session.Clear]. There is no package-level
// credential state.
//
// # Storage
//
// Tokens are persisted as two named entries, [AccessTokenKey] and [RefreshTokenKey], in a
// [Store]. Three stores are provided: [MemoryStore] for tests and short-lived processes,
// [FileStore] for CLIs that must survive restarts, and [RedisStore] for processes that share
// credentials.
//
// # What this package must NOT do
//
//   - Perform HTTP calls or decide when a token must be refreshed.
//   - Inspect or validate token contents (tokens are opaque here).
package session

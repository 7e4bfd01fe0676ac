// Package goShop is an authenticated client for the storefront REST API: product
// browsing, cart, checkout, account and admin order views.
//
// The client is safe for concurrent use once built through [Builder.Build]. Every call is
// a blocking operation bounded by its context and by the per-attempt timeout from
// [Config].
//
// # Credentials
//
// Access and refresh tokens are owned by a [session.Session] held by the client. Calls
// attach "Authorization: Bearer <access>" when an access token is present. A 401 response
// triggers at most one refresh ("POST /auth/token/refresh/") followed by at most one retry of
// the original request. Concurrent 401s share a single in-flight refresh. When the refresh
// fails, or no refresh token is held, both tokens are cleared, the [LoginRedirector] is
// invoked and the call returns an [*APIError] with status 401 wrapping [ErrSessionExpired].
//
// # Errors
//
// Every failure surfaced by the client is an [*APIError] carrying a non-empty message, an
// HTTP status (500 when no response was received) and optional server details. Use
// [errors.Is] with the package sentinels and [errors.As] to reach the [*APIError].
//
// # Query cache
//
// Read operations are cached under hierarchical [QueryKey] values with per-key stale
// times, and mutations invalidate the keys they affect. The cache backend is pluggable
// (see package cache); logout and session end clear it.
package goShop

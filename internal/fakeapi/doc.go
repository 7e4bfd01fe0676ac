// Package fakeapi is an in-memory storefront backend for tests, the load generator and
// local development.
//
// It serves the same routes, payloads and error shapes as the real backend, issues real
// JWTs through package jwt, stores argon2id password hashes and guards routes with package
// middleware. Tests drive it through fault injection ([Server.ExpireAccessTokens],
// [Server.FailRefresh], [Server.SetRefreshDelay]) and inspect it through
// [Server.Calls] and [Server.Requests].
package fakeapi

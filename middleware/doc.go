// Package middleware guards storefront backend routes with bearer access tokens.
//
// # Guards
//
//   - [Guard]: verifies "Authorization: Bearer <token>" through a [Verifier] and injects
//     the claims into the request context.
//   - [RequireRole]: rejects requests whose claims lack a role; it must run after Guard.
//
// Rejections are JSON bodies in the backend's error shape ({"detail", "code"}), which is
// what the storefront client normalizes into its error type.
//
// This package does not issue tokens and makes no decision beyond pass/reject.
package middleware

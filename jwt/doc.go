// Package jwt issues, verifies and inspects the storefront's bearer tokens.
//
// Tokens follow the backend's claim layout: a user_id claim (numeric or string), a
// token_type claim distinguishing access from refresh tokens, and the registered exp/iat/jti
// claims.
//
// The client side only ever calls [Inspect], which reads claims without verifying the
// signature. [Manager] issues and verifies tokens and is used by the fake backend and the
// bearer middleware.
package jwt

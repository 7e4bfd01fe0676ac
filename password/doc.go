// Package password hashes and verifies account passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The storefront client never sees password hashes; this package backs the account store
// of the fake backend used in tests and local development.
package password

// Package audit delivers client events (logins, refreshes, session expiry, orders) to
// pluggable sinks.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, NATS, no-op).
//   - [Dispatcher]: buffered async relay, drop-if-full or blocking, with a bounded drain on Close.
//   - [Event]: structured record with timestamp, type, user, request ID and metadata.
//
// This package does not decide which events to emit; the client does. It must not import
// goShop.
package audit

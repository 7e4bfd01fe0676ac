// Package rate implements a redis-backed fixed-window failure counter.
//
// Each key is an INCR counter whose TTL is set on the first failure of a window. A key
// is blocked once its count reaches Config.MaxAttempts and stays blocked until the key
// expires. The fake backend uses it to throttle failed logins per username.
package rate

// Package prometheus exposes goShop client metrics in the Prometheus text format.
//
// [New] wraps a *goShop.Client; [Exporter.Handler] serves every goshop_*_total counter,
// the goshop_request_latency_seconds histogram and goshop_audit_dropped_total. Nothing
// is registered globally; callers mount the handler themselves.
package prometheus

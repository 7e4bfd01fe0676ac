// Package otel bridges goShop client metrics to an OpenTelemetry meter.
//
// Counters become Int64ObservableCounter instruments. The latency histogram becomes one
// cumulative gauge per bucket plus a count gauge. All values come from a single
// snapshot taken in the meter callback; the exporter never mutates the client.
package otel

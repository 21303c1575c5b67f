// Package health tracks delivery-path health with one circuit breaker per
// target.
//
// The delivery engine reports every outcome here; once a target accumulates
// enough consecutive failures its circuit opens and further deliveries fail
// fast with a circuit-open error. While any circuit is open the monitor
// probes the target every five seconds; a successful probe half-opens the
// circuit and admits a single trial delivery whose outcome closes or
// re-opens it. Report returns immutable snapshots for observability.
package health

// Package metric provides Prometheus metrics for the Mulligan client.
//
// Each process owns one Registry. The CLI never serves /metrics; the
// counters are dumped on demand by the "metrics" command and asserted in
// tests.
package metric

// Package metrics exposes Prometheus counters for reconciliation, provider
// calls and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ddnsd"

// Reconciles counts address reconciliations by record type and result
// (unchanged, changed, or an outcome error code).
var Reconciles = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "reconcile_total",
	Help:      "Counter of address reconciliations.",
}, []string{"type", "result"})

// ProviderCalls counts remote provider operations by operation and result.
var ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "provider_calls_total",
	Help:      "Counter of DNS provider API calls.",
}, []string{"op", "result"})

// APIRequests counts HTTP API requests by method and status.
var APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "api_requests_total",
	Help:      "Counter of HTTP API requests.",
}, []string{"method", "status"})

// DNSQueries counts queries answered by the built-in DNS server by query
// type and response code.
var DNSQueries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "dns_queries_total",
	Help:      "Counter of DNS queries answered.",
}, []string{"qtype", "rcode"})

// Result labels for ProviderCalls.
const (
	ResultOK           = "ok"
	ResultRejected     = "rejected"
	ResultUnauthorized = "unauthorized"
	ResultError        = "error"
)

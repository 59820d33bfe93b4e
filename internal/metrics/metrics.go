// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is private so tests and embedders don't collide with the
	// default global registry.
	Registry = prometheus.NewRegistry()

	// GroupsCreated counts successful CreateGroup calls.
	GroupsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "santa_groups_created_total",
		Help: "Number of groups created",
	})
	// ParticipantsPerGroup tracks group sizes at creation.
	ParticipantsPerGroup = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "santa_group_participants",
		Help:    "Number of participants per created group",
		Buckets: []float64{2, 3, 5, 8, 13, 21, 34, 55, 100},
	})
	// Reveals counts successful reveals, split by whether it was the
	// participant's first.
	Reveals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "santa_reveals_total",
		Help: "Number of successful reveal lookups",
	}, []string{"first"})
	// RPCRequests counts RPC calls by procedure and result code.
	RPCRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "santa_rpc_requests_total",
		Help: "Number of RPC calls received",
	}, []string{"procedure", "code"})
	// RPCDuration measures how long RPC handling takes.
	RPCDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "santa_rpc_duration_seconds",
		Help:    "Histogram of RPC latencies",
		Buckets: prometheus.DefBuckets,
	}, []string{"procedure"})

	bindOnce sync.Once
)

func bind() {
	bindOnce.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			GroupsCreated,
			ParticipantsPerGroup,
			Reveals,
			RPCRequests,
			RPCDuration,
		)
	})
}

// ObserveReveal records one successful reveal.
func ObserveReveal(first bool) {
	Reveals.WithLabelValues(strconv.FormatBool(first)).Inc()
}

// ObserveGroupCreated records one created group of n participants.
func ObserveGroupCreated(n int) {
	GroupsCreated.Inc()
	ParticipantsPerGroup.Observe(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	bind()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

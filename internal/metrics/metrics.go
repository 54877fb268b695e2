package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	fanoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recbridge",
			Subsystem: "aggregate",
			Name:      "fanout_total",
			Help:      "Number of fan-out operations executed, by operation and vendor filter.",
		}, []string{"operation", "vendor"},
	)
	outcomeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recbridge",
			Subsystem: "aggregate",
			Name:      "outcomes_total",
			Help:      "Per-instance outcomes collected during fan-outs, by operation and status.",
		}, []string{"operation", "status"},
	)
	instanceUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "recbridge",
			Subsystem: "backend",
			Name:      "instance_up",
			Help:      "Last probe result per instance (1 = online, 0 = offline or error).",
		}, []string{"vendor", "instance"},
	)
	registeredInstances = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "recbridge",
			Subsystem: "backend",
			Name:      "registered_instances",
			Help:      "Currently registered instances per vendor.",
		}, []string{"vendor"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{fanoutTotal, outcomeTotal, instanceUp, registeredInstances}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the
// DefaultGatherer. The caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncFanout(operation, vendor string) {
	if regOK.Load() {
		if vendor == "" {
			vendor = "any"
		}
		fanoutTotal.WithLabelValues(operation, vendor).Inc()
	}
}

func IncOutcome(operation, status string) {
	if regOK.Load() {
		outcomeTotal.WithLabelValues(operation, status).Inc()
	}
}

func SetInstanceUp(vendor, instance string, up bool) {
	if regOK.Load() {
		var v float64
		if up {
			v = 1
		}
		instanceUp.WithLabelValues(vendor, instance).Set(v)
	}
}

func SetRegisteredInstances(vendor string, n int) {
	if regOK.Load() {
		registeredInstances.WithLabelValues(vendor).Set(float64(n))
	}
}

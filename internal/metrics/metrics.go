// Package metrics collects and exposes Prometheus metrics for the gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers gateway metrics. The hub and handlers record into it;
// the app server exposes it on /metrics.
type Collector struct {
	registry *prometheus.Registry

	openConnections prometheus.Gauge
	onlineUsers     prometheus.Gauge
	messagesRouted  *prometheus.CounterVec
	fanoutDelivered prometheus.Counter
	submitFailures  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on a fresh
// registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		openConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatline_open_connections",
			Help: "Number of currently open websocket connections",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatline_online_users",
			Help: "Number of users with at least one open connection",
		}),
		messagesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatline_messages_routed_total",
			Help: "Messages accepted and persisted, by kind",
		}, []string{"kind"}),
		fanoutDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatline_fanout_deliveries_total",
			Help: "Outbound room deliveries",
		}),
		submitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatline_submit_failures_total",
			Help: "Rejected or failed submits, by reason code",
		}, []string{"code"}),
	}

	registry.MustRegister(
		c.openConnections,
		c.onlineUsers,
		c.messagesRouted,
		c.fanoutDelivered,
		c.submitFailures,
	)
	return c
}

func (c *Collector) ConnOpened()  { c.openConnections.Inc() }
func (c *Collector) ConnClosed()  { c.openConnections.Dec() }
func (c *Collector) UserOnline()  { c.onlineUsers.Inc() }
func (c *Collector) UserOffline() { c.onlineUsers.Dec() }

// RecordMessageRouted counts a persisted message; kind is "direct" or
// "channel".
func (c *Collector) RecordMessageRouted(kind string) {
	c.messagesRouted.WithLabelValues(kind).Inc()
}

// RecordFanout counts deliveries into recipient rooms.
func (c *Collector) RecordFanout(rooms int) {
	c.fanoutDelivered.Add(float64(rooms))
}

// RecordSubmitFailure counts a submit rejected or aborted with the given
// reason code.
func (c *Collector) RecordSubmitFailure(code string) {
	c.submitFailures.WithLabelValues(code).Inc()
}

// Handler returns the HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

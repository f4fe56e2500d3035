// Package metrics implements the server's Prometheus instrumentation via a
// Collector satisfying servercore.MetricsSink.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements servercore.MetricsSink on top of a dedicated
// Prometheus registry (not the global default, so multiple servers in one
// process — e.g. in tests — never collide on metric registration).
type Collector struct {
	registry *prometheus.Registry

	peersConnected  prometheus.Gauge
	framesSent      prometheus.Counter
	framesReceived  prometheus.Counter
	retransmissions prometheus.Counter
	peersEvicted    prometheus.Counter
	roomOccupancy   *prometheus.GaugeVec
}

// NewCollector constructs a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		peersConnected: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "c2w_peers_connected",
			Help: "Number of peers currently admitted to the system.",
		}),
		framesSent: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "c2w_frames_sent_total",
			Help: "Total frames transmitted to peers (including retransmissions).",
		}),
		framesReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "c2w_frames_received_total",
			Help: "Total frames received from peers.",
		}),
		retransmissions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "c2w_retransmissions_total",
			Help: "Total retransmission attempts performed by the reliability layer.",
		}),
		peersEvicted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "c2w_peers_evicted_total",
			Help: "Total peers evicted after retransmission exhaustion.",
		}),
		roomOccupancy: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "c2w_room_occupancy",
			Help: "Current number of users present in each room.",
		}, []string{"room"}),
	}
	return c
}

func (c *Collector) PeerConnected()    { c.peersConnected.Inc() }
func (c *Collector) PeerDisconnected() { c.peersConnected.Dec() }
func (c *Collector) PeerEvicted() {
	c.peersConnected.Dec()
	c.peersEvicted.Inc()
}
func (c *Collector) FrameSent()       { c.framesSent.Inc() }
func (c *Collector) FrameReceived()   { c.framesReceived.Inc() }
func (c *Collector) Retransmission() { c.retransmissions.Inc() }
func (c *Collector) RoomOccupancy(room string, n int) {
	c.roomOccupancy.WithLabelValues(room).Set(float64(n))
}

// Handler exposes the collector's registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

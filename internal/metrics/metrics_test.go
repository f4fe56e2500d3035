package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectorCountersIncrement(t *testing.T) {
	c := NewCollector()
	c.PeerConnected()
	c.PeerConnected()
	c.FrameSent()
	c.FrameReceived()
	c.Retransmission()
	c.RoomOccupancy("MainRoom", 2)
	c.PeerEvicted()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, metric := range []string{
		"c2w_peers_connected",
		"c2w_frames_sent_total",
		"c2w_frames_received_total",
		"c2w_retransmissions_total",
		"c2w_peers_evicted_total",
		"c2w_room_occupancy",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("expected metrics output to contain %q, got:\n%s", metric, body)
		}
	}
}

func TestCollectorPeerEvictedDecrementsConnected(t *testing.T) {
	c := NewCollector()
	c.PeerConnected()
	c.PeerEvicted()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "c2w_peers_connected 0") {
		t.Errorf("expected peers_connected back to 0 after eviction, got:\n%s", body)
	}
}

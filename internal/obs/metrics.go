// Package obs holds the Prometheus collectors shared by the token service and
// the presence relay.
package obs

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demeet_tokens_issued_total",
		Help: "Token pairs minted by login, OAuth login or rotation.",
	})

	TokenRotations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demeet_token_rotations_total",
			Help: "Refresh token rotations by outcome.",
		},
		[]string{"outcome"},
	)

	RelayEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demeet_relay_events_total",
			Help: "Inbound relay events by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	RelayDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demeet_relay_dropped_frames_total",
		Help: "Outbound frames not delivered because a member was slow.",
	})

	ActiveRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "demeet_active_rooms",
		Help: "Rooms with at least one joined participant.",
	})

	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "demeet_connected_sessions",
		Help: "Open relay connections.",
	})
)

var initOnce sync.Once

// Init registers the collectors in the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(TokensIssued, TokenRotations, RelayEvents, RelayDropped, ActiveRooms, ConnectedSessions)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

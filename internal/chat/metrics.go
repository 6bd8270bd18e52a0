package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	connectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connected_sessions",
		Help: "Number of currently registered sessions",
	})

	commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_commands_total",
		Help: "Total commands dispatched by verb",
	}, []string{"verb"})

	fileBytesRelayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_file_bytes_relayed_total",
		Help: "Total file payload bytes forwarded between sessions",
	})
)

func init() {
	prometheus.MustRegister(connectedSessions)
	prometheus.MustRegister(commandsTotal)
	prometheus.MustRegister(fileBytesRelayed)
}

// Package config loads relay configuration from the environment.
package config

import (
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of the relay server.
type Config struct {
	TCPAddr     string `envconfig:"RELAY_TCP_ADDR" default:":6924"`
	WSAddr      string `envconfig:"RELAY_WS_ADDR" default:":6925"`
	UDPAddr     string `envconfig:"RELAY_UDP_ADDR" default:":6926"`
	MetricsAddr string `envconfig:"RELAY_METRICS_ADDR" default:":9090"`

	// MaxDatagramBytes caps file payloads on the datagram transport.
	MaxDatagramBytes int `envconfig:"RELAY_MAX_DATAGRAM_BYTES" default:"4096"`

	// SendQueueSize is the per-client outbound frame queue on stream
	// transports; a full queue drops instead of blocking other sessions.
	SendQueueSize int `envconfig:"RELAY_SEND_QUEUE_SIZE" default:"32"`

	LogLevel string `envconfig:"RELAY_LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

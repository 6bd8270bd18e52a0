package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmatos/relay/internal/chat"
	"github.com/dmatos/relay/internal/config"
	"github.com/dmatos/relay/internal/transport/tcp"
	"github.com/dmatos/relay/internal/transport/udp"
	"github.com/dmatos/relay/internal/transport/ws"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	registry := chat.NewRegistry(logger)
	router := chat.NewRouter(registry, logger)
	relay := chat.NewRelay(registry, logger)

	// The two dispatchers share one directory, so a stream user can message
	// a datagram user and vice versa; only the per-transport observable
	// behaviors differ.
	streamDispatcher := chat.NewDispatcher(registry, router, relay, chat.Options{}, logger)
	datagramDispatcher := chat.NewDispatcher(registry, router, relay, chat.Options{
		EnableBroadcast: true,
		AckMessages:     true,
		QuitAck:         "You have logged out",
	}, logger)

	tcpServer := tcp.New(cfg.TCPAddr, streamDispatcher, cfg.SendQueueSize, logger)
	wsServer := ws.New(cfg.WSAddr, streamDispatcher, cfg.SendQueueSize, logger)
	udpServer := udp.New(cfg.UDPAddr, datagramDispatcher, cfg.MaxDatagramBytes, logger)

	go func() {
		if err := tcpServer.Start(); err != nil {
			logger.Error("TCP server failed", "error", err)
			os.Exit(1)
		}
	}()
	go func() {
		if err := wsServer.Start(); err != nil {
			logger.Error("WebSocket server failed", "error", err)
			os.Exit(1)
		}
	}()
	go func() {
		if err := udpServer.Start(); err != nil {
			logger.Error("UDP server failed", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			logger.Warn("metrics endpoint failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	tcpServer.Stop()
	wsServer.Stop()
	udpServer.Stop()
	logger.Info("shutdown complete")
}

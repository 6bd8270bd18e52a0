// Package tcp provides the TCP stream transport for the relay server.
package tcp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/dmatos/relay/internal/chat"
	"github.com/dmatos/relay/pkg/protocol"
)

// Server accepts TCP connections and runs one session loop per client.
type Server struct {
	address    string
	listener   net.Listener
	dispatcher *chat.Dispatcher
	logger     *slog.Logger
	queueSize  int
	quit       chan struct{}
	wg         sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New creates a TCP server that feeds the shared dispatcher.
func New(address string, dispatcher *chat.Dispatcher, queueSize int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:    address,
		dispatcher: dispatcher,
		logger:     logger,
		queueSize:  queueSize,
		quit:       make(chan struct{}),
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start starts accepting connections. Blocks until Stop is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}
	s.listener = listener

	s.logger.Info("TCP server started", "addr", listener.Addr().String())

	for {
		select {
		case <-s.quit:
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-s.quit:
					return nil
				default:
					s.logger.Warn("failed to accept connection", "error", err)
					continue
				}
			}

			s.wg.Add(1)
			go s.handleConn(conn)
		}
	}
}

// Stop stops the server and waits for all session loops to finish.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	peer := chat.NewFramePeer(conn.RemoteAddr().String(), s.queueSize)
	state := &chat.ClientState{Peer: peer}

	s.logger.Info("client connected", "addr", peer.Addr())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		fw := protocol.NewFrameWriter(conn)
		for msg := range peer.Outgoing() {
			if err := fw.WriteFrame(msg); err != nil {
				s.logger.Warn("failed to write to client", "addr", peer.Addr(), "error", err)
				return
			}
		}
	}()

	defer func() {
		s.dispatcher.Teardown(state)
		peer.Close()
		<-writerDone
		conn.Close()
		s.logger.Info("client disconnected", "addr", peer.Addr())
	}()

	if err := s.dispatcher.ServeStream(state, protocol.NewFrameReader(conn)); err != nil {
		if !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("session ended with error", "addr", peer.Addr(), "error", err)
		}
	}
}

// Package ws provides the WebSocket stream transport for the relay server.
// Each binary WebSocket message carries one protocol frame; the WebSocket
// layer supplies the framing a raw TCP stream needs a length prefix for.
package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dmatos/relay/internal/chat"
	"github.com/dmatos/relay/pkg/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Server accepts WebSocket connections and runs one session loop per client.
type Server struct {
	address    string
	listener   net.Listener
	server     *http.Server
	dispatcher *chat.Dispatcher
	logger     *slog.Logger
	queueSize  int
	quit       chan struct{}
	wg         sync.WaitGroup

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// New creates a WebSocket server that feeds the shared dispatcher.
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
		conns:      make(map[*websocket.Conn]struct{}),
	}
}

// Start starts accepting connections. Blocks until Stop is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.server = &http.Server{Handler: mux}

	s.logger.Info("WebSocket server started", "addr", listener.Addr().String())

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the server and waits for all session loops to finish.
func (s *Server) Stop() {
	close(s.quit)
	if s.server != nil {
		s.server.Shutdown(context.Background())
	}

	// Shutdown does not cover hijacked websocket connections.
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

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", "addr", r.RemoteAddr, "error", err)
		return
	}

	s.wg.Add(1)
	go s.handleConn(conn, r.RemoteAddr)
}

func (s *Server) handleConn(conn *websocket.Conn, addr string) {
	defer s.wg.Done()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	peer := chat.NewFramePeer(addr, s.queueSize)
	state := &chat.ClientState{Peer: peer}

	s.logger.Info("client connected", "addr", addr, "transport", "websocket")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range peer.Outgoing() {
			data, err := msg.Encode()
			if err != nil {
				s.logger.Warn("failed to encode frame", "addr", addr, "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				s.logger.Warn("failed to write to client", "addr", addr, "error", err)
				return
			}
		}
	}()

	defer func() {
		s.dispatcher.Teardown(state)
		peer.Close()
		<-writerDone
		conn.Close()
		s.logger.Info("client disconnected", "addr", addr, "transport", "websocket")
	}()

	if err := s.dispatcher.ServeStream(state, &frameConn{conn: conn}); err != nil {
		s.logger.Warn("session ended with error", "addr", addr, "error", err)
	}
}

// frameConn adapts a websocket.Conn to chat.FrameConn.
type frameConn struct {
	conn *websocket.Conn
}

func (c *frameConn) ReadFrame() (*protocol.Message, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		var msg protocol.Message
		if err := msg.Decode(data); err != nil {
			return nil, err
		}
		return &msg, nil
	}
}

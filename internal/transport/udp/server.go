// Package udp provides the datagram transport for the relay server. One
// socket serves every participant; sessions are identified purely by their
// network address, and the server tracks a per-address state machine so a
// /file command can be followed by one raw payload datagram.
package udp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/dmatos/relay/internal/chat"
)

// DefaultMaxPayload is the largest file payload a datagram session accepts.
// Matches the receive buffer the protocol has always used; anything larger
// is rejected explicitly rather than silently truncated.
const DefaultMaxPayload = 4096

// Server runs the single receive loop of the datagram transport.
type Server struct {
	address    string
	conn       *net.UDPConn
	dispatcher *chat.Dispatcher
	logger     *slog.Logger
	maxPayload int

	mu      sync.Mutex
	clients map[string]*clientState

	quit chan struct{}
	done chan struct{}
}

// clientState is the per-address dispatch state: the bound username, the
// outbound peer, and the armed transfer when the next datagram is a payload.
type clientState struct {
	chat.ClientState
	pending *chat.Transfer
}

// New creates a datagram server that feeds the shared dispatcher.
func New(address string, dispatcher *chat.Dispatcher, maxPayload int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Server{
		address:    address,
		dispatcher: dispatcher,
		logger:     logger,
		maxPayload: maxPayload,
		clients:    make(map[string]*clientState),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start starts the receive loop. Blocks until Stop is called.
func (s *Server) Start() error {
	addr, err := net.ResolveUDPAddr("udp", s.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to start UDP server: %w", err)
	}
	s.conn = conn

	s.logger.Info("UDP server started", "addr", conn.LocalAddr().String(), "max_payload", s.maxPayload)

	s.readLoop()
	return nil
}

// Stop stops the receive loop.
func (s *Server) Stop() {
	close(s.quit)
	if s.conn == nil {
		return
	}
	s.conn.Close()
	<-s.done
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.conn != nil {
		return s.conn.LocalAddr().String()
	}
	return ""
}

func (s *Server) readLoop() {
	defer close(s.done)

	// One spare byte past the payload cap so an over-limit datagram is
	// detected and rejected instead of silently truncated at the cap.
	buf := make([]byte, s.maxPayload+1)

	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("failed to read datagram", "error", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		s.handleDatagram(addr, data)
	}
}

// handleDatagram processes one datagram. The receive loop is single-threaded,
// so per-address state needs no locking beyond the clients map itself.
func (s *Server) handleDatagram(addr *net.UDPAddr, data []byte) {
	st := s.state(addr)

	if st.pending != nil {
		t := st.pending
		st.pending = nil
		if len(data) > s.maxPayload {
			// The receive buffer is one byte larger than the cap, so an
			// over-limit payload shows up here instead of arriving truncated.
			s.logger.Warn("file payload over limit", "transfer_id", t.ID, "addr", addr.String(), "bytes", len(data))
			s.reply(addr, "File too large")
			return
		}
		t.Body = data
		s.reply(addr, s.dispatcher.CompleteFile(&st.ClientState, t).Reply)
		return
	}

	res := s.dispatcher.Dispatch(&st.ClientState, string(data))
	st.pending = res.AwaitFile
	s.reply(addr, res.Reply)
	if res.Quit {
		s.forget(addr)
	}
}

func (s *Server) state(addr *net.UDPAddr) *clientState {
	key := addr.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.clients[key]
	if !ok {
		st = &clientState{
			ClientState: chat.ClientState{
				Peer: &peer{conn: s.conn, addr: addr, limit: s.maxPayload},
			},
		}
		s.clients[key] = st
	}
	return st
}

func (s *Server) forget(addr *net.UDPAddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, addr.String())
}

func (s *Server) reply(addr *net.UDPAddr, text string) {
	if text == "" {
		return
	}
	if _, err := s.conn.WriteToUDP([]byte(text), addr); err != nil {
		s.logger.Warn("failed to send reply", "addr", addr.String(), "error", err)
	}
}

// peer is the outbound handle of a datagram session. Writes go through the
// shared server socket to the session's address; WriteToUDP is safe for
// concurrent use, so routed traffic from any transport can use it directly.
type peer struct {
	conn  *net.UDPConn
	addr  *net.UDPAddr
	limit int
}

// SendLine implements chat.Peer.
func (p *peer) SendLine(line string) error {
	_, err := p.conn.WriteToUDP([]byte(line), p.addr)
	return err
}

// SendFile implements chat.Peer. The payload travels as one raw datagram;
// the announcing control line has already armed the receiving client.
func (p *peer) SendFile(sender, filename string, data []byte) error {
	_, err := p.conn.WriteToUDP(data, p.addr)
	return err
}

// Addr implements chat.Peer.
func (p *peer) Addr() string {
	return p.addr.String()
}

// FileLimit implements chat.Peer.
func (p *peer) FileLimit() int {
	return p.limit
}

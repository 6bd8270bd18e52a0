package chat

import (
	"sync"

	"github.com/dmatos/relay/pkg/protocol"
)

// FramePeer is the outbound handle for stream transports. Callers enqueue
// frames; the owning transport drains Outgoing from a single writer
// goroutine. Enqueueing is non-blocking so a slow recipient can never stall
// the goroutine of another session.
type FramePeer struct {
	addr string

	mu       sync.Mutex
	closed   bool
	outgoing chan *protocol.Message
}

// NewFramePeer creates a FramePeer with the given send queue capacity.
func NewFramePeer(addr string, buffer int) *FramePeer {
	if buffer <= 0 {
		buffer = 32
	}
	return &FramePeer{
		addr:     addr,
		outgoing: make(chan *protocol.Message, buffer),
	}
}

// SendLine implements Peer.
func (p *FramePeer) SendLine(line string) error {
	return p.send(&protocol.Message{Type: protocol.MessageTypeText, Content: line})
}

// SendFile implements Peer.
func (p *FramePeer) SendFile(sender, filename string, data []byte) error {
	return p.send(&protocol.Message{
		Type:     protocol.MessageTypeFile,
		Sender:   sender,
		Filename: filename,
		Body:     data,
	})
}

// Addr implements Peer.
func (p *FramePeer) Addr() string {
	return p.addr
}

// FileLimit implements Peer. Stream transports carry payloads of any size
// up to the frame limit.
func (p *FramePeer) FileLimit() int {
	return 0
}

// Outgoing returns the queue the owning transport writes to the wire.
func (p *FramePeer) Outgoing() <-chan *protocol.Message {
	return p.outgoing
}

// Close closes the queue. Sends after Close fail with ErrPeerClosed instead
// of panicking, covering deliveries that raced with teardown.
func (p *FramePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.outgoing)
}

func (p *FramePeer) send(msg *protocol.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPeerClosed
	}
	select {
	case p.outgoing <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

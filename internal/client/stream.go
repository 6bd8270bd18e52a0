// Package client implements the client-side session loops: one path sends
// user commands, a concurrent path receives and renders inbound traffic,
// including relayed files.
package client

import (
	"fmt"
	"net"
	"os"

	"github.com/dmatos/relay/pkg/protocol"
)

// StreamClient talks to the relay server over the TCP stream transport.
type StreamClient struct {
	address  string
	conn     net.Conn
	fw       *protocol.FrameWriter
	incoming chan *protocol.Message
}

// NewStream creates a client for the given server address.
func NewStream(address string) *StreamClient {
	return &StreamClient{
		address:  address,
		incoming: make(chan *protocol.Message, 16),
	}
}

// Connect dials the server and starts the receive path.
func (c *StreamClient) Connect() error {
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	c.conn = conn
	c.fw = protocol.NewFrameWriter(conn)

	go c.readLoop()
	return nil
}

// Incoming returns the channel of inbound frames. It is closed when the
// connection ends.
func (c *StreamClient) Incoming() <-chan *protocol.Message {
	return c.incoming
}

// SendCommand sends one command line to the server.
func (c *StreamClient) SendCommand(line string) error {
	return c.fw.WriteFrame(&protocol.Message{
		Type:    protocol.MessageTypeCommand,
		Content: line,
	})
}

// SendFile reads the local file at path and sends it to target: first the
// /file command, then the payload frame. A local read failure emits no
// network traffic at all.
func (c *StreamClient) SendFile(target, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := c.SendCommand("/file " + target + " " + path); err != nil {
		return err
	}
	return c.fw.WriteFrame(&protocol.Message{
		Type:     protocol.MessageTypeFile,
		Filename: path,
		Body:     data,
	})
}

// Close tears down the connection, which also stops the receive path.
func (c *StreamClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *StreamClient) readLoop() {
	defer close(c.incoming)

	fr := protocol.NewFrameReader(c.conn)
	for {
		msg, err := fr.ReadFrame()
		if err != nil {
			return
		}
		c.incoming <- msg
	}
}

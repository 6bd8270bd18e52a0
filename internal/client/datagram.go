package client

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// filePrefix is the control line that announces an inbound file; the next
// datagram from the server is that file's payload.
const filePrefix = "FILE INCOMING from "

// Inbound is one unit received over the datagram transport: a text line, or
// a file payload when FileFrom is set.
type Inbound struct {
	Line     string
	FileFrom string
	Data     []byte
}

// DatagramClient talks to the relay server over the UDP datagram transport.
type DatagramClient struct {
	address  string
	conn     net.Conn
	incoming chan Inbound
}

// NewDatagram creates a client for the given server address.
func NewDatagram(address string) *DatagramClient {
	return &DatagramClient{
		address:  address,
		incoming: make(chan Inbound, 16),
	}
}

// Connect opens the socket and starts the receive path.
func (c *DatagramClient) Connect() error {
	conn, err := net.Dial("udp", c.address)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	c.conn = conn

	go c.readLoop()
	return nil
}

// Incoming returns the channel of inbound units. It is closed when the
// socket is closed.
func (c *DatagramClient) Incoming() <-chan Inbound {
	return c.incoming
}

// SendCommand sends one command line as a single datagram.
func (c *DatagramClient) SendCommand(line string) error {
	_, err := c.conn.Write([]byte(line))
	return err
}

// SendFile reads the local file at path and sends it to target: first the
// /file command, then the raw payload datagram. A local read failure emits
// no network traffic at all.
func (c *DatagramClient) SendFile(target, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := c.SendCommand("/file " + target + " " + path); err != nil {
		return err
	}
	_, err = c.conn.Write(data)
	return err
}

// Close tears down the socket, which also stops the receive path.
func (c *DatagramClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// readLoop runs the receive state machine: a FILE INCOMING control line arms
// it so that the following datagram is surfaced as a file payload rather
// than text.
func (c *DatagramClient) readLoop() {
	defer close(c.incoming)

	buf := make([]byte, 65536)
	awaiting := ""
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		if awaiting != "" {
			c.incoming <- Inbound{FileFrom: awaiting, Data: data}
			awaiting = ""
			continue
		}

		line := string(data)
		if strings.HasPrefix(line, filePrefix) {
			awaiting = strings.TrimPrefix(line, filePrefix)
		}
		c.incoming <- Inbound{Line: line}
	}
}

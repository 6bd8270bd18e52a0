// Package chat provides the core relay logic shared by all transports:
// the session registry, command dispatch, message routing and file relay.
package chat

import "errors"

// Sentinel errors surfaced to dispatch as user-visible replies.
var (
	ErrUsernameTaken   = errors.New("username already exists")
	ErrInvalidUsername = errors.New("invalid username")
	ErrUserNotFound    = errors.New("user not found")
	ErrFileTooLarge    = errors.New("file too large")
	ErrPeerClosed      = errors.New("peer closed")
	ErrSendQueueFull   = errors.New("peer send queue full")
)

// Peer is the outbound side of a connected participant. Transports implement
// it; the registry owns the binding from username to Peer, and routing and
// relay code borrows it for the duration of one delivery.
type Peer interface {
	// SendLine delivers one text line to the participant.
	SendLine(line string) error

	// SendFile delivers one complete file payload. The control line
	// announcing the transfer is sent separately via SendLine.
	SendFile(sender, filename string, data []byte) error

	// Addr returns the remote address for logging.
	Addr() string

	// FileLimit returns the largest file payload this peer can accept,
	// or 0 when the transport imposes no limit.
	FileLimit() int
}

// Session is one registered participant: its unique username plus the peer
// handle used to reach it. The username is assigned exactly once.
type Session struct {
	Username string
	Peer     Peer
}

// ClientState tracks one caller across dispatches: its peer handle and the
// username bound by /register, empty until then.
type ClientState struct {
	Username string
	Peer     Peer
}

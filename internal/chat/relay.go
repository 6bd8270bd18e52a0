package chat

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Transfer is one pending file transfer. It exists only for the duration of
// the forwarding operation and is never stored.
type Transfer struct {
	ID        uuid.UUID
	Sender    string
	Recipient string
	Filename  string
	Body      []byte
}

// Relay forwards file payloads between sessions. The recipient is announced
// with a control line first, then receives the payload on its file handle.
type Relay struct {
	registry *Registry
	logger   *slog.Logger
}

// NewRelay creates a Relay over the given registry.
func NewRelay(registry *Registry, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{registry: registry, logger: logger}
}

// Send validates and forwards one transfer. Returns ErrUserNotFound when the
// recipient is not registered and ErrFileTooLarge when the payload exceeds
// the recipient transport's limit; in both cases nothing reaches the wire.
func (r *Relay) Send(t *Transfer) error {
	sess, ok := r.registry.Lookup(t.Recipient)
	if !ok {
		return ErrUserNotFound
	}
	if limit := sess.Peer.FileLimit(); limit > 0 && len(t.Body) > limit {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit for %s",
			ErrFileTooLarge, len(t.Body), limit, t.Recipient)
	}

	if err := sess.Peer.SendLine("FILE INCOMING from " + t.Sender); err != nil {
		return fmt.Errorf("failed to announce transfer to %s: %w", t.Recipient, err)
	}
	if err := sess.Peer.SendFile(t.Sender, t.Filename, t.Body); err != nil {
		return fmt.Errorf("failed to relay file to %s: %w", t.Recipient, err)
	}

	fileBytesRelayed.Add(float64(len(t.Body)))
	r.logger.Info("file relayed",
		"transfer_id", t.ID,
		"sender", t.Sender,
		"recipient", t.Recipient,
		"filename", t.Filename,
		"bytes", len(t.Body))
	return nil
}

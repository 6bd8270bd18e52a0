package chat

import "log/slog"

// Router resolves a target username to a live peer and forwards text.
type Router struct {
	registry *Registry
	logger   *slog.Logger
}

// NewRouter creates a Router over the given registry.
func NewRouter(registry *Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{registry: registry, logger: logger}
}

// Route delivers "<sender>: <text>" to the target's peer.
// Returns ErrUserNotFound when target is not registered.
func (r *Router) Route(sender, target, text string) error {
	sess, ok := r.registry.Lookup(target)
	if !ok {
		return ErrUserNotFound
	}
	if err := sess.Peer.SendLine(sender + ": " + text); err != nil {
		r.logger.Warn("failed to deliver message", "sender", sender, "target", target, "error", err)
		return err
	}
	return nil
}

// Broadcast delivers "Broadcast message from <sender>: <text>" to every
// registered session except the sender's own. Delivery is best effort: a
// failure for one recipient never aborts delivery to the others. Returns the
// number of sessions that received the message.
func (r *Router) Broadcast(sender, text string) int {
	line := "Broadcast message from " + sender + ": " + text

	delivered := 0
	for _, sess := range r.registry.Sessions() {
		if sess.Username == sender {
			continue
		}
		if err := sess.Peer.SendLine(line); err != nil {
			r.logger.Warn("broadcast delivery failed", "sender", sender, "target", sess.Username, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

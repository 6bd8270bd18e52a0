package chat

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Options selects the transport-specific dispatch behaviors that are
// observable to clients and must be preserved per transport.
type Options struct {
	// EnableBroadcast enables /broadcast (datagram transport only).
	EnableBroadcast bool

	// AckMessages makes a routed /msg answer the sender with an explicit
	// confirmation (datagram transport only).
	AckMessages bool

	// QuitAck is the reply to /quit, empty for no reply.
	QuitAck string
}

// Result is the outcome of dispatching one command line.
type Result struct {
	// Reply is the text answered to the caller, empty for none.
	Reply string

	// Quit is set when the caller's session loop must end.
	Quit bool

	// AwaitFile is set when an accepted /file command arms the transport's
	// file state machine: the caller's next binary unit is the payload for
	// this transfer.
	AwaitFile *Transfer
}

// Dispatcher parses inbound command lines and invokes the matching handler.
// It is stateless per call; per-caller identity lives in ClientState and the
// shared directory lives in the Registry, so one Dispatcher instance serves
// any number of concurrent sessions.
type Dispatcher struct {
	registry *Registry
	router   *Router
	relay    *Relay
	opts     Options
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher over shared registry, router and relay.
func NewDispatcher(registry *Registry, router *Router, relay *Relay, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		router:   router,
		relay:    relay,
		opts:     opts,
		logger:   logger,
	}
}

// Dispatch handles one command line from the caller. Malformed input never
// terminates the session; it only yields a usage reply. Unknown verbs are
// ignored without a reply.
func (d *Dispatcher) Dispatch(st *ClientState, line string) Result {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Result{}
	}

	verb := line
	if i := strings.IndexByte(line, ' '); i >= 0 {
		verb = line[:i]
	}
	countCommand(verb)

	switch verb {
	case "/help":
		return Result{Reply: d.helpText()}
	case "/register":
		return d.handleRegister(st, line)
	case "/quit":
		d.Teardown(st)
		return Result{Reply: d.opts.QuitAck, Quit: true}
	case "/users":
		return Result{Reply: "Users:\n" + strings.Join(d.registry.Usernames(), "\n")}
	case "/msg":
		return d.handleMsg(st, line)
	case "/file":
		return d.handleFile(st, line)
	case "/broadcast":
		if !d.opts.EnableBroadcast {
			return Result{}
		}
		return d.handleBroadcast(st, line)
	default:
		// Unknown verbs are dropped without a reply, matching the
		// documented protocol behavior.
		d.logger.Debug("unknown command ignored", "verb", verb)
		return Result{}
	}
}

// CompleteFile finishes a transfer armed by an earlier /file dispatch, once
// the transport has collected the payload into t.Body.
func (d *Dispatcher) CompleteFile(st *ClientState, t *Transfer) Result {
	err := d.relay.Send(t)
	switch {
	case errors.Is(err, ErrUserNotFound):
		// Recipient left between the command and the payload.
		return Result{Reply: "User not found"}
	case errors.Is(err, ErrFileTooLarge):
		d.logger.Warn("file rejected", "transfer_id", t.ID, "error", err)
		return Result{Reply: "File too large"}
	case err != nil:
		d.logger.Warn("file relay failed", "transfer_id", t.ID, "error", err)
		return Result{Reply: "File transfer failed"}
	}
	return Result{Reply: "File sent successfully to " + t.Recipient}
}

// Teardown releases the caller's registry entry, if any. Safe to call any
// number of times; /quit followed by a read failure must not corrupt the
// registry.
func (d *Dispatcher) Teardown(st *ClientState) {
	if st.Username == "" {
		return
	}
	d.registry.Unregister(st.Username)
	st.Username = ""
}

func (d *Dispatcher) handleRegister(st *ClientState, line string) Result {
	args := strings.Fields(line)
	if len(args) < 2 {
		return Result{Reply: "Invalid command. Usage: /register <username>"}
	}
	if st.Username != "" {
		// One name per session; re-registration would leak the old entry.
		return Result{Reply: "Already registered as " + st.Username}
	}

	err := d.registry.Register(args[1], st.Peer)
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return Result{Reply: "Username already exists"}
	case err != nil:
		return Result{Reply: "Invalid command. Usage: /register <username>"}
	}

	st.Username = args[1]
	return Result{Reply: "Username registered"}
}

func (d *Dispatcher) handleMsg(st *ClientState, line string) Result {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 {
		return Result{Reply: "Invalid command. Usage: /msg <username> <message>"}
	}
	if st.Username == "" {
		return Result{Reply: "You must register first"}
	}

	if err := d.router.Route(st.Username, parts[1], parts[2]); err != nil {
		return Result{Reply: "User not found"}
	}
	if d.opts.AckMessages {
		return Result{Reply: "Message sent successfully"}
	}
	return Result{}
}

func (d *Dispatcher) handleFile(st *ClientState, line string) Result {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 {
		return Result{Reply: "Invalid command. Usage: /file <username> <file>"}
	}
	if st.Username == "" {
		return Result{Reply: "You must register first"}
	}
	if _, ok := d.registry.Lookup(parts[1]); !ok {
		return Result{Reply: "User not found"}
	}

	return Result{AwaitFile: &Transfer{
		ID:        uuid.New(),
		Sender:    st.Username,
		Recipient: parts[1],
		Filename:  parts[2],
	}}
}

func (d *Dispatcher) handleBroadcast(st *ClientState, line string) Result {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return Result{Reply: "Invalid command. Usage: /broadcast <message>"}
	}
	if st.Username == "" {
		return Result{Reply: "You must register first"}
	}

	n := d.router.Broadcast(st.Username, parts[1])
	d.logger.Debug("broadcast delivered", "sender", st.Username, "recipients", n)
	return Result{}
}

func (d *Dispatcher) helpText() string {
	lines := []string{
		"Commands:",
		"/help - display this message",
		"/register <username> - register your username",
		"/quit - logout from the server",
		"/users - display all users",
		"/msg <username> <message> - send a private message to a user",
		"/file <username> <file> - send a file to a user",
	}
	if d.opts.EnableBroadcast {
		lines = append(lines, "/broadcast <message> - send a message to all users")
	}
	return strings.Join(lines, "\n")
}

func countCommand(verb string) {
	switch verb {
	case "/help", "/register", "/quit", "/users", "/msg", "/file", "/broadcast":
		commandsTotal.WithLabelValues(verb[1:]).Inc()
	default:
		commandsTotal.WithLabelValues("unknown").Inc()
	}
}

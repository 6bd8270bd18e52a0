package chat

import (
	"errors"
	"io"

	"github.com/dmatos/relay/pkg/protocol"
)

// FrameConn abstracts the inbound side of a stream connection. Both the TCP
// and the WebSocket transports satisfy it, so one session loop serves both.
type FrameConn interface {
	// ReadFrame reads the next frame. Returns io.EOF on clean close.
	ReadFrame() (*protocol.Message, error)
}

// ServeStream drives the dispatch loop of one stream connection until the
// peer quits or the connection fails. The loop is an explicit two-state
// machine: normally the next frame is a command; after an accepted /file the
// next frame is expected to carry that transfer's payload.
//
// The caller owns connection teardown and must call Teardown afterwards;
// teardown is idempotent with the /quit path.
func (d *Dispatcher) ServeStream(st *ClientState, conn FrameConn) error {
	var pending *Transfer

	for {
		msg, err := conn.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if pending != nil {
			t := pending
			pending = nil
			if msg.Type == protocol.MessageTypeFile {
				if msg.Filename != "" {
					t.Filename = msg.Filename
				}
				t.Body = msg.Body
				d.reply(st, d.CompleteFile(st, t))
				continue
			}
			// Anything but the payload where the payload belongs aborts
			// the transfer; the frame itself is then handled normally.
			d.logger.Warn("file transfer aborted by interleaved frame",
				"transfer_id", t.ID, "sender", t.Sender, "frame_type", msg.Type.String())
			d.reply(st, Result{Reply: "File transfer aborted"})
		}

		if msg.Type != protocol.MessageTypeCommand {
			continue
		}

		res := d.Dispatch(st, msg.Content)
		d.reply(st, res)
		pending = res.AwaitFile
		if res.Quit {
			return nil
		}
	}
}

// reply delivers a dispatch reply to the caller, best effort.
func (d *Dispatcher) reply(st *ClientState, res Result) {
	if res.Reply == "" {
		return
	}
	if err := st.Peer.SendLine(res.Reply); err != nil {
		d.logger.Debug("failed to send reply", "addr", st.Peer.Addr(), "error", err)
	}
}

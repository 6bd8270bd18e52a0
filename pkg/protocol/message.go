// Package protocol defines the wire format shared by the relay server and
// its clients. Every unit on a stream connection is a single tagged frame,
// so text lines and binary file payloads never interleave on the wire.
package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MessageType tags what a frame carries.
type MessageType int

const (
	// MessageTypeCommand is a client-issued command line such as "/msg bob hi".
	MessageTypeCommand MessageType = iota
	// MessageTypeText is a server-originated text line.
	MessageTypeText
	// MessageTypeFile carries one complete file payload with its name.
	MessageTypeFile
)

// String returns the string representation of MessageType
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeCommand:
		return "COMMAND"
	case MessageTypeText:
		return "TEXT"
	case MessageTypeFile:
		return "FILE"
	default:
		return "UNKNOWN"
	}
}

// Protobuf field numbers for Message. Frames are plain protobuf wire format
// produced with protowire, so any protobuf implementation with a matching
// schema can read them.
const (
	fieldType     = 1
	fieldSender   = 2
	fieldReceiver = 3
	fieldFilename = 4
	fieldContent  = 5
	fieldBody     = 6
)

// Message is one unit on the wire.
type Message struct {
	Type     MessageType
	Sender   string
	Receiver string
	Filename string // set for FILE frames
	Content  string // command or text line
	Body     []byte // file payload for FILE frames
}

// Encode encodes the message into protobuf wire format.
func (m *Message) Encode() ([]byte, error) {
	buf := protowire.AppendTag(nil, fieldType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(m.Type))
	if m.Sender != "" {
		buf = protowire.AppendTag(buf, fieldSender, protowire.BytesType)
		buf = protowire.AppendString(buf, m.Sender)
	}
	if m.Receiver != "" {
		buf = protowire.AppendTag(buf, fieldReceiver, protowire.BytesType)
		buf = protowire.AppendString(buf, m.Receiver)
	}
	if m.Filename != "" {
		buf = protowire.AppendTag(buf, fieldFilename, protowire.BytesType)
		buf = protowire.AppendString(buf, m.Filename)
	}
	if m.Content != "" {
		buf = protowire.AppendTag(buf, fieldContent, protowire.BytesType)
		buf = protowire.AppendString(buf, m.Content)
	}
	if len(m.Body) > 0 {
		buf = protowire.AppendTag(buf, fieldBody, protowire.BytesType)
		buf = protowire.AppendBytes(buf, m.Body)
	}
	return buf, nil
}

// Decode decodes protobuf wire format bytes into the message.
// Unknown fields are skipped for forward compatibility.
func (m *Message) Decode(data []byte) error {
	*m = Message{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("failed to decode message: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, vn := protowire.ConsumeVarint(data)
			if vn < 0 {
				return fmt.Errorf("failed to decode message type: %w", protowire.ParseError(vn))
			}
			m.Type = MessageType(v)
			data = data[vn:]
		case typ == protowire.BytesType && num >= fieldSender && num <= fieldBody:
			v, vn := protowire.ConsumeBytes(data)
			if vn < 0 {
				return fmt.Errorf("failed to decode message field %d: %w", num, protowire.ParseError(vn))
			}
			switch num {
			case fieldSender:
				m.Sender = string(v)
			case fieldReceiver:
				m.Receiver = string(v)
			case fieldFilename:
				m.Filename = string(v)
			case fieldContent:
				m.Content = string(v)
			case fieldBody:
				m.Body = append([]byte(nil), v...)
			}
			data = data[vn:]
		default:
			fn := protowire.ConsumeFieldValue(num, typ, data)
			if fn < 0 {
				return fmt.Errorf("failed to skip message field %d: %w", num, protowire.ParseError(fn))
			}
			data = data[fn:]
		}
	}
	return nil
}

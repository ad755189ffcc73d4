package protocol

import "fmt"

// ControlType identifies a control message. Its byte leads the payload of
// every FrameControl frame.
type ControlType uint8

const (
	ControlPing     ControlType = 0x01
	ControlPong     ControlType = 0x02
	ControlBookmark ControlType = 0x10 // Reply to EventBookmark
	ControlClose    ControlType = 0x20
)

var controlNames = map[ControlType]string{
	ControlPing:     "Ping",
	ControlPong:     "Pong",
	ControlBookmark: "Bookmark",
	ControlClose:    "Close",
}

func (ct ControlType) String() string {
	if name, ok := controlNames[ct]; ok {
		return name
	}
	return fmt.Sprintf("ControlType(%#x)", uint8(ct))
}

// CloseReason tells the client whether to reconnect.
type CloseReason uint8

const (
	CloseNormal         CloseReason = 0x00
	CloseGoingAway      CloseReason = 0x01
	CloseServerShutdown CloseReason = 0x03 // Reconnect later
	CloseError          CloseReason = 0x04
)

var closeNames = map[CloseReason]string{
	CloseNormal:         "Normal",
	CloseGoingAway:      "GoingAway",
	CloseServerShutdown: "ServerShutdown",
	CloseError:          "Error",
}

func (cr CloseReason) String() string {
	if name, ok := closeNames[cr]; ok {
		return name
	}
	return fmt.Sprintf("CloseReason(%#x)", uint8(cr))
}

// controlBody is the payload following the control type byte.
type controlBody interface {
	encodeTo(*Encoder)
	decodeFrom(*Decoder) error
}

// PingPong carries the sender's clock in Unix milliseconds. The pong
// echoes the ping's timestamp.
type PingPong struct {
	Timestamp uint64
}

func (p *PingPong) encodeTo(e *Encoder) {
	e.WriteUint64(p.Timestamp)
}

func (p *PingPong) decodeFrom(d *Decoder) (err error) {
	p.Timestamp, err = d.ReadUint64()
	return err
}

// BookmarkCreated answers a bookmark request with the stored id and the
// share path that resolves it.
type BookmarkCreated struct {
	ID   string
	Path string
}

func (b *BookmarkCreated) encodeTo(e *Encoder) {
	e.WriteString(b.ID)
	e.WriteString(b.Path)
}

func (b *BookmarkCreated) decodeFrom(d *Decoder) (err error) {
	if b.ID, err = d.ReadString(); err != nil {
		return err
	}
	b.Path, err = d.ReadString()
	return err
}

// CloseMessage precedes the WebSocket close of a session.
type CloseMessage struct {
	Reason  CloseReason
	Message string
}

func (c *CloseMessage) encodeTo(e *Encoder) {
	e.WriteByte(byte(c.Reason))
	e.WriteString(c.Message)
}

func (c *CloseMessage) decodeFrom(d *Decoder) error {
	reason, err := d.ReadByte()
	if err != nil {
		return err
	}
	c.Reason = CloseReason(reason)
	c.Message, err = d.ReadString()
	return err
}

// bodyFor returns payload when it is the body type of ct, and an empty body
// of that type otherwise. Unknown control types have no body.
func bodyFor(ct ControlType, payload any) controlBody {
	switch ct {
	case ControlPing, ControlPong:
		if p, ok := payload.(*PingPong); ok && p != nil {
			return p
		}
		return &PingPong{}
	case ControlBookmark:
		if b, ok := payload.(*BookmarkCreated); ok && b != nil {
			return b
		}
		return &BookmarkCreated{}
	case ControlClose:
		if c, ok := payload.(*CloseMessage); ok && c != nil {
			return c
		}
		return &CloseMessage{}
	}
	return nil
}

// EncodeControl encodes a control message. A payload of the wrong type is
// sent as the zero body for ct.
func EncodeControl(ct ControlType, payload any) []byte {
	e := NewEncoder()
	e.WriteByte(byte(ct))
	if body := bodyFor(ct, payload); body != nil {
		body.encodeTo(e)
	}
	return e.Bytes()
}

// DecodeControl returns the control type and its body: *PingPong,
// *BookmarkCreated or *CloseMessage.
func DecodeControl(data []byte) (ControlType, any, error) {
	d := NewDecoder(data)
	b, err := d.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	ct := ControlType(b)
	body := bodyFor(ct, nil)
	if body == nil {
		return ct, nil, ErrUnknownAction
	}
	if err := body.decodeFrom(d); err != nil {
		return ct, nil, err
	}
	return ct, body, nil
}

func NewPing(timestamp uint64) (ControlType, *PingPong) {
	return ControlPing, &PingPong{Timestamp: timestamp}
}

func NewPong(timestamp uint64) (ControlType, *PingPong) {
	return ControlPong, &PingPong{Timestamp: timestamp}
}

func NewClose(reason CloseReason, message string) (ControlType, *CloseMessage) {
	return ControlClose, &CloseMessage{Reason: reason, Message: message}
}

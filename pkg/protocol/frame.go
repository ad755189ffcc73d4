package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// FrameHeaderSize is the header length: type, flags, payload length.
	FrameHeaderSize = 4

	// MaxPayloadSize is the largest payload the uint16 length can describe.
	MaxPayloadSize = 1<<16 - 1
)

// FrameType identifies what a frame's payload holds.
type FrameType uint8

const (
	FrameHandshake FrameType = 0x00 // ClientHello or ServerHello
	FrameEvent     FrameType = 0x01 // Client event: popstate, update, bookmark
	FrameURL       FrameType = 0x02 // Server history write
	FrameControl   FrameType = 0x03 // Ping, pong, close, bookmark reply
	FrameError     FrameType = 0x05 // ErrorMessage
)

var frameNames = map[FrameType]string{
	FrameHandshake: "Handshake",
	FrameEvent:     "Event",
	FrameURL:       "URL",
	FrameControl:   "Control",
	FrameError:     "Error",
}

func (ft FrameType) String() string {
	if name, ok := frameNames[ft]; ok {
		return name
	}
	return fmt.Sprintf("FrameType(%#x)", uint8(ft))
}

// Valid reports whether ft is one of the frame types above.
func (ft FrameType) Valid() bool {
	_, ok := frameNames[ft]
	return ok
}

// FrameFlags modify how a payload is read.
type FrameFlags uint8

// FlagSequenced marks payloads that begin with a sequence number. URL
// patches carry it so clients can drop stale writes.
const FlagSequenced FrameFlags = 0x02

// Has reports whether flag is set.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is one WebSocket binary message: a 4-byte header (type, flags,
// big-endian payload length) followed by the payload.
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates an unflagged frame.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// HandshakeFrame wraps a ServerHello.
func HandshakeFrame(sh *ServerHello) *Frame {
	return NewFrame(FrameHandshake, EncodeServerHello(sh))
}

// EventFrame wraps a client event.
func EventFrame(e *Event) *Frame {
	return NewFrame(FrameEvent, EncodeEvent(e))
}

// ControlFrame wraps a control message.
func ControlFrame(ct ControlType, payload any) *Frame {
	return NewFrame(FrameControl, EncodeControl(ct, payload))
}

// Encode returns the header and payload as one message. Callers check the
// payload size first; Encode truncates nothing.
func (f *Frame) Encode() []byte {
	buf := make([]byte, FrameHeaderSize, FrameHeaderSize+len(f.Payload))
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	binary.BigEndian.PutUint16(buf[2:], uint16(len(f.Payload)))
	return append(buf, f.Payload...)
}

// parseHeader validates a header and returns the payload length.
func parseHeader(h []byte) (FrameType, FrameFlags, int, error) {
	ft := FrameType(h[0])
	if !ft.Valid() {
		return 0, 0, 0, ErrInvalidFrameType
	}
	return ft, FrameFlags(h[1]), int(binary.BigEndian.Uint16(h[2:])), nil
}

// DecodeFrame parses one message. Bytes after the declared payload are
// ignored; the payload is copied out of data.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	ft, flags, n, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	body := data[FrameHeaderSize:]
	if len(body) < n {
		return nil, io.ErrUnexpectedEOF
	}
	return &Frame{Type: ft, Flags: flags, Payload: append([]byte{}, body[:n]...)}, nil
}

// ReadFrame reads one frame from a byte stream.
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	ft, flags, n, err := parseHeader(header[:])
	if err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// WriteFrame writes f to a byte stream.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

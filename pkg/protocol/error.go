package protocol

import "fmt"

// ErrorCode classifies an error frame for the client.
type ErrorCode uint16

const (
	ErrUnknown           ErrorCode = 0x0000
	ErrInvalidFrame      ErrorCode = 0x0001
	ErrInvalidEvent      ErrorCode = 0x0002
	ErrHandshakeExpected ErrorCode = 0x0003 // First frame was not a handshake
	ErrBookmarkFailed    ErrorCode = 0x0004
	ErrServerError       ErrorCode = 0x0100
)

var errorNames = map[ErrorCode]string{
	ErrUnknown:           "Unknown",
	ErrInvalidFrame:      "InvalidFrame",
	ErrInvalidEvent:      "InvalidEvent",
	ErrHandshakeExpected: "HandshakeExpected",
	ErrBookmarkFailed:    "BookmarkFailed",
	ErrServerError:       "ServerError",
}

func (ec ErrorCode) String() string {
	if name, ok := errorNames[ec]; ok {
		return name
	}
	return "Unknown"
}

// ErrorMessage is the payload of a FrameError frame. After a fatal error
// the server closes the connection.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Fatal   bool
}

func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

func (em *ErrorMessage) Error() string {
	msg := fmt.Sprintf("%s: %s", em.Code, em.Message)
	if em.Fatal {
		return "fatal: " + msg
	}
	return msg
}

// Frame wraps the message in an error frame.
func (em *ErrorMessage) Frame() *Frame {
	return NewFrame(FrameError, EncodeErrorMessage(em))
}

// EncodeErrorMessage writes code (uint16), message and the fatal flag.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	em := &ErrorMessage{}
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	em.Code = ErrorCode(code)
	if em.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	if em.Fatal, err = d.ReadBool(); err != nil {
		return nil, err
	}
	return em, nil
}

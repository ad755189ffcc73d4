package protocol

// HandshakeStatus represents the result of a handshake.
type HandshakeStatus uint8

const (
	HandshakeOK              HandshakeStatus = 0x00
	HandshakeVersionMismatch HandshakeStatus = 0x01
	HandshakeServerBusy      HandshakeStatus = 0x04
	HandshakeInvalidFormat   HandshakeStatus = 0x06 // Malformed handshake message
	HandshakeInternalError   HandshakeStatus = 0x08 // Server error
)

// String returns the string representation of the handshake status.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeServerBusy:
		return "ServerBusy"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// Compatible reports whether a client speaking v can talk to this server.
func (v ProtocolVersion) Compatible() bool {
	return v.Major == CurrentVersion.Major
}

// ClientHello is sent by the client after the WebSocket connection is
// established. Hash is the fragment the page was loaded with.
type ClientHello struct {
	Version   ProtocolVersion
	SessionID string // Existing session ID (empty if new)
	Hash      string
}

// ServerHello is the server's response to ClientHello. Hash is the
// fragment the server's provider starts from, normally the client's.
type ServerHello struct {
	Status     HandshakeStatus
	SessionID  string
	ServerTime uint64 // Unix milliseconds
	Hash       string
}

// EncodeClientHello encodes a ClientHello to bytes.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoder()
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteString(ch.SessionID)
	e.WriteString(ch.Hash)
	return e.Bytes()
}

// DecodeClientHello decodes a ClientHello from bytes.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	d := NewDecoder(data)
	ch := &ClientHello{}

	major, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	minor, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	ch.Version = ProtocolVersion{Major: major, Minor: minor}

	if ch.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ch.Hash, err = d.ReadHash(); err != nil {
		return nil, err
	}
	return ch, nil
}

// EncodeServerHello encodes a ServerHello to bytes.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoder()
	e.WriteByte(byte(sh.Status))
	e.WriteString(sh.SessionID)
	e.WriteUint64(sh.ServerTime)
	e.WriteString(sh.Hash)
	return e.Bytes()
}

// DecodeServerHello decodes a ServerHello from bytes.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	d := NewDecoder(data)
	sh := &ServerHello{}

	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	sh.Status = HandshakeStatus(status)

	if sh.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if sh.ServerTime, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	if sh.Hash, err = d.ReadHash(); err != nil {
		return nil, err
	}
	return sh, nil
}

// NewClientHello creates a ClientHello with the current version.
func NewClientHello(hash string) *ClientHello {
	return &ClientHello{Version: CurrentVersion, Hash: hash}
}

// NewServerHello creates a successful ServerHello.
func NewServerHello(sessionID string, serverTime uint64, hash string) *ServerHello {
	return &ServerHello{
		Status:     HandshakeOK,
		SessionID:  sessionID,
		ServerTime: serverTime,
		Hash:       hash,
	}
}

// NewServerHelloError creates a ServerHello with an error status.
func NewServerHelloError(status HandshakeStatus) *ServerHello {
	return &ServerHello{Status: status}
}

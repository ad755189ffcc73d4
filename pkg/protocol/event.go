package protocol

// EventType identifies the type of client event.
type EventType uint8

const (
	EventPopState EventType = 0x01 // Browser navigation changed the fragment
	EventUpdate   EventType = 0x02 // View state changed on the client
	EventBookmark EventType = 0x03 // Client asks to bookmark the current view
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	switch et {
	case EventPopState:
		return "PopState"
	case EventUpdate:
		return "Update"
	case EventBookmark:
		return "Bookmark"
	default:
		return "Unknown"
	}
}

// Event is a client to server event.
type Event struct {
	Seq     uint64
	Type    EventType
	Payload any // *PopState, *Update or *BookmarkRequest
}

// PopState carries the fragment after browser navigation.
type PopState struct {
	Hash string
}

// Param is one logical key and its string form. Values are parsed by the
// key's codec on the server.
type Param struct {
	Key   string
	Value string
}

// Update carries a view state change.
type Update struct {
	Params   []Param
	Remove   []string // Logical keys to delete
	Label    string
	Path     string // Empty keeps the current path
	Replace  bool
	Debounce bool // Coalesce with other debounced updates
}

// BookmarkRequest asks the server to store the current fragment.
type BookmarkRequest struct {
	Title string
}

// EncodeEvent encodes an event to bytes.
func EncodeEvent(e *Event) []byte {
	enc := NewEncoder()
	EncodeEventTo(enc, e)
	return enc.Bytes()
}

// EncodeEventTo encodes an event using the provided encoder.
func EncodeEventTo(enc *Encoder, e *Event) {
	enc.WriteUvarint(e.Seq)
	enc.WriteByte(byte(e.Type))

	switch e.Type {
	case EventPopState:
		var hash string
		if ps, ok := e.Payload.(*PopState); ok {
			hash = ps.Hash
		}
		enc.WriteString(hash)

	case EventUpdate:
		u, ok := e.Payload.(*Update)
		if !ok {
			u = &Update{}
		}
		enc.WriteUvarint(uint64(len(u.Params)))
		for _, p := range u.Params {
			enc.WriteString(p.Key)
			enc.WriteString(p.Value)
		}
		enc.WriteUvarint(uint64(len(u.Remove)))
		for _, k := range u.Remove {
			enc.WriteString(k)
		}
		enc.WriteString(u.Label)
		enc.WriteString(u.Path)
		enc.WriteBool(u.Replace)
		enc.WriteBool(u.Debounce)

	case EventBookmark:
		var title string
		if br, ok := e.Payload.(*BookmarkRequest); ok {
			title = br.Title
		}
		enc.WriteString(title)
	}
}

// DecodeEvent decodes an event from bytes.
func DecodeEvent(data []byte) (*Event, error) {
	return DecodeEventFrom(NewDecoder(data))
}

// DecodeEventFrom decodes an event from a decoder. Unknown event types fail
// with ErrUnknownEvent.
func DecodeEventFrom(d *Decoder) (*Event, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	typeByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	e := &Event{Seq: seq, Type: EventType(typeByte)}

	switch e.Type {
	case EventPopState:
		hash, err := d.ReadHash()
		if err != nil {
			return nil, err
		}
		e.Payload = &PopState{Hash: hash}

	case EventUpdate:
		u, err := decodeUpdate(d)
		if err != nil {
			return nil, err
		}
		e.Payload = u

	case EventBookmark:
		title, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		e.Payload = &BookmarkRequest{Title: title}

	default:
		return nil, ErrUnknownEvent
	}
	return e, nil
}

func decodeUpdate(d *Decoder) (*Update, error) {
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	if count > MaxUpdateKeys {
		return nil, ErrTooManyKeys
	}
	u := &Update{Params: make([]Param, count)}
	for i := range u.Params {
		if u.Params[i].Key, err = d.ReadString(); err != nil {
			return nil, err
		}
		if u.Params[i].Value, err = d.ReadString(); err != nil {
			return nil, err
		}
	}
	if u.Remove, err = d.ReadKeys(); err != nil {
		return nil, err
	}
	if u.Label, err = d.ReadBoundedString(MaxLabelLength, ErrLabelTooLong); err != nil {
		return nil, err
	}
	if u.Path, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if u.Replace, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if u.Debounce, err = d.ReadBool(); err != nil {
		return nil, err
	}
	return u, nil
}

// NewPopStateEvent creates a pop-state event.
func NewPopStateEvent(seq uint64, hash string) *Event {
	return &Event{Seq: seq, Type: EventPopState, Payload: &PopState{Hash: hash}}
}

// NewUpdateEvent creates an update event.
func NewUpdateEvent(seq uint64, u *Update) *Event {
	return &Event{Seq: seq, Type: EventUpdate, Payload: u}
}

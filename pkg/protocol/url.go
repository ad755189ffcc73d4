package protocol

// URLPatch tells the client to write a fragment to its history.
type URLPatch struct {
	Seq     uint64
	Hash    string
	Replace bool
}

// EncodeURLPatch encodes a URLPatch to bytes.
func EncodeURLPatch(p *URLPatch) []byte {
	e := NewEncoder()
	e.WriteUvarint(p.Seq)
	e.WriteString(p.Hash)
	e.WriteBool(p.Replace)
	return e.Bytes()
}

// DecodeURLPatch decodes a URLPatch from bytes.
func DecodeURLPatch(data []byte) (*URLPatch, error) {
	d := NewDecoder(data)
	p := &URLPatch{}
	var err error

	if p.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if p.Hash, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if p.Replace, err = d.ReadBool(); err != nil {
		return nil, err
	}
	return p, nil
}

// Frame wraps the patch in a sequenced URL frame.
func (p *URLPatch) Frame() *Frame {
	return &Frame{Type: FrameURL, Flags: FlagSequenced, Payload: EncodeURLPatch(p)}
}

package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxCollectionCount caps the element count of any list in a message.
const MaxCollectionCount = 4096

var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrInvalidBool        = errors.New("protocol: invalid boolean value")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
)

// Decoder reads message fields from a payload. Every read past the end
// fails with io.ErrUnexpectedEOF; nothing is allocated from an untrusted
// length before it is checked against the bytes left.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder reads from buf without copying it.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF reports whether the payload is fully consumed.
func (d *Decoder) EOF() bool {
	return d.Remaining() <= 0
}

// take consumes n bytes.
func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) ReadByte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUvarint reads a LEB128 unsigned varint, the same encoding as
// encoding/binary.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.pos:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

// ReadString reads a varint length and that many bytes.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if n > uint64(d.Remaining()) {
		return "", io.ErrUnexpectedEOF
	}
	b, err := d.take(int(n))
	return string(b), err
}

// ReadBoundedString reads a string and fails with tooLong when it exceeds
// max bytes.
func (d *Decoder) ReadBoundedString(max int, tooLong error) (string, error) {
	s, err := d.ReadString()
	if err != nil {
		return "", err
	}
	if len(s) > max {
		return "", tooLong
	}
	return s, nil
}

// ReadHash reads a fragment, rejecting ones longer than MaxHashLength.
func (d *Decoder) ReadHash() (string, error) {
	return d.ReadBoundedString(MaxHashLength, ErrHashTooLong)
}

// ReadBool accepts only 0x00 and 0x01.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	if b > 1 {
		return false, ErrInvalidBool
	}
	return b == 1, nil
}

func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadCollectionCount reads a list length. It is bounded by
// MaxCollectionCount and by the bytes left, as every element takes at
// least one byte.
func (d *Decoder) ReadCollectionCount() (int, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if n > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if n > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(n), nil
}

// ReadKeys reads a list of at most MaxUpdateKeys strings. An empty list
// decodes as nil.
func (d *Decoder) ReadKeys() ([]string, error) {
	n, err := d.ReadCollectionCount()
	if err != nil || n == 0 {
		return nil, err
	}
	if n > MaxUpdateKeys {
		return nil, ErrTooManyKeys
	}
	keys := make([]string, n)
	for i := range keys {
		if keys[i], err = d.ReadString(); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

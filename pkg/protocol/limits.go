package protocol

import "errors"

// Message limits. A fragment longer than MaxHashLength cannot be written by
// browsers reliably, and no table has more than MaxUpdateKeys keys.
const (
	// MaxHashLength is the maximum length of a fragment in any message.
	MaxHashLength = 8 * 1024

	// MaxUpdateKeys is the maximum number of keys in one update event.
	MaxUpdateKeys = 256

	// MaxLabelLength is the maximum length of an update label.
	MaxLabelLength = 256
)

// Limit errors.
var (
	ErrHashTooLong   = errors.New("protocol: fragment exceeds length limit")
	ErrTooManyKeys   = errors.New("protocol: update exceeds key limit")
	ErrLabelTooLong  = errors.New("protocol: label exceeds length limit")
	ErrUnknownEvent  = errors.New("protocol: unknown event type")
	ErrUnknownAction = errors.New("protocol: unknown control type")
)

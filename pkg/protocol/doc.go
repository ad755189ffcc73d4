// Package protocol implements the binary wire protocol between a browser
// client and the hashsync server.
//
// The client reports the URL fragment it loaded with, navigation
// (pop-state) and view updates. The server answers with URL patches that
// push or replace the browser's history entry.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHandshake (0x00): ClientHello / ServerHello
//   - FrameEvent (0x01): Client → Server pop-state, update and bookmark events
//   - FrameURL (0x02): Server → Client history push/replace
//   - FrameControl (0x03): Ping, pong, close, bookmark created
//   - FrameError (0x05): Error message
//
// # Encoding
//
// Integers are varints (protobuf-style, ZigZag for signed values), strings
// are length-prefixed, fixed-width integers are big-endian.
//
// Example pop-state event for "#/?z=5":
//
//	[Seq: varint][Type: 0x01][Hash: len-prefixed string]
//
// # Handshake
//
//	Client                          Server
//	  │                                │
//	  │──── ClientHello ─────────────>│
//	  │     (version, session, hash)  │
//	  │                                │
//	  │<──── ServerHello ─────────────│
//	  │     (status, session, hash)   │
//	  │                                │
//
// # Usage Example
//
//	data := EncodeEvent(&Event{Seq: 1, Type: EventPopState, Payload: &PopState{Hash: "#/?z=5"}})
//	frame := NewFrame(FrameEvent, data)
//
//	decoded, err := DecodeEvent(frame.Payload)
package protocol

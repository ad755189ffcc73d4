// Package clientdist holds the browser thin client.
package clientdist

import _ "embed"

// HashsyncJS is the thin client JavaScript. It mirrors URL frames into
// window.history and reports pop-state navigation back to the server.
//
// It is served at "/hashsync.js".
//
//go:embed hashsync.js
var HashsyncJS []byte

// Package bookmark stores shareable map views. A bookmark maps a short id
// to a URL fragment, so "/b/k3x9m2qa" can redirect to "/#/map?z=12&lat=51.27".
//
// Three stores are provided: MemoryStore for tests and single instances,
// SQLStore for any database/sql driver (SQLite by default), and S3Store for
// object storage.
package bookmark

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"strings"
	"time"

	"github.com/geoportal-dev/hashsync/internal/errors"
	"github.com/geoportal-dev/hashsync/pkg/protocol"
)

// Bookmark is a stored view.
type Bookmark struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists bookmarks.
type Store interface {
	// Save stores b. An empty ID is filled with a new one.
	Save(ctx context.Context, b *Bookmark) error

	// Get returns the bookmark with the id, or an error matching ErrNotFound.
	Get(ctx context.Context, id string) (*Bookmark, error)

	// Delete removes the bookmark. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases resources. Later calls fail with ErrStoreClosed.
	Close() error
}

// Errors returned by stores. Compare with errors.Is.
var (
	ErrNotFound    = errors.New("H080")
	ErrStoreClosed = errors.New("H081").WithDetail("The bookmark store is closed.")
	ErrInvalid     = errors.New("H082")
)

var idEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// NewID returns a random 8-character id.
func NewID() string {
	b := make([]byte, 5)
	rand.Read(b)
	return idEncoding.EncodeToString(b)
}

// Prepare validates b and fills ID and CreatedAt when they are unset. The
// fragment is normalized to start with "#".
func Prepare(b *Bookmark) error {
	if b == nil {
		return errors.New("H082")
	}
	hash := strings.TrimSpace(b.Hash)
	if hash == "" || hash == "#" {
		return errors.New("H082")
	}
	if !strings.HasPrefix(hash, "#") {
		hash = "#" + hash
	}
	if len(hash) > protocol.MaxHashLength {
		return errors.New("H082").WithDetail("The URL fragment is too long to bookmark.")
	}
	b.Hash = hash
	if b.ID == "" {
		b.ID = NewID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return nil
}

// Path returns the share path for id.
func Path(id string) string {
	return "/b/" + id
}

func clone(b *Bookmark) *Bookmark {
	c := *b
	return &c
}

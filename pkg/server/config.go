package server

import (
	"net/http"
	"net/url"
	"time"
)

// Config holds configuration for the HTTP/WebSocket server.
type Config struct {
	// Address is the listen address (e.g., ":8080").
	Address string

	// AllowedOrigins lists origins allowed to open a WebSocket. Empty
	// means same-origin only.
	AllowedOrigins []string

	ReadBufferSize  int
	WriteBufferSize int

	// HandshakeTimeout bounds the wait for the client handshake frame.
	HandshakeTimeout time.Duration

	// ReadTimeout is the maximum time between client messages. Heartbeats
	// keep idle sessions alive.
	ReadTimeout time.Duration

	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration

	// HeartbeatInterval is the ping period.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the WebSocket read limit.
	MaxMessageSize int64

	// Debounce is the delay for updates flagged as debounced.
	Debounce time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		HandshakeTimeout:  10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		Debounce:          250 * time.Millisecond,
		ShutdownTimeout:   10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.HandshakeTimeout == 0 {
		out.HandshakeTimeout = d.HandshakeTimeout
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.HeartbeatInterval == 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.Debounce == 0 {
		out.Debounce = d.Debounce
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if out.IdleTimeout == 0 {
		out.IdleTimeout = d.IdleTimeout
	}
	return &out
}

// checkOrigin returns the upgrader origin check for c.
func (c *Config) checkOrigin() func(*http.Request) bool {
	if len(c.AllowedOrigins) == 0 {
		return SameOriginCheck
	}
	allowed := make(map[string]bool, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin] || SameOriginCheck(r)
	}
}

// SameOriginCheck validates that the WebSocket request origin matches the
// host. Requests without an Origin header are allowed.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if r.Host == "" {
		return false
	}
	return originURL.Host == r.Host
}

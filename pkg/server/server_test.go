package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/geoportal-dev/hashsync/pkg/bookmark"
	"github.com/geoportal-dev/hashsync/pkg/hashstate"
	"github.com/geoportal-dev/hashsync/pkg/protocol"
)

func newTestServer(t *testing.T, config *Config, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	if config == nil {
		config = &Config{}
	}
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = time.Hour
	}
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTracerProvider(noop.NewTracerProvider()),
	}
	srv := New(config, append(base, opts...)...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame *protocol.Frame) {
	t.Helper()
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, event *protocol.Event) {
	t.Helper()
	send(t, conn, protocol.EventFrame(event))
}

func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	return frame
}

func readURL(t *testing.T, conn *websocket.Conn) *protocol.URLPatch {
	t.Helper()
	frame := readFrame(t, conn)
	if frame.Type != protocol.FrameURL {
		t.Fatalf("frame type = %v, want URL", frame.Type)
	}
	patch, err := protocol.DecodeURLPatch(frame.Payload)
	if err != nil {
		t.Fatal(err)
	}
	return patch
}

// handshake performs the client side of the handshake.
func handshake(t *testing.T, conn *websocket.Conn, hash string) *protocol.ServerHello {
	t.Helper()
	send(t, conn, protocol.NewFrame(protocol.FrameHandshake,
		protocol.EncodeClientHello(protocol.NewClientHello(hash))))

	frame := readFrame(t, conn)
	if frame.Type != protocol.FrameHandshake {
		t.Fatalf("frame type = %v, want Handshake", frame.Type)
	}
	hello, err := protocol.DecodeServerHello(frame.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if hello.Status != protocol.HandshakeOK {
		t.Fatalf("handshake status = %v", hello.Status)
	}
	return hello
}

// ping sends a ping and waits for the pong. Frames are handled in order,
// so any frame caused by earlier events arrives first and fails the test.
func ping(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, protocol.ControlFrame(protocol.NewPing(42)))
	frame := readFrame(t, conn)
	if frame.Type != protocol.FrameControl {
		t.Fatalf("frame type = %v, want Control (pong)", frame.Type)
	}
	ct, _, err := protocol.DecodeControl(frame.Payload)
	if err != nil || ct != protocol.ControlPong {
		t.Fatalf("control = %v, %v; want Pong", ct, err)
	}
}

func TestWebSocketUpdateRoundTrip(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	hello := handshake(t, conn, "#/map")
	if hello.Hash != "#/map" || hello.SessionID == "" {
		t.Fatalf("hello = %+v", hello)
	}

	update := &protocol.Update{Params: []protocol.Param{
		{Key: "zoom", Value: "12"},
		{Key: "lat", Value: "51.27"},
	}}
	sendEvent(t, conn, protocol.NewUpdateEvent(1, update))

	patch := readURL(t, conn)
	if patch.Hash != "#/map?z=12&lat=51.27" || patch.Replace || patch.Seq != 1 {
		t.Errorf("patch = %+v", patch)
	}

	// The same update leaves the fragment unchanged: no URL frame.
	sendEvent(t, conn, protocol.NewUpdateEvent(2, update))
	ping(t, conn)

	sess := srv.Session(hello.SessionID)
	if sess == nil {
		t.Fatal("session not registered")
	}
	if got := sess.Provider().GetHash().Map()["z"]; got != "12" {
		t.Errorf("provider z = %q", got)
	}
}

func TestWebSocketUpdateOptions(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)
	handshake(t, conn, "#/map?z=3&lat=1&bg=dark")

	sendEvent(t, conn, protocol.NewUpdateEvent(1, &protocol.Update{
		Params:  []protocol.Param{{Key: "zoom", Value: "4"}},
		Remove:  []string{"background"},
		Path:    "/list",
		Replace: true,
	}))

	patch := readURL(t, conn)
	if patch.Hash != "#/list?z=4&lat=1" || !patch.Replace {
		t.Errorf("patch = %+v", patch)
	}
}

func TestWebSocketPopState(t *testing.T) {
	events := make(chan hashstate.ChangeEvent, 4)
	_, ts := newTestServer(t, nil, WithOnSession(func(s *Session) {
		s.Provider().RegisterOnPopStateFunc(func(e hashstate.ChangeEvent) {
			events <- e
		})
	}))
	conn := dial(t, ts)
	handshake(t, conn, "#/map?z=12")

	sendEvent(t, conn, protocol.NewPopStateEvent(1, "#/?z=5"))

	select {
	case e := <-events:
		if e.Values["zoom"] != 5 {
			t.Errorf("zoom = %v, want 5", e.Values["zoom"])
		}
		if e.Source != hashstate.SourcePopState {
			t.Errorf("source = %q", e.Source)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pop-state listener not called")
	}

	// Navigation reported by the browser is not echoed back.
	ping(t, conn)
}

func TestWebSocketDebouncedUpdate(t *testing.T) {
	_, ts := newTestServer(t, &Config{Debounce: 20 * time.Millisecond})
	conn := dial(t, ts)
	handshake(t, conn, "#/map")

	for _, z := range []string{"7", "8"} {
		sendEvent(t, conn, protocol.NewUpdateEvent(1, &protocol.Update{
			Params:   []protocol.Param{{Key: "zoom", Value: z}},
			Debounce: true,
		}))
	}

	patch := readURL(t, conn)
	if patch.Hash != "#/map?z=8" || !patch.Replace {
		t.Errorf("patch = %+v", patch)
	}
}

func TestWebSocketBookmark(t *testing.T) {
	store := bookmark.NewMemoryStore()
	_, ts := newTestServer(t, nil, WithBookmarkStore(store))
	conn := dial(t, ts)
	handshake(t, conn, "#/map?z=9")

	sendEvent(t, conn, &protocol.Event{
		Seq:     1,
		Type:    protocol.EventBookmark,
		Payload: &protocol.BookmarkRequest{Title: "harbour"},
	})

	frame := readFrame(t, conn)
	ct, data, err := protocol.DecodeControl(frame.Payload)
	if err != nil || ct != protocol.ControlBookmark {
		t.Fatalf("control = %v, %v", ct, err)
	}
	created := data.(*protocol.BookmarkCreated)
	if created.Path != "/b/"+created.ID {
		t.Errorf("path = %q", created.Path)
	}

	b, err := store.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Hash != "#/map?z=9" || b.Title != "harbour" {
		t.Errorf("bookmark = %+v", b)
	}
}

func TestWebSocketHandshakeExpected(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	sendEvent(t, conn, protocol.NewPopStateEvent(1, "#/"))

	frame := readFrame(t, conn)
	if frame.Type != protocol.FrameError {
		t.Fatalf("frame type = %v, want Error", frame.Type)
	}
	em, err := protocol.DecodeErrorMessage(frame.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if em.Code != protocol.ErrHandshakeExpected || !em.Fatal {
		t.Errorf("error = %+v", em)
	}
}

func TestWebSocketVersionMismatch(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	hello := &protocol.ClientHello{Version: protocol.ProtocolVersion{Major: 9}, Hash: "#/"}
	send(t, conn, protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeClientHello(hello)))

	frame := readFrame(t, conn)
	sh, err := protocol.DecodeServerHello(frame.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if sh.Status != protocol.HandshakeVersionMismatch {
		t.Errorf("status = %v", sh.Status)
	}
}

func TestWebSocketInvalidEvent(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dial(t, ts)
	handshake(t, conn, "#/")

	send(t, conn, protocol.NewFrame(protocol.FrameEvent, []byte{0x01, 0x7f}))

	frame := readFrame(t, conn)
	em, err := protocol.DecodeErrorMessage(frame.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if em.Code != protocol.ErrInvalidEvent || em.Fatal {
		t.Errorf("error = %+v", em)
	}

	// The session survives.
	ping(t, conn)
}

func TestSessionLifecycle(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn := dial(t, ts)
	hello := handshake(t, conn, "#/")

	if srv.SessionCount() != 1 {
		t.Fatalf("SessionCount() = %d, want 1", srv.SessionCount())
	}
	sess := srv.Session(hello.SessionID)

	conn.Close()
	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session not closed after client disconnect")
	}
	if srv.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d, want 0", srv.SessionCount())
	}
	if !sess.Provider().Closed() {
		t.Error("provider not closed")
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	conn := dial(t, ts)
	handshake(t, conn, "#/")

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	frame := readFrame(t, conn)
	ct, data, err := protocol.DecodeControl(frame.Payload)
	if err != nil || ct != protocol.ControlClose {
		t.Fatalf("control = %v, %v; want Close", ct, err)
	}
	if cm := data.(*protocol.CloseMessage); cm.Reason != protocol.CloseServerShutdown {
		t.Errorf("reason = %v", cm.Reason)
	}
	if srv.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d", srv.SessionCount())
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin", nil, "", true},
		{"same origin", nil, "http://example.com", true},
		{"cross origin", nil, "http://evil.test", false},
		{"allowed", []string{"http://maps.test"}, "http://maps.test", true},
		{"not allowed", []string{"http://maps.test"}, "http://evil.test", false},
		{"wildcard", []string{"*"}, "http://evil.test", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			c := &Config{AllowedOrigins: tt.allowed}
			if got := c.checkOrigin()(r); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/geoportal-dev/hashsync/internal/errors"
	"github.com/geoportal-dev/hashsync/pkg/bookmark"
	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
	"github.com/geoportal-dev/hashsync/pkg/hashstate"
	"github.com/geoportal-dev/hashsync/pkg/history"
	"github.com/geoportal-dev/hashsync/pkg/protocol"
)

// ErrSessionClosed is returned by writes on a closed session.
var ErrSessionClosed = errors.New("H003").WithDetail("The session is closed.")

// Session is one connected browser tab.
type Session struct {
	id        string
	server    *Server
	conn      *websocket.Conn
	remote    *history.Remote
	provider  *hashstate.Provider
	debouncer *hashstate.Debouncer
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// writeMu serializes frame writes; gorilla connections support one
	// concurrent writer.
	writeMu sync.Mutex
	sendSeq atomic.Uint64
	recvSeq atomic.Uint64

	closed atomic.Bool
	done   chan struct{}
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// newSession creates a session whose provider starts at hash.
func newSession(s *Server, conn *websocket.Conn, hash string) (*Session, error) {
	id := generateSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		id:     id,
		server: s,
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	sess.logger = s.base.With("session_id", id)
	sess.remote = history.NewRemote(hash, sess.sendURL, sess.onSendError)

	provider, err := hashstate.New(sess.remote,
		hashstate.WithTable(s.table),
		hashstate.WithLogger(sess.logger),
		hashstate.WithRecorder(s.metrics),
		hashstate.WithTracer(s.tracer),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	sess.provider = provider
	sess.debouncer = hashstate.NewDebouncer(provider, s.config.Debounce)
	sess.logger = sess.logger.With("component", "session")
	return sess, nil
}

// ID returns the session id.
func (sess *Session) ID() string {
	return sess.id
}

// Provider returns the session's hash state provider.
func (sess *Session) Provider() *hashstate.Provider {
	return sess.provider
}

// Context returns a context cancelled when the session closes.
func (sess *Session) Context() context.Context {
	return sess.ctx
}

// Done returns a channel closed when the session closes.
func (sess *Session) Done() <-chan struct{} {
	return sess.done
}

// IsClosed reports whether the session is closed.
func (sess *Session) IsClosed() bool {
	return sess.closed.Load()
}

// run starts the heartbeat and blocks in the read loop.
func (sess *Session) run() {
	defer sess.server.wg.Done()
	go sess.heartbeat()
	sess.readLoop()
}

// readLoop reads frames until the connection fails or the session closes.
func (sess *Session) readLoop() {
	defer sess.Close()

	for {
		sess.conn.SetReadDeadline(time.Now().Add(sess.server.config.ReadTimeout))

		_, msg, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) && !sess.closed.Load() {
				sess.logger.Warn("read error", "error", err)
				sess.server.metrics.WebSocketError("read")
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			sess.logger.Warn("frame decode error", "error", errors.New("H060").Wrap(err))
			sess.server.metrics.WebSocketError("frame")
			sess.sendError(protocol.ErrInvalidFrame, "invalid frame")
			continue
		}

		sess.handleFrame(frame)
	}
}

// handleFrame dispatches one frame. A panic while handling it is logged
// and reported to the client without ending the session.
func (sess *Session) handleFrame(frame *protocol.Frame) {
	defer func() {
		if r := recover(); r != nil {
			sess.logger.Error("frame handler panicked",
				"frame", frame.Type,
				"panic", r,
				"stack", string(debug.Stack()))
			sess.sendError(protocol.ErrServerError, "internal error")
		}
	}()

	switch frame.Type {
	case protocol.FrameEvent:
		sess.handleEventFrame(frame.Payload)
	case protocol.FrameControl:
		sess.handleControlFrame(frame.Payload)
	case protocol.FrameHandshake:
		sess.logger.Warn("duplicate handshake ignored")
	default:
		sess.logger.Warn("unexpected frame type", "type", frame.Type)
		sess.sendError(protocol.ErrInvalidFrame, "unexpected frame type")
	}
}

func (sess *Session) handleEventFrame(payload []byte) {
	event, err := protocol.DecodeEvent(payload)
	if err != nil {
		code := "H060"
		if err == protocol.ErrUnknownEvent {
			code = "H062"
		}
		sess.logger.Warn("event decode error", "error", errors.New(code).Wrap(err))
		sess.server.metrics.WebSocketError("event")
		sess.sendError(protocol.ErrInvalidEvent, "invalid event")
		return
	}
	sess.recvSeq.Store(event.Seq)
	sess.server.metrics.Event(event.Type.String())

	switch payload := event.Payload.(type) {
	case *protocol.PopState:
		sess.remote.PopState(payload.Hash)
	case *protocol.Update:
		sess.applyUpdate(payload)
	case *protocol.BookmarkRequest:
		sess.createBookmark(payload.Title)
	}
}

// applyUpdate writes a client view change through the provider. Values are
// strings; the key codecs normalize them.
func (sess *Session) applyUpdate(u *protocol.Update) {
	partial := &hashcodec.Partial{}
	for _, p := range u.Params {
		partial.SetAny(p.Key, p.Value)
	}

	if u.Debounce {
		for _, k := range u.Remove {
			partial.SetAny(k, nil)
		}
		sess.debouncer.Update(partial)
		return
	}

	opts := []hashstate.UpdateOption{hashstate.Label(u.Label)}
	if len(u.Remove) > 0 {
		opts = append(opts, hashstate.RemoveKeys(u.Remove...))
	}
	if u.Path != "" {
		opts = append(opts, hashstate.Path(u.Path))
	}
	if u.Replace {
		opts = append(opts, hashstate.Replace)
	}
	// A pending debounced update would overwrite this one when it fires.
	sess.debouncer.Flush()
	sess.provider.UpdateHash(sess.ctx, partial, opts...)
}

// createBookmark stores the current fragment and reports its share path.
func (sess *Session) createBookmark(title string) {
	ctx, cancel := context.WithTimeout(sess.ctx, sess.server.config.WriteTimeout)
	defer cancel()

	b := &bookmark.Bookmark{Hash: sess.remote.Hash(), Title: title}
	err := sess.server.store.Save(ctx, b)
	sess.server.metrics.Bookmark("create", err)
	if err != nil {
		sess.logger.Warn("bookmark save failed", "error", err)
		sess.sendError(protocol.ErrBookmarkFailed, "bookmark could not be stored")
		return
	}

	reply := &protocol.BookmarkCreated{ID: b.ID, Path: bookmark.Path(b.ID)}
	if err := sess.sendControl(protocol.ControlBookmark, reply); err != nil {
		sess.logger.Debug("bookmark reply failed", "error", err)
	}
}

func (sess *Session) handleControlFrame(payload []byte) {
	ct, data, err := protocol.DecodeControl(payload)
	if err != nil {
		sess.logger.Warn("control decode error", "error", errors.New("H060").Wrap(err))
		return
	}

	switch ct {
	case protocol.ControlPing:
		if pp, ok := data.(*protocol.PingPong); ok {
			sess.sendControl(protocol.NewPong(pp.Timestamp))
		}
	case protocol.ControlPong:
		sess.logger.Debug("received pong")
	case protocol.ControlClose:
		if cm, ok := data.(*protocol.CloseMessage); ok {
			sess.logger.Info("client closing", "reason", cm.Reason, "message", cm.Message)
		}
		sess.Close()
	}
}

// heartbeat pings the client until the session closes.
func (sess *Session) heartbeat() {
	ticker := time.NewTicker(sess.server.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ct, pp := protocol.NewPing(uint64(time.Now().UnixMilli()))
			if err := sess.sendControl(ct, pp); err != nil {
				sess.logger.Debug("ping failed", "error", err)
				sess.Close()
				return
			}
		case <-sess.done:
			return
		}
	}
}

// sendURL is the remote location's send function.
func (sess *Session) sendURL(hash string, replace bool) error {
	patch := &protocol.URLPatch{
		Seq:     sess.sendSeq.Add(1),
		Hash:    hash,
		Replace: replace,
	}
	return sess.writeFrame(patch.Frame())
}

func (sess *Session) onSendError(err error) {
	if err == ErrSessionClosed {
		return
	}
	sess.logger.Warn("url write failed", "error", err)
	sess.server.metrics.WebSocketError("write")
}

func (sess *Session) sendServerHello() error {
	hello := protocol.NewServerHello(sess.id, uint64(time.Now().UnixMilli()), sess.remote.Hash())
	return sess.writeFrame(protocol.HandshakeFrame(hello))
}

func (sess *Session) sendControl(ct protocol.ControlType, payload any) error {
	return sess.writeFrame(protocol.ControlFrame(ct, payload))
}

func (sess *Session) sendError(code protocol.ErrorCode, message string) {
	if err := sess.writeFrame(protocol.NewError(code, message).Frame()); err != nil {
		sess.logger.Debug("error frame write failed", "error", err)
	}
}

func (sess *Session) writeFrame(frame *protocol.Frame) error {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	if sess.closed.Load() {
		return ErrSessionClosed
	}
	if len(frame.Payload) > protocol.MaxPayloadSize {
		return protocol.ErrFrameTooLarge
	}
	sess.conn.SetWriteDeadline(sess.server.writeDeadline())
	return sess.conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

// Close ends the session with a normal close message.
func (sess *Session) Close() {
	sess.closeWith(protocol.CloseNormal, "")
}

func (sess *Session) closeWith(reason protocol.CloseReason, message string) {
	if sess.closed.Load() {
		return
	}

	// Best effort close frame before the session is marked closed.
	ct, cm := protocol.NewClose(reason, message)
	sess.sendControl(ct, cm)

	sess.writeMu.Lock()
	if sess.closed.Swap(true) {
		sess.writeMu.Unlock()
		return
	}
	sess.conn.SetWriteDeadline(sess.server.writeDeadline())
	sess.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, message))
	sess.writeMu.Unlock()

	sess.debouncer.Stop()
	sess.provider.Close()
	sess.cancel()
	close(sess.done)
	sess.conn.Close()
	sess.server.removeSession(sess)
	sess.logger.Info("session closed", "reason", reason)
}

package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/websocket"

	"github.com/geoportal-dev/hashsync/internal/errors"
	"github.com/geoportal-dev/hashsync/pkg/protocol"
)

// HandleWebSocket upgrades the connection, performs the handshake and
// starts the session loops.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		s.metrics.WebSocketError("upgrade")
		return
	}

	conn.SetReadLimit(s.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.HandshakeTimeout))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.logger.Warn("handshake read failed", "error", err)
		s.metrics.WebSocketError("handshake")
		conn.Close()
		return
	}

	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		s.logger.Warn("handshake frame decode failed", "error", errors.New("H060").Wrap(err))
		s.sendHandshakeError(conn, protocol.HandshakeInvalidFormat)
		conn.Close()
		return
	}
	if frame.Type != protocol.FrameHandshake {
		s.logger.Warn("handshake frame type mismatch",
			"error", errors.New("H061"),
			"got", frame.Type,
			"expected", protocol.FrameHandshake)
		s.metrics.WebSocketError("handshake")
		s.sendFatalError(conn, protocol.ErrHandshakeExpected, "handshake expected")
		conn.Close()
		return
	}

	hello, err := protocol.DecodeClientHello(frame.Payload)
	if err != nil {
		s.logger.Warn("client hello decode failed", "error", errors.New("H060").Wrap(err))
		s.sendHandshakeError(conn, protocol.HandshakeInvalidFormat)
		conn.Close()
		return
	}
	if !hello.Version.Compatible() {
		s.logger.Info("client protocol version rejected",
			"major", hello.Version.Major,
			"minor", hello.Version.Minor)
		s.sendHandshakeError(conn, protocol.HandshakeVersionMismatch)
		conn.Close()
		return
	}

	sess, err := newSession(s, conn, hello.Hash)
	if err != nil {
		s.logger.Error("session create failed", "error", err)
		s.sendHandshakeError(conn, protocol.HandshakeInternalError)
		conn.Close()
		return
	}

	if err := sess.sendServerHello(); err != nil {
		s.logger.Warn("server hello write failed", "error", err)
		sess.Close()
		return
	}

	s.addSession(sess)
	s.wg.Add(1)
	s.logger.Info("session started", "session_id", sess.id, "hash", hello.Hash)

	if s.onSession != nil {
		s.runOnSession(sess)
	}
	go sess.run()
}

// runOnSession calls the session hook, recovering from panics so a broken
// hook does not take the server down.
func (s *Server) runOnSession(sess *Session) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session hook panicked",
				"session_id", sess.id,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	s.onSession(sess)
}

// sendHandshakeError sends a handshake error response.
func (s *Server) sendHandshakeError(conn *websocket.Conn, status protocol.HandshakeStatus) {
	frame := protocol.HandshakeFrame(protocol.NewServerHelloError(status))
	conn.SetWriteDeadline(s.writeDeadline())
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

// sendFatalError sends a fatal error frame on a connection without a
// session.
func (s *Server) sendFatalError(conn *websocket.Conn, code protocol.ErrorCode, message string) {
	frame := protocol.NewFatalError(code, message).Frame()
	conn.SetWriteDeadline(s.writeDeadline())
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

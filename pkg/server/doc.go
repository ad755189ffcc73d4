// Package server serves hashsync over HTTP and WebSocket.
//
// Each WebSocket connection is a Session. The browser opens the socket,
// sends a handshake frame carrying the fragment it was loaded with, and
// from then on reports navigation (popstate) and view changes (update)
// as event frames. The session owns a hashstate.Provider bound to a
// history.Remote that mirrors the browser location; every fragment the
// provider writes is sent back as a URL frame which the thin client
// applies with history.pushState or history.replaceState.
//
// # Routes
//
//	GET    /ws                 WebSocket endpoint
//	GET    /hashsync.js        browser thin client
//	POST   /api/hash/decode    {"hash": "#/map?z=3"} -> decoded values
//	POST   /api/hash/encode    {"path": "/map", "values": {...}} -> fragment
//	POST   /api/bookmarks      {"hash": "...", "title": "..."} -> bookmark
//	GET    /api/bookmarks/{id} bookmark JSON
//	DELETE /api/bookmarks/{id}
//	GET    /b/{id}             302 to /#<fragment>
//	GET    /metrics            Prometheus metrics
//	GET    /healthz            liveness probe
//
// # Integration
//
// Applications react to navigation by registering listeners when a
// session starts:
//
//	srv := server.New(cfg, server.WithOnSession(func(s *server.Session) {
//	    s.Provider().RegisterOnPopStateFunc(func(e hashstate.ChangeEvent) {
//	        // e.Values["zoom"] ...
//	    })
//	}))
package server

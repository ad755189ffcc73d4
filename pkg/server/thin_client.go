package server

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"

	clientdist "github.com/geoportal-dev/hashsync/client/dist"
)

var thinClientETag = func() string {
	sum := sha256.Sum256(clientdist.HashsyncJS)
	return fmt.Sprintf("%q", fmt.Sprintf("%x", sum[:16]))
}()

// serveThinClient serves the embedded browser client with ETag
// revalidation.
func (s *Server) serveThinClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", thinClientETag)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")

	if etagMatches(r.Header.Get("If-None-Match"), thinClientETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	w.Write(clientdist.HashsyncJS)
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geoportal-dev/hashsync/internal/errors"
	"github.com/geoportal-dev/hashsync/pkg/bookmark"
	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
	"github.com/geoportal-dev/hashsync/pkg/hashparam"
	"github.com/geoportal-dev/hashsync/pkg/middleware"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 64 * 1024

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.OpenTelemetry(middleware.WithTracerProvider(s.tp)))
	r.Use(s.metrics.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", s.HandleWebSocket)
	r.Get("/hashsync.js", s.serveThinClient)
	r.Head("/hashsync.js", s.serveThinClient)

	r.Route("/api", func(r chi.Router) {
		r.Post("/hash/decode", s.handleDecode)
		r.Post("/hash/encode", s.handleEncode)
		r.Post("/bookmarks", s.handleCreateBookmark)
		r.Get("/bookmarks/{id}", s.handleGetBookmark)
		r.Delete("/bookmarks/{id}", s.handleDeleteBookmark)
	})
	r.Get("/b/{id}", s.handleRedirect)
	return r
}

type decodeRequest struct {
	Hash string `json:"hash"`
}

type decodeResponse struct {
	Path   string            `json:"path"`
	Params map[string]string `json:"params"`
	Values hashcodec.Values  `json:"values"`
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	raw := hashparam.Parse(req.Hash)
	path, _ := hashparam.SplitFragment(req.Hash)
	writeJSON(w, http.StatusOK, decodeResponse{
		Path:   path,
		Params: raw.Map(),
		Values: hashparam.Decode(raw, s.table),
	})
}

type encodeRequest struct {
	Path         string                     `json:"path"`
	Values       map[string]json.RawMessage `json:"values"`
	KeyOrder     []string                   `json:"keyOrder,omitempty"`
	Alphabetical *bool                      `json:"alphabetical,omitempty"`
}

type encodeResponse struct {
	Hash string `json:"hash"`
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req encodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, encodeResponse{Hash: s.encode(req)})
}

// encode builds a fragment from scratch: no current location is merged.
func (s *Server) encode(req encodeRequest) string {
	values := make(map[string]any, len(req.Values))
	for key, raw := range req.Values {
		values[key] = s.typedValue(key, raw)
	}
	params, _ := hashparam.ApplyCodecs(hashcodec.PartialFrom(values), s.table)

	keyOrder := req.KeyOrder
	if keyOrder == nil {
		keyOrder = s.table.KeyOrder()
	}
	alphabetical := s.table.IsAlphabetical()
	if req.Alphabetical != nil {
		alphabetical = *req.Alphabetical
	}
	return hashparam.Build(req.Path, params, s.table.AliasOrder(keyOrder), alphabetical)
}

// typedValue unmarshals raw into the Go type of key's default value, so
// {"layers": ["a","b"]} reaches the list codec as []string. JSON strings
// are kept as strings and parsed by the codec.
func (s *Server) typedValue(key string, raw json.RawMessage) any {
	var str string
	if json.Unmarshal(raw, &str) == nil {
		return str
	}
	if def, ok := s.table.Default(key); ok && def != nil {
		target := reflect.New(reflect.TypeOf(def))
		if json.Unmarshal(raw, target.Interface()) == nil {
			return target.Elem().Interface()
		}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil
	}
	return fmt.Sprint(v)
}

type createBookmarkRequest struct {
	Hash  string `json:"hash"`
	Title string `json:"title,omitempty"`
}

type bookmarkResponse struct {
	*bookmark.Bookmark
	Path string `json:"path"`
}

func (s *Server) handleCreateBookmark(w http.ResponseWriter, r *http.Request) {
	var req createBookmarkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b := &bookmark.Bookmark{Hash: req.Hash, Title: req.Title}
	err := s.store.Save(r.Context(), b)
	s.metrics.Bookmark("create", err)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookmarkResponse{Bookmark: b, Path: bookmark.Path(b.ID)})
}

func (s *Server) handleGetBookmark(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	s.metrics.Bookmark("get", err)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarkResponse{Bookmark: b, Path: bookmark.Path(b.ID)})
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	err := s.store.Delete(r.Context(), chi.URLParam(r, "id"))
	s.metrics.Bookmark("delete", err)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRedirect resolves a share link to the application with the stored
// fragment.
func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	s.metrics.Bookmark("resolve", err)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	http.Redirect(w, r, "/"+b.Hash, http.StatusFound)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.HasCode(err, "H080"):
		status = http.StatusNotFound
	case errors.HasCode(err, "H082"):
		status = http.StatusBadRequest
	case errors.HasCode(err, "H081"):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "bookmark store error", "error", err)
	}
	writeError(w, status, errors.FromError(err, "H081"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("H063").Wrap(err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err *errors.HashsyncError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(err.FormatJSON()))
}

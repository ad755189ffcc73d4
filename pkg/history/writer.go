package history

import (
	"context"
	"log/slog"

	"github.com/geoportal-dev/hashsync/pkg/hashparam"
)

// WriteOptions controls a single fragment write.
type WriteOptions struct {
	// RemoveKeys are URL keys deleted after the merge.
	RemoveKeys []string

	// Label names the write in diagnostics.
	Label string

	// KeyOrder lists URL keys serialized first, in order.
	KeyOrder []string

	// Alphabetical sorts keys outside KeyOrder.
	Alphabetical bool

	// Replace rewrites the current entry instead of pushing a new one.
	Replace bool

	// Debug logs the write at info level.
	Debug bool
}

// WriteResult describes the outcome of a write.
type WriteResult struct {
	// Hash is the candidate fragment.
	Hash string

	// Params are the merged parameters the fragment was built from.
	Params *hashparam.Params

	// Written is false when the candidate equaled the current fragment.
	Written bool
}

// Writer merges parameter updates into a Location's fragment.
type Writer struct {
	loc    Location
	logger *slog.Logger
}

// NewWriter creates a writer for loc. A nil logger uses slog.Default.
func NewWriter(loc Location, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{loc: loc, logger: logger.With("component", "history")}
}

// Write merges update into the current fragment's parameters, deletes
// opts.RemoveKeys, orders and serializes the result, and pushes or
// replaces it. path is the fragment path to write; an empty path keeps the
// current one. The current fragment is read on every call, so external
// changes to the location are never lost. A candidate identical to the
// current fragment is not written.
func (w *Writer) Write(ctx context.Context, update *hashparam.Params, path string, opts WriteOptions) WriteResult {
	current := normalize(w.loc.Hash())
	currentPath, _ := hashparam.SplitFragment(current)
	if path == "" {
		path = currentPath
	}

	merged := hashparam.Merge(hashparam.Parse(current), update, opts.RemoveKeys)
	candidate := hashparam.Build(path, merged, opts.KeyOrder, opts.Alphabetical)
	result := WriteResult{Hash: candidate, Params: merged}

	if candidate == current {
		w.logger.DebugContext(ctx, "hash unchanged, skipping write",
			"label", opts.Label,
			"hash", candidate)
		return result
	}

	if opts.Replace {
		w.loc.Replace(candidate)
	} else {
		w.loc.Push(candidate)
	}
	result.Written = true

	level := slog.LevelDebug
	if opts.Debug {
		level = slog.LevelInfo
	}
	w.logger.Log(ctx, level, "hash written",
		"label", opts.Label,
		"hash", candidate,
		"previous", current,
		"replace", opts.Replace)
	return result
}

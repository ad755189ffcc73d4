package hashstate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/geoportal-dev/hashsync/internal/errors"
	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
	"github.com/geoportal-dev/hashsync/pkg/hashparam"
	"github.com/geoportal-dev/hashsync/pkg/history"
)

// ErrLocationBound is returned by New when another provider owns the
// Location.
var ErrLocationBound = errors.New("H002")

const tracerName = "github.com/geoportal-dev/hashsync/pkg/hashstate"

// Provider synchronizes view state with a Location's fragment.
type Provider struct {
	loc      history.Location
	table    *hashcodec.Table
	writer   *history.Writer
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder

	// mu serializes writes and pop-state handling and guards snapshot.
	mu       sync.Mutex
	snapshot *hashparam.Params

	subsMu sync.Mutex
	subs   []subscription
	nextID uint64

	cancelPopState func()
	closed         atomic.Bool
}

// New creates a provider for loc and subscribes to its pop-state events.
func New(loc history.Location, opts ...Option) (*Provider, error) {
	p := &Provider{loc: loc}
	for _, opt := range opts {
		opt(p)
	}
	if p.table == nil {
		p.table = hashcodec.MustGeoportal()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.writer = history.NewWriter(loc, p.logger)
	p.logger = p.logger.With("component", "hashstate")
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}

	if b, ok := loc.(history.Binder); ok && !b.Bind(p) {
		return nil, ErrLocationBound
	}

	p.snapshot = hashparam.Parse(loc.Hash())
	p.cancelPopState = loc.OnPopState(p.handlePopState)
	return p, nil
}

// Table returns the provider's alias and codec table.
func (p *Provider) Table() *hashcodec.Table {
	return p.table
}

// Location returns the owned location.
func (p *Provider) Location() history.Location {
	return p.loc
}

// GetHash returns the current raw parameters, read from the location.
func (p *Provider) GetHash() *hashparam.Params {
	return hashparam.Parse(p.loc.Hash())
}

// GetHashValues returns the current decoded values.
func (p *Provider) GetHashValues() hashcodec.Values {
	return hashparam.Decode(p.GetHash(), p.table)
}

// Path returns the current fragment path.
func (p *Provider) Path() string {
	path, _ := hashparam.SplitFragment(p.loc.Hash())
	return path
}

// Snapshot returns a copy of the last known raw parameters.
func (p *Provider) Snapshot() *hashparam.Params {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot.Clone()
}

// UpdateHash encodes update, merges it into the current fragment and
// writes the result. Keys whose codec omits the value are removed from the
// URL. It reports whether a history mutation happened; an update that
// leaves the fragment unchanged writes nothing.
func (p *Provider) UpdateHash(ctx context.Context, update *hashcodec.Partial, opts ...UpdateOption) bool {
	if p.closed.Load() {
		p.logger.DebugContext(ctx, "update on closed provider ignored")
		return false
	}

	var o Options
	for _, opt := range opts {
		opt.applyUpdate(&o)
	}

	ctx, span := p.tracer.Start(ctx, "hashstate.UpdateHash",
		trace.WithAttributes(
			attribute.String("hashstate.label", o.Label),
			attribute.Bool("hashstate.replace", o.Replace),
			attribute.Int("hashstate.keys", update.Len()),
		))
	defer span.End()

	raw, undefined := hashparam.ApplyCodecs(update, p.table)
	remove := append(undefined, p.table.AliasOrder(o.RemoveKeys)...)
	keyOrder := o.KeyOrder
	if keyOrder == nil {
		keyOrder = p.table.KeyOrder()
	}

	p.mu.Lock()
	result := p.writer.Write(ctx, raw, o.Path, history.WriteOptions{
		RemoveKeys:   remove,
		Label:        o.Label,
		KeyOrder:     p.table.AliasOrder(keyOrder),
		Alphabetical: p.table.IsAlphabetical(),
		Replace:      o.Replace,
		Debug:        o.Debug,
	})
	p.snapshot = result.Params.Clone()
	p.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("hashstate.written", result.Written),
		attribute.String("hashstate.hash", result.Hash),
	)
	if result.Written {
		p.recorder.HashWritten(o.Replace)
	} else {
		p.recorder.HashSkipped()
	}
	return result.Written
}

// Close unsubscribes from pop-state events and releases the location.
// It is safe to call more than once.
func (p *Provider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.cancelPopState != nil {
		p.cancelPopState()
	}
	if b, ok := p.loc.(history.Binder); ok {
		b.Unbind(p)
	}
	p.subsMu.Lock()
	p.subs = nil
	p.subsMu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (p *Provider) Closed() bool {
	return p.closed.Load()
}

package hashstate

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/geoportal-dev/hashsync/internal/errors"
	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
	"github.com/geoportal-dev/hashsync/pkg/hashparam"
)

// Source identifies what triggered a ChangeEvent.
type Source string

// SourcePopState marks events caused by browser navigation.
const SourcePopState Source = "popstate"

// ChangeEvent describes a fragment change observed through navigation.
// Listeners must treat it as read-only; all listeners share it.
type ChangeEvent struct {
	// Raw are the new parameters keyed by URL alias.
	Raw *hashparam.Params

	// Values are Raw decoded to logical keys.
	Values hashcodec.Values

	// ChangedKeys are logical keys whose value changed, appeared or
	// disappeared.
	ChangedKeys []string

	// RemovedKeys are logical keys that disappeared.
	RemovedKeys []string

	Source Source
}

// Listener receives pop-state change events.
type Listener interface {
	OnPopState(ChangeEvent)
}

// ListenerFunc adapts a function to Listener. Function values cannot be
// compared, so each registration of a ListenerFunc is distinct.
type ListenerFunc func(ChangeEvent)

// OnPopState implements Listener.
func (f ListenerFunc) OnPopState(e ChangeEvent) {
	f(e)
}

type subscription struct {
	id       uint64
	listener Listener
}

// RegisterOnPopState adds a listener for navigation events and returns a
// function that removes it. Registering a listener that is already
// registered is a no-op and returns an unsubscribe for the existing
// registration.
func (p *Provider) RegisterOnPopState(l Listener) (unsubscribe func()) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()

	if isComparable(l) {
		for _, s := range p.subs {
			if sameListener(s.listener, l) {
				return p.unsubscriber(s.id)
			}
		}
	}
	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscription{id: id, listener: l})
	return p.unsubscriber(id)
}

// RegisterOnPopStateFunc registers fn as a listener.
func (p *Provider) RegisterOnPopStateFunc(fn func(ChangeEvent)) (unsubscribe func()) {
	return p.RegisterOnPopState(ListenerFunc(fn))
}

// Listeners returns the number of registered listeners.
func (p *Provider) Listeners() int {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	return len(p.subs)
}

func (p *Provider) unsubscriber(id uint64) func() {
	return func() {
		p.subsMu.Lock()
		defer p.subsMu.Unlock()
		for i, s := range p.subs {
			if s.id == id {
				p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

func isComparable(l Listener) bool {
	return l != nil && reflect.TypeOf(l).Comparable()
}

// sameListener compares two listeners. A comparable type can still hold an
// uncomparable value in an interface field; such listeners are distinct.
func sameListener(a, b Listener) (same bool) {
	if !isComparable(a) {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// handlePopState runs for every navigation event on the location. The
// snapshot is updated before listeners run, so a listener that calls
// UpdateHash diffs against the new state.
func (p *Provider) handlePopState() {
	if p.closed.Load() {
		return
	}
	ctx, span := p.tracer.Start(context.Background(), "hashstate.popstate")
	defer span.End()

	p.mu.Lock()
	raw := hashparam.Parse(p.loc.Hash())
	changed, removed := hashparam.Diff(p.snapshot, raw)
	p.snapshot = raw.Clone()
	p.mu.Unlock()

	event := ChangeEvent{
		Raw:         raw,
		Values:      hashparam.Decode(raw, p.table),
		ChangedKeys: hashparam.DecodeKeys(changed, p.table),
		RemovedKeys: hashparam.DecodeKeys(removed, p.table),
		Source:      SourcePopState,
	}

	p.subsMu.Lock()
	subs := make([]subscription, len(p.subs))
	copy(subs, p.subs)
	p.subsMu.Unlock()

	span.SetAttributes(
		attribute.Int("hashstate.listeners", len(subs)),
		attribute.StringSlice("hashstate.changed", event.ChangedKeys),
	)
	p.logger.DebugContext(ctx, "popstate",
		"changed", event.ChangedKeys,
		"removed", event.RemovedKeys,
		"listeners", len(subs))

	failed := 0
	for _, s := range subs {
		if !p.dispatch(ctx, s.listener, event) {
			failed++
		}
	}
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d listener(s) panicked", failed))
	}
	p.recorder.PopStateDispatched(len(subs))
}

// dispatch calls one listener, recovering from panics so the remaining
// listeners still run.
func (p *Provider) dispatch(ctx context.Context, l Listener, event ChangeEvent) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			p.recorder.ListenerPanicked()
			p.logger.ErrorContext(ctx, "popstate listener panicked",
				"error", errors.New("H004"),
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	l.OnPopState(event)
	return true
}

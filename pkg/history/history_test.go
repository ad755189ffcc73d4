package history

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/geoportal-dev/hashsync/pkg/hashparam"
)

func TestMemoryPushReplace(t *testing.T) {
	m := NewMemory("#/map")

	m.Push("#/map?z=1")
	m.Push("#/map?z=2")
	m.Replace("#/map?z=3")

	if m.Hash() != "#/map?z=3" {
		t.Errorf("Hash = %q", m.Hash())
	}
	if m.Len() != 3 {
		t.Errorf("Len = %d, want 3", m.Len())
	}
	if m.Mutations() != 3 {
		t.Errorf("Mutations = %d, want 3", m.Mutations())
	}
}

func TestMemoryNavigationFiresPopState(t *testing.T) {
	m := NewMemory("#/a")
	m.Push("#/b")
	m.Push("#/c")

	var seen []string
	cancel := m.OnPopState(func() { seen = append(seen, m.Hash()) })

	if !m.Back() {
		t.Fatal("Back should succeed")
	}
	if !m.Go(-1) {
		t.Fatal("Go(-1) should succeed")
	}
	if m.Back() {
		t.Error("Back at start should fail")
	}
	if !m.Forward() {
		t.Fatal("Forward should succeed")
	}
	if m.Go(5) {
		t.Error("Go out of range should fail")
	}

	if !reflect.DeepEqual(seen, []string{"#/b", "#/a", "#/b"}) {
		t.Errorf("popstate hashes = %v", seen)
	}

	cancel()
	cancel()
	m.Back()
	if len(seen) != 3 {
		t.Error("cancelled listener should not fire")
	}
	if m.Listeners() != 0 {
		t.Errorf("Listeners = %d, want 0", m.Listeners())
	}
}

func TestMemoryPushTruncatesForward(t *testing.T) {
	m := NewMemory("#/a")
	m.Push("#/b")
	m.Push("#/c")
	m.Back()
	m.Back()
	m.Push("#/d")

	if !reflect.DeepEqual(m.Entries(), []string{"#/a", "#/d"}) {
		t.Errorf("Entries = %v", m.Entries())
	}
	if m.Index() != 1 {
		t.Errorf("Index = %d", m.Index())
	}
}

func TestMemoryWritesDoNotFirePopState(t *testing.T) {
	m := NewMemory("")
	fired := 0
	m.OnPopState(func() { fired++ })

	m.Push("#/x")
	m.Replace("#/y")
	if fired != 0 {
		t.Errorf("writes fired popstate %d times", fired)
	}

	m.Navigate("#/?z=5")
	m.DispatchPopState()
	if fired != 2 {
		t.Errorf("fired = %d, want 2", fired)
	}
}

func TestBinding(t *testing.T) {
	m := NewMemory("")
	a, b := new(int), new(int)

	if !m.Bind(a) {
		t.Fatal("first Bind should succeed")
	}
	if !m.Bind(a) {
		t.Error("re-binding the same owner should succeed")
	}
	if m.Bind(b) {
		t.Error("second owner should be rejected")
	}
	m.Unbind(b)
	if m.Bind(b) {
		t.Error("Unbind by a non-owner must not release")
	}
	m.Unbind(a)
	if !m.Bind(b) {
		t.Error("Bind after release should succeed")
	}
}

func TestRemote(t *testing.T) {
	type sent struct {
		hash    string
		replace bool
	}
	var out []sent
	var errs []error
	failNext := false
	r := NewRemote("#/map", func(hash string, replace bool) error {
		if failNext {
			return errors.New("closed")
		}
		out = append(out, sent{hash, replace})
		return nil
	}, func(err error) { errs = append(errs, err) })

	r.Push("#/map?z=3")
	r.Replace("#/map?z=4")
	failNext = true
	r.Push("#/map?z=5")

	if r.Hash() != "#/map?z=5" {
		t.Errorf("Hash = %q", r.Hash())
	}
	if !reflect.DeepEqual(out, []sent{{"#/map?z=3", false}, {"#/map?z=4", true}}) {
		t.Errorf("sent = %v", out)
	}
	if len(errs) != 1 {
		t.Errorf("errors = %v", errs)
	}

	fired := 0
	r.OnPopState(func() { fired++ })
	r.PopState("#/map?z=1")
	if fired != 1 || r.Hash() != "#/map?z=1" {
		t.Errorf("PopState: fired=%d hash=%q", fired, r.Hash())
	}
}

func TestWriterMergesAndOrders(t *testing.T) {
	m := NewMemory("#/map?bg=osm&m=area")
	w := NewWriter(m, nil)

	update := hashparam.NewParams()
	update.Set("lng", "7.1")
	update.Set("z", "12")

	res := w.Write(context.Background(), update, "", WriteOptions{
		RemoveKeys: []string{"m"},
		KeyOrder:   []string{"z", "lat", "lng"},
		Label:      "pan",
	})

	want := "#/map?z=12&lng=7.1&bg=osm"
	if !res.Written || res.Hash != want || m.Hash() != want {
		t.Errorf("Write = %+v, location = %q, want %q", res, m.Hash(), want)
	}
	if m.Len() != 2 {
		t.Errorf("push should add an entry, Len = %d", m.Len())
	}
}

func TestWriterAlphabetical(t *testing.T) {
	m := NewMemory("#/")
	w := NewWriter(m, nil)

	update := hashparam.NewParams()
	update.Set("other", "3")
	update.Set("zoom", "2")
	update.Set("lng", "1")
	update.Set("alpha", "4")

	res := w.Write(context.Background(), update, "", WriteOptions{
		KeyOrder:     []string{"zoom", "lat", "lng"},
		Alphabetical: true,
	})
	if res.Hash != "#/?zoom=2&lng=1&alpha=4&other=3" {
		t.Errorf("Hash = %q", res.Hash)
	}
}

func TestWriterSkipsIdenticalHash(t *testing.T) {
	m := NewMemory("#/map")
	w := NewWriter(m, nil)

	update := hashparam.NewParams()
	update.Set("z", "12")

	first := w.Write(context.Background(), update, "", WriteOptions{})
	second := w.Write(context.Background(), update, "", WriteOptions{Debug: true})

	if !first.Written || second.Written {
		t.Errorf("first.Written=%v second.Written=%v", first.Written, second.Written)
	}
	if m.Mutations() != 1 {
		t.Errorf("Mutations = %d, want 1", m.Mutations())
	}
}

func TestWriterReplaceAndPath(t *testing.T) {
	m := NewMemory("#/map?z=3")
	w := NewWriter(m, nil)

	update := hashparam.NewParams()
	update.Set("z", "4")
	res := w.Write(context.Background(), update, "/oblique", WriteOptions{Replace: true})

	if res.Hash != "#/oblique?z=4" {
		t.Errorf("Hash = %q", res.Hash)
	}
	if m.Len() != 1 {
		t.Errorf("replace must not add entries, Len = %d", m.Len())
	}
}

func TestWriterToleratesMalformedCurrent(t *testing.T) {
	m := NewMemory("#/map?a=%zz")
	w := NewWriter(m, nil)

	update := hashparam.NewParams()
	update.Set("z", "1")
	res := w.Write(context.Background(), update, "", WriteOptions{})
	if res.Hash != "#/map?z=1" {
		t.Errorf("Hash = %q", res.Hash)
	}
}

func TestWriterRemovingEverything(t *testing.T) {
	m := NewMemory("#/map?z=1")
	w := NewWriter(m, nil)

	res := w.Write(context.Background(), hashparam.NewParams(), "", WriteOptions{RemoveKeys: []string{"z"}})
	if res.Hash != "#/map" || m.Hash() != "#/map" {
		t.Errorf("Hash = %q", res.Hash)
	}
}

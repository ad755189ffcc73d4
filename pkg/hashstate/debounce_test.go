package hashstate

import (
	"testing"
	"time"

	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
)

func TestDebouncerCoalesces(t *testing.T) {
	p, loc := newTestProvider(t, "#/map?z=3")
	d := NewDebouncer(p, time.Hour, Label("pan"))
	defer d.Stop()

	for i := 0; i < 5; i++ {
		u := &hashcodec.Partial{}
		hashcodec.Set(u, hashcodec.Lat, float64(i))
		d.Update(u)
	}
	u := &hashcodec.Partial{}
	hashcodec.Set(u, hashcodec.Zoom, 9)
	d.Update(u)

	if !d.Pending() {
		t.Fatal("Pending() = false after Update")
	}
	if !d.Flush() {
		t.Fatal("Flush() = false, want true")
	}
	if got, want := loc.Hash(), "#/map?z=9&lat=4"; got != want {
		t.Errorf("Hash() = %q, want %q", got, want)
	}
	if loc.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (replace mode)", loc.Len())
	}
	if d.Flush() {
		t.Error("second Flush() = true, want false")
	}
}

func TestDebouncerFiresAfterDelay(t *testing.T) {
	p, loc := newTestProvider(t, "#/")
	d := NewDebouncer(p, 10*time.Millisecond)
	defer d.Stop()

	u := &hashcodec.Partial{}
	hashcodec.Set(u, hashcodec.Zoom, 4)
	d.Update(u)

	deadline := time.Now().Add(2 * time.Second)
	for loc.Hash() != "#/?z=4" {
		if time.Now().After(deadline) {
			t.Fatalf("Hash() = %q after delay, want #/?z=4", loc.Hash())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDebouncerStop(t *testing.T) {
	p, loc := newTestProvider(t, "#/")
	d := NewDebouncer(p, time.Hour)

	u := &hashcodec.Partial{}
	hashcodec.Set(u, hashcodec.Zoom, 4)
	d.Update(u)
	d.Stop()
	d.Update(u)

	if d.Pending() {
		t.Error("Pending() = true after Stop")
	}
	if d.Flush() {
		t.Error("Flush() after Stop wrote")
	}
	if loc.Mutations() != 0 {
		t.Errorf("Mutations() = %d, want 0", loc.Mutations())
	}
}

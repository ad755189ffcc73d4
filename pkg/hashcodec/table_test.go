package hashcodec

import (
	"reflect"
	"testing"

	"github.com/geoportal-dev/hashsync/internal/errors"
)

func TestGeoportalTable(t *testing.T) {
	table := MustGeoportal()

	if got := table.Alias("zoom"); got != "z" {
		t.Errorf("Alias(zoom) = %q, want z", got)
	}
	if got := table.Key("z"); got != "zoom" {
		t.Errorf("Key(z) = %q, want zoom", got)
	}
	if got := table.Alias("unknown"); got != "unknown" {
		t.Errorf("Alias(unknown) = %q", got)
	}
	if got := table.Key("x"); got != "x" {
		t.Errorf("Key(x) = %q", got)
	}
	if !reflect.DeepEqual(table.KeyOrder(), []string{"zoom", "lat", "lng"}) {
		t.Errorf("KeyOrder = %v", table.KeyOrder())
	}
	if !reflect.DeepEqual(table.AliasOrder(table.KeyOrder()), []string{"z", "lat", "lng"}) {
		t.Errorf("AliasOrder = %v", table.AliasOrder(table.KeyOrder()))
	}
	if table.IsAlphabetical() {
		t.Error("default table should keep input order")
	}
	if _, ok := table.Codec("zoom"); !ok {
		t.Error("zoom should have a codec")
	}
	if def, ok := table.Default("zoom"); !ok || def != 0 {
		t.Errorf("Default(zoom) = %v, %v", def, ok)
	}
	if _, ok := table.Default("nope"); ok {
		t.Error("unknown key should have no default")
	}
}

func TestNewTableDuplicateAlias(t *testing.T) {
	_, err := NewTable([]Entry{
		{Name: "zoom", Alias: "z", Codec: Int(0)},
		{Name: "zenith", Alias: "z", Codec: Float(0, 1)},
	})
	if !errors.HasCode(err, "H123") {
		t.Fatalf("err = %v, want H123", err)
	}
}

func TestWithAliases(t *testing.T) {
	table, err := Geoportal(WithAliases(map[string]string{
		"zoom":  "zl",
		"theme": "t",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if table.Alias("zoom") != "zl" {
		t.Errorf("Alias(zoom) = %q, want zl", table.Alias("zoom"))
	}
	if table.Key("t") != "theme" {
		t.Errorf("Key(t) = %q, want theme", table.Key("t"))
	}
	if _, ok := table.Codec("theme"); ok {
		t.Error("alias-only key should have no codec")
	}
}

func TestTableWith(t *testing.T) {
	base := MustGeoportal()
	alpha, err := base.With(Alphabetical(true))
	if err != nil {
		t.Fatal(err)
	}
	if !alpha.IsAlphabetical() {
		t.Error("With(Alphabetical) should apply")
	}
	if base.IsAlphabetical() {
		t.Error("With must not modify the original table")
	}
	if !reflect.DeepEqual(alpha.KeyOrder(), base.KeyOrder()) {
		t.Error("With should keep the key order")
	}
}

func TestPartial(t *testing.T) {
	var p Partial
	Set(&p, Zoom, 12)
	Set(&p, Lat, 51.27)
	Set(&p, Zoom, 13)
	Unset(&p, Mode)

	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3", p.Len())
	}
	if !reflect.DeepEqual(p.Keys(), []string{"zoom", "lat", "mode"}) {
		t.Errorf("Keys = %v", p.Keys())
	}

	got := map[string]any{}
	p.Range(func(k string, v any) { got[k] = v })
	if got["zoom"] != 13 {
		t.Errorf("zoom = %v, want 13", got["zoom"])
	}
	if got["mode"] != nil {
		t.Errorf("mode = %v, want nil", got["mode"])
	}

	var nilPartial *Partial
	if nilPartial.Len() != 0 || nilPartial.Keys() != nil {
		t.Error("nil partial should be empty")
	}
}

func TestPartialFrom(t *testing.T) {
	p := PartialFrom(map[string]any{"lng": 7.1, "bg": "ortho", "zoom": 3})
	if !reflect.DeepEqual(p.Keys(), []string{"bg", "lng", "zoom"}) {
		t.Errorf("Keys = %v", p.Keys())
	}
}

func TestKeyGet(t *testing.T) {
	values := Values{"zoom": 5, "lat": "not-a-float"}
	if Zoom.Get(values) != 5 {
		t.Errorf("Zoom.Get = %v", Zoom.Get(values))
	}
	if Lat.Get(values) != 0 {
		t.Errorf("mistyped Lat.Get = %v, want default", Lat.Get(values))
	}
	if Layers.Get(values) != nil {
		t.Errorf("missing Layers.Get = %v, want nil", Layers.Get(values))
	}
}

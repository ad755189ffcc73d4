package hashparam

import (
	"reflect"
	"testing"

	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
)

func TestApplyCodecs(t *testing.T) {
	table := hashcodec.MustGeoportal()

	var update hashcodec.Partial
	hashcodec.Set(&update, hashcodec.Zoom, 12)
	hashcodec.Set(&update, hashcodec.Lat, 51.27)
	hashcodec.Set(&update, hashcodec.Mode, "")
	hashcodec.Set(&update, hashcodec.Measure, false)
	update.SetAny("theme", "dark")
	update.SetAny("count", 3)
	update.SetAny("gone", nil)

	raw, undefined := ApplyCodecs(&update, table)

	want := map[string]string{"z": "12", "lat": "51.27", "theme": "dark", "count": "3"}
	if !reflect.DeepEqual(raw.Map(), want) {
		t.Errorf("raw = %v, want %v", raw.Map(), want)
	}
	if !reflect.DeepEqual(raw.Keys(), []string{"z", "lat", "theme", "count"}) {
		t.Errorf("raw keys = %v", raw.Keys())
	}
	if !reflect.DeepEqual(undefined, []string{"m", "ms", "gone"}) {
		t.Errorf("undefined = %v, want [m ms gone]", undefined)
	}
}

func TestApplyCodecsUntypedValues(t *testing.T) {
	table := hashcodec.MustGeoportal()

	var update hashcodec.Partial
	update.SetAny("flags", map[string]any{"a": true})
	update.SetAny("zoom", int64(0))

	raw, undefined := ApplyCodecs(&update, table)
	if raw.Has("z") {
		t.Errorf("default zoom written: %v", raw.Map())
	}
	if !reflect.DeepEqual(undefined, []string{"z"}) {
		t.Errorf("undefined = %v, want [z]", undefined)
	}

	values := Decode(raw, table)
	if want := map[string]bool{"a": true}; !reflect.DeepEqual(values["flags"], want) {
		t.Errorf("flags = %#v, want %v", values["flags"], want)
	}
}

func TestDecodeAliasWinsOverLogicalName(t *testing.T) {
	table := hashcodec.MustGeoportal()
	tests := []struct {
		fragment string
		want     int
	}{
		{"#/?zoom=3&z=5", 5},
		{"#/?z=5&zoom=3", 5},
		{"#/?zoom=3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			values := Decode(Parse(tt.fragment), table)
			if values["zoom"] != tt.want {
				t.Errorf("zoom = %v, want %d", values["zoom"], tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	table := hashcodec.MustGeoportal()
	raw := Parse("#/map?z=5&l=ortho%2Cparcels&ms=1&theme=dark")

	values := Decode(raw, table)

	if values["zoom"] != 5 {
		t.Errorf("zoom = %v, want 5", values["zoom"])
	}
	if !reflect.DeepEqual(values["layers"], []string{"ortho", "parcels"}) {
		t.Errorf("layers = %v", values["layers"])
	}
	if values["measure"] != true {
		t.Errorf("measure = %v", values["measure"])
	}
	if values["theme"] != "dark" {
		t.Errorf("unknown key passthrough = %v", values["theme"])
	}
	if values["lat"] != 0.0 {
		t.Errorf("absent lat = %v, want default 0", values["lat"])
	}
	if _, ok := values["z"]; ok {
		t.Error("aliases must be translated to logical keys")
	}
}

func TestCodecRoundTripThroughURL(t *testing.T) {
	table := hashcodec.MustGeoportal()

	var update hashcodec.Partial
	hashcodec.Set(&update, hashcodec.Zoom, 14)
	hashcodec.Set(&update, hashcodec.Lng, 7.150764)
	hashcodec.Set(&update, hashcodec.Layers, []string{"ortho", "parcels"})
	hashcodec.Set(&update, hashcodec.Flags, map[string]bool{"3d": true})

	raw, _ := ApplyCodecs(&update, table)
	values := Decode(Parse(Build("/map", raw, nil, false)), table)

	if hashcodec.Zoom.Get(values) != 14 {
		t.Errorf("zoom = %v", values["zoom"])
	}
	if hashcodec.Lng.Get(values) != 7.150764 {
		t.Errorf("lng = %v", values["lng"])
	}
	if !reflect.DeepEqual(hashcodec.Layers.Get(values), []string{"ortho", "parcels"}) {
		t.Errorf("layers = %v", values["layers"])
	}
	if !hashcodec.Flags.Get(values)["3d"] {
		t.Errorf("flags = %v", values["flags"])
	}
}

func TestDecodeKeys(t *testing.T) {
	got := DecodeKeys([]string{"z", "lat", "x"}, hashcodec.MustGeoportal())
	if !reflect.DeepEqual(got, []string{"zoom", "lat", "x"}) {
		t.Errorf("DecodeKeys = %v", got)
	}
}

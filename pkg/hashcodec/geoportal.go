package hashcodec

// Keys of the default geoportal table.
var (
	Zoom       = NewKey("zoom", "z", Int(0))
	Lat        = NewKey("lat", "lat", Float(0, 6))
	Lng        = NewKey("lng", "lng", Float(0, 6))
	Layers     = NewKey("layers", "l", List(","))
	Background = NewKey("background", "bg", String(""))
	Mode       = NewKey("mode", "m", String(""))
	Flags      = NewKey("flags", "f", JSON[map[string]bool]())
	Selected   = NewKey("selected", "sel", String(""))
	Pitch      = NewKey("pitch", "p", Float(0, 1))
	Heading    = NewKey("heading", "h", Float(0, 1))
	Measure    = NewKey("measure", "ms", Bool())
)

var geoportalEntries = []Entry{
	Zoom.Entry(),
	Lat.Entry(),
	Lng.Entry(),
	Layers.Entry(),
	Background.Entry(),
	Mode.Entry(),
	Flags.Entry(),
	Selected.Entry(),
	Pitch.Entry(),
	Heading.Entry(),
	Measure.Entry(),
}

// Geoportal returns the table shared by the map applications: position
// first, then everything else in input order.
func Geoportal(opts ...TableOption) (*Table, error) {
	base := []TableOption{WithKeyOrder(Zoom.Name(), Lat.Name(), Lng.Name())}
	return NewTable(geoportalEntries, append(base, opts...)...)
}

// MustGeoportal is Geoportal without options, panicking on error.
func MustGeoportal() *Table {
	return MustTable(geoportalEntries, WithKeyOrder(Zoom.Name(), Lat.Name(), Lng.Name()))
}

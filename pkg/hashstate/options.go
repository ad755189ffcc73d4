package hashstate

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
)

// Option configures a Provider.
type Option func(*Provider)

// WithTable sets the alias and codec table. The default is the geoportal
// table.
func WithTable(t *hashcodec.Table) Option {
	return func(p *Provider) {
		p.table = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Provider) {
		p.recorder = r
	}
}

// WithTracer sets the tracer used for write and pop-state spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Provider) {
		p.tracer = t
	}
}

// UpdateOption configures a single UpdateHash call.
type UpdateOption interface {
	applyUpdate(*Options)
}

// Options is the full set of per-update settings. Keys are logical key
// names; they are translated to URL aliases before writing.
type Options struct {
	// RemoveKeys are deleted from the URL after the merge.
	RemoveKeys []string

	// Label names the update in logs and traces.
	Label string

	// KeyOrder overrides the table's serialization order.
	KeyOrder []string

	// Replace rewrites the current history entry instead of pushing.
	Replace bool

	// Debug logs the write at info level.
	Debug bool

	// Path overrides the fragment path. Empty keeps the current path.
	Path string
}

// applyUpdate merges the set fields of o into dst. Zero fields leave
// earlier options in place; RemoveKeys accumulate.
func (o Options) applyUpdate(dst *Options) {
	dst.RemoveKeys = append(dst.RemoveKeys, o.RemoveKeys...)
	if o.Label != "" {
		dst.Label = o.Label
	}
	if o.KeyOrder != nil {
		dst.KeyOrder = append([]string(nil), o.KeyOrder...)
	}
	if o.Replace {
		dst.Replace = true
	}
	if o.Debug {
		dst.Debug = true
	}
	if o.Path != "" {
		dst.Path = o.Path
	}
}

// Mode options are values rather than functions, as they take no
// arguments.
var (
	// Push adds a new history entry (default behavior).
	Push UpdateOption = modeOption{replace: false}

	// Replace rewrites the current history entry.
	Replace UpdateOption = modeOption{replace: true}

	// Debug logs the write at info level.
	Debug UpdateOption = debugOption{}
)

type modeOption struct {
	replace bool
}

func (o modeOption) applyUpdate(c *Options) {
	c.Replace = o.replace
}

type debugOption struct{}

func (debugOption) applyUpdate(c *Options) {
	c.Debug = true
}

type optionFunc func(*Options)

func (f optionFunc) applyUpdate(c *Options) {
	f(c)
}

// RemoveKeys deletes logical keys from the URL.
func RemoveKeys(keys ...string) UpdateOption {
	return optionFunc(func(c *Options) {
		c.RemoveKeys = append(c.RemoveKeys, keys...)
	})
}

// Label names the update for diagnostics.
func Label(label string) UpdateOption {
	return optionFunc(func(c *Options) {
		c.Label = label
	})
}

// KeyOrder overrides the serialization order with logical keys.
func KeyOrder(keys ...string) UpdateOption {
	return optionFunc(func(c *Options) {
		c.KeyOrder = append([]string(nil), keys...)
	})
}

// Path writes the update under a different fragment path.
func Path(path string) UpdateOption {
	return optionFunc(func(c *Options) {
		c.Path = path
	})
}

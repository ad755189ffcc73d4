package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/geoportal-dev/hashsync/internal/errors"
	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "hashsync.json"

	// YAMLConfigFileName is the name of the YAML configuration file.
	YAMLConfigFileName = "hashsync.yaml"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultDebounce is the default delay for debounced updates.
	DefaultDebounce = 250 * time.Millisecond
)

// Bookmark backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Config represents the complete hashsync configuration.
type Config struct {
	Server    ServerConfig   `json:"server,omitempty" yaml:"server,omitempty"`
	Hash      HashConfig     `json:"hash,omitempty" yaml:"hash,omitempty"`
	Bookmarks BookmarkConfig `json:"bookmarks,omitempty" yaml:"bookmarks,omitempty"`
	Log       LogConfig      `json:"log,omitempty" yaml:"log,omitempty"`
	Metrics   MetricsConfig  `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`

	// AllowedOrigins restricts WebSocket upgrades. Empty allows same-origin
	// requests only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`
}

// HashConfig customizes the URL fragment table.
type HashConfig struct {
	// Aliases overrides URL aliases by logical key.
	Aliases map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// KeyOrder lists logical keys serialized first.
	KeyOrder []string `json:"keyOrder,omitempty" yaml:"keyOrder,omitempty"`

	// Alphabetical sorts the remaining keys.
	Alphabetical bool `json:"alphabetical,omitempty" yaml:"alphabetical,omitempty"`

	// Debounce is the delay for debounced updates (e.g., "250ms").
	Debounce string `json:"debounce,omitempty" yaml:"debounce,omitempty"`
}

// BookmarkConfig selects and configures the bookmark store.
type BookmarkConfig struct {
	Backend string       `json:"backend,omitempty" yaml:"backend,omitempty"`
	SQLite  SQLiteConfig `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	S3      S3Config     `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// SQLiteConfig configures the SQLite bookmark store.
type SQLiteConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// S3Config configures the S3 bookmark store. Credentials are read from
// AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// ProcessCollectors adds Go runtime and process metrics.
	ProcessCollectors bool `json:"processCollectors,omitempty" yaml:"processCollectors,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from dir, preferring hashsync.json over
// hashsync.yaml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("H141").
		WithDetail("No " + ConfigFileName + " or " + YAMLConfigFileName + " found in " + dir).
		WithSuggestion("Create " + ConfigFileName + " or run without --config to use defaults")
}

// LoadFile reads configuration from the specified file path. Files ending
// in .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("H141").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("H120").Wrap(err)
	}

	cfg := &Config{}
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("H120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("H120").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// SaveTo writes the configuration to path in the format its extension
// selects.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("H120").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("H120").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Hash.Debounce == "" {
		c.Hash.Debounce = DefaultDebounce.String()
	}
	if c.Bookmarks.Backend == "" {
		c.Bookmarks.Backend = BackendMemory
	}
	if c.Bookmarks.SQLite.Path == "" {
		c.Bookmarks.SQLite.Path = "hashsync.db"
	}
	if c.Bookmarks.S3.Prefix == "" {
		c.Bookmarks.S3.Prefix = "bookmarks/"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "hashsync"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("H122").
			WithDetail("Port must be between 0 and 65535, got " + strconv.Itoa(c.Server.Port))
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return errors.New("H120").WithDetail("server.shutdownTimeout: " + err.Error())
	}
	if _, err := time.ParseDuration(c.Hash.Debounce); err != nil {
		return errors.New("H120").WithDetail("hash.debounce: " + err.Error())
	}
	switch c.Bookmarks.Backend {
	case BackendMemory, BackendSQLite:
	case BackendS3:
		if c.Bookmarks.S3.Bucket == "" || c.Bookmarks.S3.Region == "" {
			return errors.New("H121").
				WithDetail("The s3 backend requires bookmarks.s3.bucket and bookmarks.s3.region")
		}
	default:
		return errors.New("H121").
			WithDetail("Unknown bookmark backend " + strconv.Quote(c.Bookmarks.Backend))
	}
	if _, err := c.LogLevel(); err != nil {
		return errors.New("H120").WithDetail("log.level: " + err.Error())
	}
	if _, err := c.Table(); err != nil {
		return err
	}
	return nil
}

// Address returns the host:port listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ShutdownTimeout returns the parsed graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// Debounce returns the parsed debounce delay.
func (c *Config) Debounce() time.Duration {
	d, err := time.ParseDuration(c.Hash.Debounce)
	if err != nil {
		return DefaultDebounce
	}
	return d
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	return level, err
}

// Logger builds the process logger from the log settings.
func (c *Config) Logger() *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Table builds the fragment table: the geoportal defaults with the
// configured aliases, key order and sorting.
func (c *Config) Table() (*hashcodec.Table, error) {
	var opts []hashcodec.TableOption
	if len(c.Hash.Aliases) > 0 {
		opts = append(opts, hashcodec.WithAliases(c.Hash.Aliases))
	}
	if len(c.Hash.KeyOrder) > 0 {
		opts = append(opts, hashcodec.WithKeyOrder(c.Hash.KeyOrder...))
	}
	if c.Hash.Alphabetical {
		opts = append(opts, hashcodec.Alphabetical(true))
	}
	return hashcodec.Geoportal(opts...)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindRoot walks up from startDir to the first directory holding a
// configuration file.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("H141").
				WithDetail("No configuration found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working
// directory or its parents.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}

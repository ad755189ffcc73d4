package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geoportal-dev/hashsync/internal/config"
	"github.com/geoportal-dev/hashsync/internal/errors"
	"github.com/geoportal-dev/hashsync/pkg/bookmark"
)

// run executes the CLI with a config written to a temp dir.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	if err := config.New().SaveTo(path); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", path}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"basic", []string{"encode", "--path", "/map", "zoom=12", "lat=51.2734567"}, "#/map?z=12&lat=51.273457"},
		{"order", []string{"encode", "--order", "background,zoom", "zoom=3", "background=dark"}, "#/?bg=dark&z=3"},
		{"pruned", []string{"encode", "zoom=5", "measure=0"}, "#/?z=5"},
		{"unknown key", []string{"encode", "zoom=5", "debug=on"}, "#/?z=5&debug=on"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeInvalidPair(t *testing.T) {
	_, err := run(t, "encode", "zoom")
	if !errors.HasCode(err, "H140") {
		t.Errorf("error = %v, want H140", err)
	}
}

func TestDecodeCommand(t *testing.T) {
	out, err := run(t, "decode", "#/map?z=12&l=roads,rivers")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"path: /map", "* zoom       12", "* layers     [roads rivers]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "decode", "--json", "#/?z=3")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"zoom": 3`) {
		t.Errorf("json output = %s", out)
	}
}

func TestDiffCommand(t *testing.T) {
	out, err := run(t, "diff", "#/?z=3&lat=1", "#/?z=4")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "changed: lat zoom") || !strings.Contains(out, "removed: lat") {
		t.Errorf("output = %s", out)
	}

	out, err = run(t, "diff", "#/?z=3", "#/?z=3")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "fragments are equal") {
		t.Errorf("output = %s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("output = %q", out)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.HasCode(err, "H141") {
		t.Errorf("error = %v, want H141", err)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	cfg := config.New()
	store, db, err := openStore(ctx, cfg)
	if err != nil || db != nil {
		t.Fatalf("memory: %v, db = %v", err, db)
	}
	if _, ok := store.(*bookmark.MemoryStore); !ok {
		t.Errorf("memory backend store = %T", store)
	}

	cfg.Bookmarks.Backend = config.BackendSQLite
	cfg.Bookmarks.SQLite.Path = filepath.Join(t.TempDir(), "views.db")
	store, db, err = openStore(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	b := &bookmark.Bookmark{Hash: "#/?z=3"}
	if err := store.Save(ctx, b); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.Bookmarks.SQLite.Path); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	cfg.Bookmarks.Backend = config.BackendS3
	cfg.Bookmarks.S3.Bucket = "views"
	cfg.Bookmarks.S3.Region = "eu-central-1"
	store, _, err = openStore(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*bookmark.S3Store); !ok {
		t.Errorf("s3 backend store = %T", store)
	}
}

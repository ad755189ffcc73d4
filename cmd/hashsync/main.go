// Command hashsync serves URL fragment state to map clients and inspects
// fragments from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoportal-dev/hashsync/internal/config"
	"github.com/geoportal-dev/hashsync/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "hashsync",
		Short: "URL fragment state for map applications",
		Long: `hashsync keeps map view state (zoom, position, layers, modes) in the
URL fragment of connected browsers.

The server owns one state provider per browser tab, writes fragment
changes as history push/replace patches over a WebSocket and receives
back/forward navigation as pop-state events. Views can be stored as
short share links.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to hashsync.json or hashsync.yaml (default: search from the working directory)")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}
	rootCmd.AddCommand(
		serveCmd(load),
		encodeCmd(load),
		decodeCmd(load),
		diffCmd(load),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig reads the configuration at path, or searches for one. A
// missing file outside an explicit --config falls back to defaults.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		if errors.HasCode(err, "H141") {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

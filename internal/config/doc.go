// Package config loads hashsync server configuration.
//
// The configuration lives in hashsync.json, or hashsync.yaml when YAML is
// preferred, next to the binary or in any parent directory.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "allowedOrigins": ["https://maps.example.com"]
//	  },
//	  "hash": {
//	    "aliases": {"zoom": "zl"},
//	    "keyOrder": ["zoom", "lat", "lng", "layers"],
//	    "alphabetical": false,
//	    "debounce": "250ms"
//	  },
//	  "bookmarks": {
//	    "backend": "sqlite",
//	    "sqlite": {"path": "bookmarks.db"}
//	  },
//	  "log": {"level": "debug", "format": "json"}
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	table, err := cfg.Table()
package config

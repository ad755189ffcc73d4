package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://geoportal.dev/hashsync/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (H001-H039)
	// ============================================

	"H001": {
		Category: CategoryRuntime,
		Message:  "Malformed URL fragment",
		Detail:   "The URL fragment could not be parsed as a query string. It is treated as empty.",
		DocURL:   docBase + "H001",
	},
	"H002": {
		Category: CategoryRuntime,
		Message:  "Location already bound",
		Detail:   "Only one hash state provider may own a location at a time. Close the existing provider first.",
		DocURL:   docBase + "H002",
	},
	"H003": {
		Category: CategoryRuntime,
		Message:  "Provider closed",
		Detail:   "The hash state provider has been closed and no longer tracks the location.",
		DocURL:   docBase + "H003",
	},
	"H004": {
		Category: CategoryRuntime,
		Message:  "Pop-state subscriber panicked",
		Detail:   "A registered pop-state callback panicked. Remaining callbacks still ran.",
		DocURL:   docBase + "H004",
	},

	// ============================================
	// Protocol Errors (H060-H079)
	// ============================================

	"H060": {
		Category: CategoryProtocol,
		Message:  "Invalid frame",
		Detail:   "The client sent a frame that could not be decoded.",
		DocURL:   docBase + "H060",
	},
	"H061": {
		Category: CategoryProtocol,
		Message:  "Handshake expected",
		Detail:   "The first frame on a connection must be a handshake carrying the current URL.",
		DocURL:   docBase + "H061",
	},
	"H062": {
		Category: CategoryProtocol,
		Message:  "Unknown event type",
		Detail:   "The client sent an event type the server does not handle.",
		DocURL:   docBase + "H062",
	},
	"H063": {
		Category: CategoryProtocol,
		Message:  "Invalid request body",
		Detail:   "The HTTP request body is not the expected JSON document.",
		DocURL:   docBase + "H063",
	},

	// ============================================
	// Bookmark Errors (H080-H099)
	// ============================================

	"H080": {
		Category: CategoryBookmark,
		Message:  "Bookmark not found",
		Detail:   "No stored view exists for this bookmark id.",
		DocURL:   docBase + "H080",
	},
	"H081": {
		Category: CategoryBookmark,
		Message:  "Bookmark store unavailable",
		Detail:   "The bookmark backend returned an error.",
		DocURL:   docBase + "H081",
	},
	"H082": {
		Category: CategoryBookmark,
		Message:  "Invalid bookmark",
		Detail:   "A bookmark must contain a non-empty URL fragment.",
		DocURL:   docBase + "H082",
	},

	// ============================================
	// Config Errors (H120-H139)
	// ============================================

	"H120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
		DocURL:   docBase + "H120",
	},
	"H121": {
		Category: CategoryConfig,
		Message:  "Unknown bookmark backend",
		Detail:   "The bookmark backend must be one of: memory, sqlite, s3.",
		DocURL:   docBase + "H121",
	},
	"H122": {
		Category: CategoryConfig,
		Message:  "Invalid server address",
		Detail:   "The server address must be in host:port form with a port between 0 and 65535.",
		DocURL:   docBase + "H122",
	},
	"H123": {
		Category: CategoryConfig,
		Message:  "Duplicate URL alias",
		Detail:   "Two state keys map to the same URL alias.",
		DocURL:   docBase + "H123",
	},

	// ============================================
	// CLI Errors (H140-H159)
	// ============================================

	"H140": {
		Category: CategoryCLI,
		Message:  "Invalid key=value argument",
		Detail:   "Arguments to encode must have the form key=value.",
		DocURL:   docBase + "H140",
	},
	"H141": {
		Category: CategoryCLI,
		Message:  "Configuration file not found",
		Detail:   "No hashsync.json or hashsync.yaml was found.",
		DocURL:   docBase + "H141",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

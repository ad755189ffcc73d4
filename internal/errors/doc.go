// Package errors provides coded, structured errors for hashsync.
//
// Every operational failure outside the hash state core carries a code
// (e.g. "H120") registered in this package. A code maps to:
//   - A category (runtime, protocol, bookmark, config, cli)
//   - A short message and a longer explanation
//   - A documentation URL
//
// The hash state core itself never returns these to end users. Malformed
// fragments, redundant writes and panicking subscribers are logged and
// absorbed. Codes surface from configuration loading, the wire protocol,
// bookmark storage and the CLI.
//
// # Usage
//
//	err := errors.New("H120").
//	    WithDetail("Failed to parse hashsync.yaml: line 3").
//	    WithSuggestion("Check the YAML indentation")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR H120: Invalid configuration file
//	//
//	//   Failed to parse hashsync.yaml: line 3
//	//
//	//   Hint: Check the YAML indentation
//	//
//	//   Learn more: https://geoportal.dev/hashsync/errors/H120
package errors

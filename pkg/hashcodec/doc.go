// Package hashcodec holds the alias and codec tables that translate map view
// state to and from URL fragment parameters.
//
// A Table maps logical state keys ("zoom") to short URL aliases ("z") and to
// a Codec that converts the typed value to its string form. A Codec's Encode
// reports false to signal "omit this key", which is how default and empty
// values are pruned from the URL. Decode never fails: absent or unparsable
// input yields the key's default, so new keys can be added without breaking
// old links.
//
// Typed keys give callers a compile-time checked update record:
//
//	var update hashcodec.Partial
//	hashcodec.Set(&update, hashcodec.Zoom, 12)
//	hashcodec.Set(&update, hashcodec.Lat, 51.27)
//
//	zoom := hashcodec.Zoom.Get(values)
package hashcodec

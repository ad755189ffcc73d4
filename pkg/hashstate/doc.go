// Package hashstate keeps map view state mirrored into the URL fragment.
//
// A Provider owns one Location. It offers four operations:
//
//	provider.GetHash()                    // raw parameters, read fresh
//	provider.GetHashValues()              // decoded logical values
//	provider.UpdateHash(ctx, update, ...) // merge, order and write
//	provider.RegisterOnPopState(listener) // back/forward notifications
//
// Writes go straight to the Location's push or replace primitive and never
// produce pop-state events, so they do not cascade into re-renders. A write
// whose resulting fragment equals the current one is skipped, so repeated
// identical updates create at most one history entry.
//
// The provider keeps a single snapshot of the last known parameters. It is
// updated after every write and every pop-state event and is used to
// compute the changed and removed keys reported to listeners.
//
// Only one provider may own a Location at a time. New fails with code H002
// when the Location is already bound; Close releases it.
//
// Example:
//
//	loc := history.NewMemory("#/map")
//	provider, err := hashstate.New(loc, hashstate.WithTable(hashcodec.MustGeoportal()))
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
//	var update hashcodec.Partial
//	hashcodec.Set(&update, hashcodec.Zoom, 12)
//	hashcodec.Set(&update, hashcodec.Lat, 51.27)
//	provider.UpdateHash(ctx, &update, hashstate.Label("pan"))
//	// loc.Hash() == "#/map?z=12&lat=51.27"
package hashstate

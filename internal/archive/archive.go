// Package archive stores raw fetched markup outside the snapshot database.
// Archiving is best-effort: the pipeline logs failures and moves on.
package archive

import "context"

// Store writes one raw fetch under a key and returns the stored location.
type Store interface {
	Save(ctx context.Context, key string, data []byte) (string, error)
}

// Noop discards everything; the default when no archive is configured.
type Noop struct{}

// Save drops the payload and returns an empty location.
func (Noop) Save(context.Context, string, []byte) (string, error) {
	return "", nil
}

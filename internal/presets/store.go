package presets

import (
	"context"
	"errors"

	"github.com/zsiec/smpte/pkg/timecode"
)

// Store persists presets by name.
type Store interface {
	// Put creates or replaces a preset. CreatedAt of an existing preset is kept.
	Put(ctx context.Context, preset *Preset) error

	// Get returns the named preset or ErrNotFound.
	Get(ctx context.Context, name string) (*Preset, error)

	// List returns every preset ordered by name.
	List(ctx context.Context) ([]*Preset, error)

	// Delete removes the named preset or returns ErrNotFound.
	Delete(ctx context.Context, name string) error

	// Close releases resources held by the store.
	Close() error
}

// Resolve turns text into a rate. Text that is a valid preset name is
// looked up in store first; anything else, or a name with no preset, is
// handed to timecode.ParseRate. A nil store skips the lookup.
func Resolve(ctx context.Context, store Store, text string) (timecode.Rate, error) {
	name := NormalizeName(text)
	if store != nil && ValidateName(name) == nil {
		p, err := store.Get(ctx, name)
		switch {
		case err == nil:
			r := p.Rate()
			if err := r.Validate(); err != nil {
				return timecode.Rate{}, err
			}
			return r, nil
		case !errors.Is(err, ErrNotFound):
			return timecode.Rate{}, err
		}
	}
	return timecode.ParseRate(text)
}

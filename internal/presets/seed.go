package presets

import (
	"context"
	"errors"
	"fmt"
)

// Standard returns the built-in presets.
func Standard() []*Preset {
	return []*Preset{
		{Name: "23.976", Num: 24000, Den: 1001, Description: "Film over NTSC"},
		{Name: "24", FPS: 24, Description: "Film"},
		{Name: "25", FPS: 25, Description: "PAL"},
		{Name: "29.97", Num: 30000, Den: 1001, Description: "NTSC non-drop"},
		{Name: "29.97df", Num: 30000, Den: 1001, DropFrame: true, Description: "NTSC drop frame"},
		{Name: "30", FPS: 30},
		{Name: "50", FPS: 50, Description: "PAL progressive"},
		{Name: "59.94", Num: 60000, Den: 1001, Description: "NTSC progressive non-drop"},
		{Name: "59.94df", Num: 60000, Den: 1001, DropFrame: true, Description: "NTSC progressive drop frame"},
		{Name: "60", FPS: 60},
	}
}

// Seed writes every standard preset that store does not hold yet and
// returns how many were added. Existing presets are left untouched.
func Seed(ctx context.Context, store Store) (int, error) {
	added := 0
	for _, p := range Standard() {
		_, err := store.Get(ctx, p.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return added, fmt.Errorf("failed to check preset %s: %w", p.Name, err)
		}
		if err := store.Put(ctx, p); err != nil {
			return added, fmt.Errorf("failed to seed preset %s: %w", p.Name, err)
		}
		added++
	}
	return added, nil
}

package health

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/zsiec/smpte/internal/presets"
	"github.com/zsiec/smpte/pkg/timecode"
)

// PresetStoreChecker checks that the preset store answers and is not empty.
type PresetStoreChecker struct {
	store presets.Store
	count atomic.Int64
}

// NewPresetStoreChecker creates a checker for store.
func NewPresetStoreChecker(store presets.Store) *PresetStoreChecker {
	return &PresetStoreChecker{store: store}
}

// Name returns the name of the checker.
func (p *PresetStoreChecker) Name() string {
	return "presets"
}

// Check lists the store. An empty store is degraded, not down.
func (p *PresetStoreChecker) Check(ctx context.Context) error {
	list, err := p.store.List(ctx)
	if err != nil {
		return fmt.Errorf("preset store unavailable: %w", err)
	}
	p.count.Store(int64(len(list)))
	if len(list) == 0 {
		return &DegradedError{Reason: "no presets stored"}
	}
	return nil
}

// Details reports the preset count from the last check.
func (p *PresetStoreChecker) Details() map[string]interface{} {
	return map[string]interface{}{"count": p.count.Load()}
}

// TimecodeChecker converts a fixed frame count through the default rate and
// back, catching a misconfigured default before requests do.
type TimecodeChecker struct {
	rate timecode.Rate
}

// NewTimecodeChecker creates a checker for rate.
func NewTimecodeChecker(rate timecode.Rate) *TimecodeChecker {
	return &TimecodeChecker{rate: rate}
}

// Name returns the name of the checker.
func (t *TimecodeChecker) Name() string {
	return "timecode"
}

// Check round trips one hour of frames.
func (t *TimecodeChecker) Check(ctx context.Context) error {
	if err := t.rate.Validate(); err != nil {
		return err
	}

	frames := t.rate.FramesPerHour()
	text := t.rate.Format(frames)
	back, err := t.rate.Parse(text)
	if err != nil {
		return fmt.Errorf("round trip of %d frames: %w", frames, err)
	}
	if back != frames {
		return fmt.Errorf("round trip of %d frames returned %d via %s", frames, back, text)
	}
	return nil
}

// Details reports the rate under test.
func (t *TimecodeChecker) Details() map[string]interface{} {
	return map[string]interface{}{"rate": t.rate.String()}
}

package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// dropFactor approximates 2/30: the share of frame numbers a DF count skips
// each minute.
const dropFactor = 0.066666

// maxFPS keeps FramesPer24Hours within int64.
const maxFPS = float64(math.MaxInt64) / (3600 * 24)

// Rate is a frame-rate configuration. The zero value is not useful; build
// one with FromRate or FromRational.
type Rate struct {
	fps  float64
	drop bool

	timeBase           int64
	dropPerMinute      int64
	framesPerHour      int64
	framesPer24Hours   int64
	framesPer10Minutes int64
	framesPerMinute    int64
}

// FromRate returns the Rate for a nominal frames-per-second value.
func FromRate(fps float64, dropFrame bool) Rate {
	r := Rate{fps: fps, drop: dropFrame}
	r.timeBase = round(fps)
	r.dropPerMinute = round(fps * dropFactor)
	r.framesPerHour = round(fps * 3600)
	r.framesPer24Hours = r.framesPerHour * 24
	r.framesPer10Minutes = round(fps * 600)
	r.framesPerMinute = r.timeBase*60 - r.dropPerMinute
	return r
}

// FromRational returns the Rate for num/den frames per second, e.g.
// 30000/1001 for NTSC video. The fraction itself is not kept.
func FromRational(num, den uint64, dropFrame bool) Rate {
	return FromRate(float64(num)/float64(den), dropFrame)
}

func round(v float64) int64 {
	return int64(math.Round(v))
}

// FPS returns the nominal frame rate the Rate was built from.
func (r Rate) FPS() float64 { return r.fps }

// DropFrame reports whether the Rate counts in drop-frame timecode.
func (r Rate) DropFrame() bool { return r.drop }

// TimeBase returns the frame rate rounded to the nearest integer.
func (r Rate) TimeBase() int64 { return r.timeBase }

// DropPerMinute returns how many frame numbers DF skips at a minute
// boundary (2 at 29.97, 4 at 59.94).
func (r Rate) DropPerMinute() int64 { return r.dropPerMinute }

// FramesPerHour returns the real number of frames in one hour.
func (r Rate) FramesPerHour() int64 { return r.framesPerHour }

// FramesPer24Hours returns the real number of frames in a day, where DF
// timecode wraps.
func (r Rate) FramesPer24Hours() int64 { return r.framesPer24Hours }

// FramesPer10Minutes returns the real number of frames in ten minutes.
func (r Rate) FramesPer10Minutes() int64 { return r.framesPer10Minutes }

// FramesPerMinute returns the number of frames in a DF minute that drops
// frame numbers.
func (r Rate) FramesPerMinute() int64 { return r.framesPerMinute }

// Validate reports whether the Rate can drive the conversions. The
// constructors never call it.
func (r Rate) Validate() error {
	if math.IsNaN(r.fps) || math.IsInf(r.fps, 0) || r.fps <= 0 {
		return fmt.Errorf("%w: fps must be a positive number, got %v", ErrInvalidRate, r.fps)
	}
	if r.timeBase < 1 {
		return fmt.Errorf("%w: fps %v rounds to a zero time base", ErrInvalidRate, r.fps)
	}
	if !r.usable() {
		return fmt.Errorf("%w: fps %v exceeds the largest supported rate", ErrInvalidRate, r.fps)
	}
	return nil
}

// usable reports whether every derived constant is positive and in range, so
// Format can divide by them.
func (r Rate) usable() bool {
	return r.timeBase >= 1 &&
		r.fps < maxFPS &&
		r.framesPerHour > 0 &&
		r.framesPer24Hours > 0 &&
		r.framesPer10Minutes > 0 &&
		r.framesPerMinute > 0
}

// Duration returns the wall-clock time a frame count lasts at the nominal
// frame rate.
func (r Rate) Duration(frames int64) time.Duration {
	if r.fps <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / r.fps * float64(time.Second))
}

// String renders the rate as e.g. "29.97 DF" or "24 NDF".
func (r Rate) String() string {
	s := strconv.FormatFloat(r.fps, 'f', 3, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if r.drop {
		return s + " DF"
	}
	return s + " NDF"
}

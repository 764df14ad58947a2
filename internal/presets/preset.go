package presets

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zsiec/smpte/pkg/timecode"
)

var (
	// ErrNotFound is returned when a preset does not exist.
	ErrNotFound = errors.New("preset not found")

	// ErrInvalidName is returned for names outside the allowed alphabet.
	ErrInvalidName = errors.New("invalid preset name")
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// Preset is a named frame rate. Num and Den, when both set, take precedence
// over FPS so NTSC rates keep their exact fraction.
type Preset struct {
	Name        string    `json:"name"`
	FPS         float64   `json:"fps,omitempty"`
	Num         uint64    `json:"num,omitempty"`
	Den         uint64    `json:"den,omitempty"`
	DropFrame   bool      `json:"drop_frame"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Rate builds the timecode rate described by the preset.
func (p *Preset) Rate() timecode.Rate {
	if p.Num > 0 && p.Den > 0 {
		return timecode.FromRational(p.Num, p.Den, p.DropFrame)
	}
	return timecode.FromRate(p.FPS, p.DropFrame)
}

// Validate checks the name and the rate.
func (p *Preset) Validate() error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if (p.Num == 0) != (p.Den == 0) {
		return fmt.Errorf("%w: num and den must be set together", timecode.ErrInvalidRate)
	}
	return p.Rate().Validate()
}

// ValidateName reports whether name may be used as a preset key.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// NormalizeName lower-cases and trims a user supplied name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

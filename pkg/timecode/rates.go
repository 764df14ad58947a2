package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Common rates. The NTSC family is built from its exact fraction.
var (
	Rate23_976   = FromRational(24000, 1001, false)
	Rate24       = FromRate(24, false)
	Rate25       = FromRate(25, false) // PAL
	Rate29_97NDF = FromRational(30000, 1001, false)
	Rate29_97DF  = FromRational(30000, 1001, true)
	Rate30       = FromRate(30, false)
	Rate50       = FromRate(50, false)
	Rate59_94NDF = FromRational(60000, 1001, false)
	Rate59_94DF  = FromRational(60000, 1001, true)
	Rate60       = FromRate(60, false)
)

// suffixes is ordered so that longer spellings win over the ones they end
// with ("ndf" before "df", "nondrop" before "drop").
var suffixes = []struct {
	text string
	drop bool
}{
	{"nondrop", false},
	{"ndf", false},
	{"drop", true},
	{"df", true},
}

// ParseRate parses a textual frame rate such as "25", "29.97df",
// "30000/1001 DF" or "59.94-ndf". A rate without a suffix is non-drop.
func ParseRate(s string) (Rate, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	drop := false
	for _, suf := range suffixes {
		if strings.HasSuffix(text, suf.text) {
			text = strings.TrimSuffix(text, suf.text)
			drop = suf.drop
			break
		}
	}
	text = strings.TrimRight(text, " -_@")

	var r Rate
	if num, den, ok := strings.Cut(text, "/"); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
		}
		d, err := strconv.ParseUint(strings.TrimSpace(den), 10, 64)
		if err != nil || d == 0 {
			return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
		}
		r = FromRational(n, d, drop)
	} else {
		fps, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(fps) {
			return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
		}
		r = FromRate(fps, drop)
	}

	if err := r.Validate(); err != nil {
		return Rate{}, err
	}
	return r, nil
}

package timecode

// Format renders a frame count as timecode text. Only the magnitude of
// frames is rendered. DF timecode wraps at 24 hours; NDF hours keep
// counting.
func (r Rate) Format(frames int64) string {
	return string(r.AppendFormat(make([]byte, 0, 11), frames))
}

// AppendFormat appends the timecode text for frames to dst.
func (r Rate) AppendFormat(dst []byte, frames int64) []byte {
	return r.Timecode(frames).appendText(dst)
}

// FormatInto writes the timecode text for frames into dst and returns the
// number of bytes written. Nothing is written if dst is too short.
func (r Rate) FormatInto(dst []byte, frames int64) (int, error) {
	tc := r.Timecode(frames)
	need := tc.textLen()
	if len(dst) < need {
		return 0, &FormatError{Need: need, Have: len(dst)}
	}
	return copy(dst, tc.appendText(dst[:0])), nil
}

// Timecode splits a frame count into clock fields. A Rate that fails
// Validate yields all-zero fields.
func (r Rate) Timecode(frames int64) Timecode {
	tc := Timecode{Drop: r.drop}
	if !r.usable() {
		return tc
	}

	n := abs(frames)
	if r.drop {
		n = r.renumber(n)
	}

	tb := uint64(r.timeBase)
	tc.Hours = n / (tb * 3600)
	n %= tb * 3600
	tc.Minutes = n / (tb * 60)
	n %= tb * 60
	tc.Seconds = n / tb
	tc.Frames = n % tb
	return tc
}

// renumber maps a real frame count onto the nominal DF frame numbering by
// adding back the frame numbers skipped so far in the current day.
func (r Rate) renumber(n uint64) uint64 {
	if r.framesPer24Hours <= 0 || r.framesPer10Minutes <= 0 || r.framesPerMinute <= 0 {
		return n
	}
	n %= uint64(r.framesPer24Hours)

	drop := uint64(r.dropPerMinute)
	d := n / uint64(r.framesPer10Minutes)
	m := n % uint64(r.framesPer10Minutes)

	if m > drop {
		return n + drop*9*d + drop*((m-drop)/uint64(r.framesPerMinute))
	}
	return n + drop*9*d
}

func abs(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}

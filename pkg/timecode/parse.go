package timecode

// Parse converts a timecode to an absolute frame count.
//
// The frames field is checked against the unrounded fps with '>', so at
// 29.97 a frames field of 29 passes and 30 fails, while at 24 a frames field
// of 24 still passes. Hours, minutes and seconds are not range checked.
func (r Rate) Parse(text string) (int64, error) {
	tc, err := Split(text)
	if err != nil {
		return 0, err
	}
	if float64(tc.Frames) > r.fps {
		return 0, &ParseError{Input: text, Err: ErrFrameRateMismatch}
	}
	return r.count(tc), nil
}

// count applies the NDF or DF formula to already tokenized fields.
func (r Rate) count(tc Timecode) int64 {
	h := int64(tc.Hours)
	m := int64(tc.Minutes)
	s := int64(tc.Seconds)
	f := int64(tc.Frames)
	totalMinutes := 60*h + m

	if !r.drop {
		return (totalMinutes*60+s)*r.timeBase + f
	}

	// Every minute drops dropPerMinute frame numbers, except each tenth.
	return r.timeBase*3600*h + r.timeBase*60*m + r.timeBase*s + f -
		r.dropPerMinute*(totalMinutes-totalMinutes/10)
}

// IsValid reports whether text parses under r.
func (r Rate) IsValid(text string) bool {
	_, err := r.Parse(text)
	return err == nil
}

// Offset parses text and returns the frame count delta frames later.
func (r Rate) Offset(text string, delta int64) (int64, error) {
	frames, err := r.Parse(text)
	if err != nil {
		return 0, err
	}
	return frames + delta, nil
}

// Add parses text, offsets it by delta frames and formats the result.
func (r Rate) Add(text string, delta int64) (string, error) {
	frames, err := r.Offset(text, delta)
	if err != nil {
		return "", err
	}
	return r.Format(frames), nil
}

// Difference returns the frame count from a to b. It is negative when b is
// earlier than a.
func (r Rate) Difference(a, b string) (int64, error) {
	fa, err := r.Parse(a)
	if err != nil {
		return 0, err
	}
	fb, err := r.Parse(b)
	if err != nil {
		return 0, err
	}
	return fb - fa, nil
}

package timecode

import "strconv"

// Timecode holds the four fields of a textual timecode. Drop selects the
// semicolon separator before the frames field.
type Timecode struct {
	Hours   uint64
	Minutes uint64
	Seconds uint64
	Frames  uint64
	Drop    bool
}

// Split tokenizes text into its four fields without looking at any frame
// rate. It accepts ':' or ';' for every separator; Drop is set when the last
// one is ';'.
func Split(text string) (Timecode, error) {
	var (
		fields [4]uint64
		n      int
		start  int
		last   byte
	)
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != ':' && text[i] != ';' {
			continue
		}
		if n == len(fields) {
			return Timecode{}, &ParseError{Input: text, Err: ErrInvalidFormat}
		}
		v, ok := parseField(text[start:i])
		if !ok {
			return Timecode{}, &ParseError{Input: text, Err: ErrInvalidFormat}
		}
		fields[n] = v
		n++
		if i < len(text) {
			last = text[i]
		}
		start = i + 1
	}
	if n != len(fields) {
		return Timecode{}, &ParseError{Input: text, Err: ErrInvalidFormat}
	}
	return Timecode{
		Hours:   fields[0],
		Minutes: fields[1],
		Seconds: fields[2],
		Frames:  fields[3],
		Drop:    last == ';',
	}, nil
}

// parseField accepts base-10 digits only. Fields are capped at 32 bits so
// the frame arithmetic cannot overflow an int64.
func parseField(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return v, true
}

// String returns HH:MM:SS:FF, or HH:MM:SS;FF when Drop is set.
func (tc Timecode) String() string {
	return string(tc.appendText(make([]byte, 0, 11)))
}

func (tc Timecode) appendText(dst []byte) []byte {
	dst = appendField(dst, tc.Hours)
	dst = append(dst, ':')
	dst = appendField(dst, tc.Minutes)
	dst = append(dst, ':')
	dst = appendField(dst, tc.Seconds)
	if tc.Drop {
		dst = append(dst, ';')
	} else {
		dst = append(dst, ':')
	}
	return appendField(dst, tc.Frames)
}

// textLen is the length appendText will produce.
func (tc Timecode) textLen() int {
	return fieldLen(tc.Hours) + fieldLen(tc.Minutes) + fieldLen(tc.Seconds) + fieldLen(tc.Frames) + 3
}

func appendField(dst []byte, v uint64) []byte {
	if v < 10 {
		dst = append(dst, '0')
	}
	return strconv.AppendUint(dst, v, 10)
}

func fieldLen(v uint64) int {
	n := 1
	for v >= 10 {
		v /= 10
		n++
	}
	if n < 2 {
		return 2
	}
	return n
}

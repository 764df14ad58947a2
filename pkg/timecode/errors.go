package timecode

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned when text is not four colon or semicolon
	// separated non-negative integers.
	ErrInvalidFormat = errors.New("invalid timecode format")

	// ErrFrameRateMismatch is returned when the frames field exceeds the
	// configured frame rate.
	ErrFrameRateMismatch = errors.New("frames field exceeds frame rate")

	// ErrBufferTooSmall is returned when a destination buffer cannot hold
	// the formatted timecode.
	ErrBufferTooSmall = errors.New("destination buffer too small")

	// ErrInvalidRate is returned for frame rates that cannot drive the
	// conversions.
	ErrInvalidRate = errors.New("invalid frame rate")
)

// ParseError records the text that failed to parse and the reason.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timecode %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatError reports how many bytes a formatted timecode needed.
type FormatError struct {
	Need int
	Have int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: need %d bytes, have %d", ErrBufferTooSmall, e.Need, e.Have)
}

func (e *FormatError) Unwrap() error {
	return ErrBufferTooSmall
}

// Package timecode converts between SMPTE timecodes and absolute frame
// counts. The two primary types in this package are:
//
//	type Rate struct{ ... }
//
//	and
//
//	type Timecode struct{ Hours, Minutes, Seconds, Frames uint64; Drop bool }
//
// A Rate is an immutable frame-rate configuration: the nominal frames per
// second plus a drop-frame flag. Every integer constant the conversions need
// is derived once when the Rate is built, so a Rate can be copied freely and
// shared between goroutines without synchronization.
//
// Non-drop-frame (NDF) timecodes are written HH:MM:SS:FF and count one frame
// number per frame. Drop-frame (DF) timecodes are written HH:MM:SS;FF and
// skip frame numbers at the start of every minute except each tenth minute,
// which keeps 29.97 and 59.94 timecode aligned with wall-clock time. The DF
// conversion uses the closed form described by Andrew Duncan and David
// Heidelberger (http://andrewduncan.net/timecodes/).
//
// Known limitations, kept deliberately:
//
//   - Parsing rejects a frames field only when it exceeds the unrounded fps,
//     and does not check the separator against the Rate's drop flag.
//   - Formatting writes the magnitude of a frame count. A negative count
//     formats exactly like its positive counterpart.
//   - Constructors do not validate. Use Rate.Validate on untrusted input.
package timecode

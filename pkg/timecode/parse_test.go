package timecode

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		rate     Rate
		text     string
		expected int64
	}{
		{"24 NDF four seconds four frames", Rate24, "00:00:04:04", 100},
		{"24 NDF zero", Rate24, "00:00:00:00", 0},
		{"24 NDF one hour", Rate24, "01:00:00:00", 86400},
		{"25 NDF", Rate25, "00:01:00:00", 1500},
		{"29.97 DF first frame after drop", FromRate(29.97, true), "00:01:00;02", 1800},
		{"29.97 DF last frame of minute zero", FromRate(29.97, true), "00:00:59;29", 1799},
		{"29.97 DF tenth minute keeps its frames", FromRate(29.97, true), "00:10:00;00", 17982},
		{"29.97 DF one hour", Rate29_97DF, "01:00:00;00", 107892},
		{"59.94 DF first frame after drop", Rate59_94DF, "00:01:00;04", 3600},
		{"59.94 DF one hour", Rate59_94DF, "01:00:00;00", 215784},
		{"29.97 NDF counts every frame number", Rate29_97NDF, "00:01:00:00", 1800},
		{"single digit fields", Rate24, "1:2:3:4", 86400 + 2*60*24 + 3*24 + 4},
		{"DF rate accepts colon separator", Rate29_97DF, "00:01:00:02", 1800},
		{"NDF rate accepts semicolon separator", Rate24, "00:00:04;04", 100},
		{"minutes beyond 59 are not rejected", Rate24, "00:61:00:00", 61 * 60 * 24},
		{"frames equal to integer fps pass", Rate24, "00:00:00:24", 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := tt.rate.Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, frames)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		rate Rate
		text string
		err  error
	}{
		{"not a timecode", Rate24, "invalid", ErrInvalidFormat},
		{"empty", Rate24, "", ErrInvalidFormat},
		{"three fields", Rate24, "00:00:10", ErrInvalidFormat},
		{"five fields", Rate24, "00:00:00:10:00", ErrInvalidFormat},
		{"empty field", Rate24, "00::00:00", ErrInvalidFormat},
		{"trailing separator", Rate24, "00:00:00:00:", ErrInvalidFormat},
		{"negative field", Rate24, "-1:00:00:00", ErrInvalidFormat},
		{"plus sign", Rate24, "+1:00:00:00", ErrInvalidFormat},
		{"leading space", Rate24, " 00:00:00:00", ErrInvalidFormat},
		{"hex digits", Rate24, "0a:00:00:00", ErrInvalidFormat},
		{"field overflows 32 bits", Rate24, "4294967296:00:00:00", ErrInvalidFormat},
		{"frames above fps", Rate24, "00:00:10:99", ErrFrameRateMismatch},
		{"frames one above integer fps", Rate24, "00:00:00:25", ErrFrameRateMismatch},
		{"frames above fractional fps", Rate29_97DF, "00:00:00;30", ErrFrameRateMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.rate.Parse(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.text, perr.Input)
		})
	}
}

func TestSplit(t *testing.T) {
	tc, err := Split("10:20:30;15")
	require.NoError(t, err)
	assert.Equal(t, Timecode{Hours: 10, Minutes: 20, Seconds: 30, Frames: 15, Drop: true}, tc)
	assert.Equal(t, "10:20:30;15", tc.String())

	tc, err = Split("1:2:3:4")
	require.NoError(t, err)
	assert.False(t, tc.Drop)
	assert.Equal(t, "01:02:03:04", tc.String())

	// Split has no rate, so a large frames field is fine here.
	tc, err = Split("00:00:00:99")
	require.NoError(t, err)
	assert.Equal(t, uint64(99), tc.Frames)
}

func TestIsValid(t *testing.T) {
	assert.True(t, Rate24.IsValid("00:00:10:00"))
	assert.False(t, Rate24.IsValid("00:00:10:99"))
	assert.False(t, Rate24.IsValid("invalid"))
	assert.True(t, Rate29_97DF.IsValid("00:01:00;02"))
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name     string
		rate     Rate
		text     string
		delta    int64
		expected string
	}{
		{"ten seconds at 24", Rate24, "00:00:10:00", 240, "00:00:20:00"},
		{"zero delta normalizes text", Rate24, "0:0:4:4", 0, "00:00:04:04"},
		{"across DF minute boundary", Rate29_97DF, "00:00:59;29", 1, "00:01:00;02"},
		{"backwards across DF minute boundary", Rate29_97DF, "00:01:00;02", -1, "00:00:59;29"},
		{"across DF tenth minute", Rate29_97DF, "00:09:59;29", 1, "00:10:00;00"},
		{"negative result loses sign", Rate24, "00:00:01:00", -48, "00:00:01:00"},
		{"DF wraps at 24 hours", Rate29_97DF, "23:59:59;29", 1, "00:00:00;00"},
		{"NDF does not wrap", Rate24, "23:59:59:23", 1, "24:00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rate.Add(tt.text, tt.delta)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := Rate24.Add("bogus", 1)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestOffset(t *testing.T) {
	frames, err := Rate29_97DF.Offset("00:00:59;29", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), frames)

	// The frame count keeps its sign; only the text drops it.
	frames, err = Rate24.Offset("00:00:01:00", -48)
	require.NoError(t, err)
	assert.Equal(t, int64(-24), frames)

	for _, rate := range []Rate{Rate24, Rate29_97DF, Rate59_94DF} {
		for _, delta := range []int64{0, 1, -30, 17982} {
			frames, err := rate.Offset("00:10:00;00", delta)
			require.NoError(t, err)
			text, err := rate.Add("00:10:00;00", delta)
			require.NoError(t, err)
			assert.Equal(t, rate.Format(frames), text, "%s %+d", rate, delta)
		}
	}

	_, err = Rate25.Offset("00:00:00:26", 1)
	assert.ErrorIs(t, err, ErrFrameRateMismatch)
}

func TestAddAssociativity(t *testing.T) {
	for _, rate := range []Rate{Rate24, Rate25, Rate29_97DF, Rate59_94DF, Rate23_976} {
		t.Run(rate.String(), func(t *testing.T) {
			start := rate.Format(12345)
			for _, d := range [][2]int64{{1, 1}, {100, 2000}, {17982, 1798}, {-5, 10}, {250000, -3}} {
				once, err := rate.Add(start, d[0]+d[1])
				require.NoError(t, err)

				step, err := rate.Add(start, d[0])
				require.NoError(t, err)
				twice, err := rate.Add(step, d[1])
				require.NoError(t, err)

				assert.Equal(t, once, twice, "deltas %v", d)
			}
		})
	}
}

func TestDifference(t *testing.T) {
	diff, err := Rate24.Difference("00:00:10:00", "00:00:20:00")
	require.NoError(t, err)
	assert.Equal(t, int64(240), diff)

	diff, err = Rate24.Difference("00:00:20:00", "00:00:10:00")
	require.NoError(t, err)
	assert.Equal(t, int64(-240), diff)

	diff, err = Rate29_97DF.Difference("00:00:59;29", "00:01:00;02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), diff)

	_, err = Rate24.Difference("00:00:10:00", "nope")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = Rate24.Difference("00:00:10:30", "00:00:10:00")
	assert.ErrorIs(t, err, ErrFrameRateMismatch)
}

func TestDifferenceAntisymmetry(t *testing.T) {
	pairs := [][2]string{
		{"00:00:00;00", "00:10:00;00"},
		{"01:23:45;12", "00:59:59;29"},
		{"12:00:00;00", "12:00:00;00"},
	}
	for _, p := range pairs {
		ab, err := Rate29_97DF.Difference(p[0], p[1])
		require.NoError(t, err)
		ba, err := Rate29_97DF.Difference(p[1], p[0])
		require.NoError(t, err)
		assert.Equal(t, ab, -ba, "%s vs %s", p[0], p[1])
	}
}

func TestConcurrentUseOfSharedRate(t *testing.T) {
	rate := Rate29_97DF
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(offset int64) {
			defer wg.Done()
			for n := offset; n < 50000; n += 8 {
				frames, err := rate.Parse(rate.Format(n))
				if assert.NoError(t, err) {
					assert.Equal(t, n, frames)
				}
			}
		}(int64(g))
	}
	wg.Wait()
}

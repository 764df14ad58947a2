package server

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/zsiec/smpte/internal/errors"
	"github.com/zsiec/smpte/internal/logger"
	"github.com/zsiec/smpte/internal/metrics"
	"github.com/zsiec/smpte/internal/presets"
	"github.com/zsiec/smpte/pkg/timecode"
)

// Error codes for malformed query parameters.
const (
	codeMissingParameter = "MISSING_PARAMETER"
	codeInvalidFrames    = "INVALID_FRAMES"
)

type timecodeResponse struct {
	Timecode string   `json:"timecode,omitempty"`
	Frames   int64    `json:"frames"`
	Rate     string   `json:"rate"`
	Seconds  *float64 `json:"seconds,omitempty"`
}

type validateResponse struct {
	Timecode string `json:"timecode"`
	Rate     string `json:"rate"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
}

// rateFor resolves the rate query parameter, falling back to the
// configured default.
func (s *Server) rateFor(r *http.Request) (timecode.Rate, error) {
	text := r.URL.Query().Get("rate")
	if text == "" {
		text = s.config.Timecode.DefaultRate
	}
	rate, err := presets.Resolve(r.Context(), s.store, text)
	if err != nil {
		return timecode.Rate{}, err
	}
	logger.WithRate(logger.FromContext(r.Context()), rate.String(), rate.DropFrame()).Debug("Rate resolved")
	return rate, nil
}

func requireParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", apperrors.NewValidationError(name + " is required").WithCode(codeMissingParameter)
	}
	return v, nil
}

func framesParam(r *http.Request, name string) (int64, error) {
	text, err := requireParam(r, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError(name + " must be an integer").WithCode(codeInvalidFrames)
	}
	return n, nil
}

func seconds(rate timecode.Rate, frames int64) *float64 {
	v := rate.Duration(frames).Seconds()
	return &v
}

func observe(op string, rate timecode.Rate, err error, start time.Time) {
	metrics.ObserveOperation(op, rate.DropFrame(), apperrors.Code(err), time.Since(start))
}

// handleParse converts ?tc= to a frame count.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	tc, err := requireParam(r, "tc")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rate, err := s.rateFor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	frames, err := rate.Parse(tc)
	observe("parse", rate, err, start)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, timecodeResponse{
		Timecode: tc,
		Frames:   frames,
		Rate:     rate.String(),
		Seconds:  seconds(rate, frames),
	})
}

// handleFormat converts ?frames= to timecode text.
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	frames, err := framesParam(r, "frames")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rate, err := s.rateFor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	text := rate.Format(frames)
	observe("format", rate, nil, start)

	s.writeJSON(w, http.StatusOK, timecodeResponse{
		Timecode: text,
		Frames:   frames,
		Rate:     rate.String(),
	})
}

// handleAdd offsets ?tc= by ?frames=.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	tc, err := requireParam(r, "tc")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	delta, err := framesParam(r, "frames")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rate, err := s.rateFor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	frames, err := rate.Offset(tc, delta)
	observe("add", rate, err, start)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, timecodeResponse{
		Timecode: rate.Format(frames),
		Frames:   frames,
		Rate:     rate.String(),
	})
}

// handleDifference returns the frames from ?a= to ?b=.
func (s *Server) handleDifference(w http.ResponseWriter, r *http.Request) {
	a, err := requireParam(r, "a")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := requireParam(r, "b")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rate, err := s.rateFor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	frames, err := rate.Difference(a, b)
	observe("difference", rate, err, start)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, timecodeResponse{
		Frames:  frames,
		Rate:    rate.String(),
		Seconds: seconds(rate, frames),
	})
}

// handleValidate always answers 200 for a resolvable rate; the verdict is
// in the body.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	tc := r.URL.Query().Get("tc")
	rate, err := s.rateFor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	_, err = rate.Parse(tc)
	observe("validate", rate, nil, start)

	resp := validateResponse{
		Timecode: tc,
		Rate:     rate.String(),
		Valid:    err == nil,
	}
	if err != nil {
		resp.Error = err.Error()
		resp.Code = apperrors.Code(err)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

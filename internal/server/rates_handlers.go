package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	apperrors "github.com/zsiec/smpte/internal/errors"
	"github.com/zsiec/smpte/internal/presets"
)

const (
	codeInvalidName = "INVALID_NAME"
	codeInvalidBody = "INVALID_BODY"

	maxPresetBody = 64 << 10
)

// presetView is a preset plus the constants derived from its rate.
type presetView struct {
	Name               string    `json:"name"`
	Rate               string    `json:"rate"`
	FPS                float64   `json:"fps"`
	Num                uint64    `json:"num,omitempty"`
	Den                uint64    `json:"den,omitempty"`
	DropFrame          bool      `json:"drop_frame"`
	Description        string    `json:"description,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	TimeBase           int64     `json:"time_base"`
	DropPerMinute      int64     `json:"drop_per_minute"`
	FramesPerMinute    int64     `json:"frames_per_minute"`
	FramesPer10Minutes int64     `json:"frames_per_10_minutes"`
	FramesPerHour      int64     `json:"frames_per_hour"`
	FramesPer24Hours   int64     `json:"frames_per_24_hours"`
}

func newPresetView(p *presets.Preset) presetView {
	rate := p.Rate()
	return presetView{
		Name:               p.Name,
		Rate:               rate.String(),
		FPS:                rate.FPS(),
		Num:                p.Num,
		Den:                p.Den,
		DropFrame:          p.DropFrame,
		Description:        p.Description,
		CreatedAt:          p.CreatedAt,
		TimeBase:           rate.TimeBase(),
		DropPerMinute:      rate.DropPerMinute(),
		FramesPerMinute:    rate.FramesPerMinute(),
		FramesPer10Minutes: rate.FramesPer10Minutes(),
		FramesPerHour:      rate.FramesPerHour(),
		FramesPer24Hours:   rate.FramesPer24Hours(),
	}
}

type putPresetRequest struct {
	FPS         float64 `json:"fps"`
	Num         uint64  `json:"num"`
	Den         uint64  `json:"den"`
	DropFrame   bool    `json:"drop_frame"`
	Description string  `json:"description"`
}

// presetError maps store errors onto API errors.
func presetError(err error) error {
	switch {
	case errors.Is(err, presets.ErrNotFound):
		return apperrors.Wrap(err, apperrors.ErrorTypeNotFound, "rate preset not found", http.StatusNotFound).
			WithCode(apperrors.CodeUnknownPreset)
	case errors.Is(err, presets.ErrInvalidName):
		return apperrors.Wrap(err, apperrors.ErrorTypeValidation, err.Error(), http.StatusBadRequest).
			WithCode(codeInvalidName)
	}
	return err
}

func (s *Server) handleListRates(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, apperrors.Wrap(err, apperrors.ErrorTypeServiceDown, "preset store unavailable", http.StatusServiceUnavailable))
		return
	}

	views := make([]presetView, 0, len(list))
	for _, p := range list {
		views = append(views, newPresetView(p))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"rates": views})
}

func (s *Server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	name := presets.NormalizeName(mux.Vars(r)["name"])
	p, err := s.store.Get(r.Context(), name)
	if err != nil {
		s.writeError(w, r, presetError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, newPresetView(p))
}

// handlePutRate creates or replaces a preset. It answers 201 for a new
// name and 200 for a replacement.
func (s *Server) handlePutRate(w http.ResponseWriter, r *http.Request) {
	name := presets.NormalizeName(mux.Vars(r)["name"])
	if err := presets.ValidateName(name); err != nil {
		s.writeError(w, r, presetError(err))
		return
	}

	var req putPresetRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPresetBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()).WithCode(codeInvalidBody))
		return
	}

	status := http.StatusOK
	if _, err := s.store.Get(r.Context(), name); errors.Is(err, presets.ErrNotFound) {
		status = http.StatusCreated
	}

	p := &presets.Preset{
		Name:        name,
		FPS:         req.FPS,
		Num:         req.Num,
		Den:         req.Den,
		DropFrame:   req.DropFrame,
		Description: req.Description,
	}
	if err := s.store.Put(r.Context(), p); err != nil {
		s.writeError(w, r, presetError(err))
		return
	}

	logger := s.logger.WithField("preset", name)
	logger.WithField("rate", p.Rate().String()).Info("Preset saved")

	s.writeJSON(w, status, newPresetView(p))
}

func (s *Server) handleDeleteRate(w http.ResponseWriter, r *http.Request) {
	name := presets.NormalizeName(mux.Vars(r)["name"])
	if err := s.store.Delete(r.Context(), name); err != nil {
		s.writeError(w, r, presetError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zsiec/smpte/internal/batch"
	apperrors "github.com/zsiec/smpte/internal/errors"
)

const (
	codeInvalidJob       = "INVALID_JOB"
	codeTooManyOps       = "TOO_MANY_OPERATIONS"
	codeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"

	maxBatchBody = 8 << 20
)

// handleBatch runs a job posted as JSON or YAML. The result is YAML when
// the client accepts YAML, JSON otherwise.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	format, err := batch.FormatFromContentType(r.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(w, r, apperrors.Wrap(err, apperrors.ErrorTypeValidation, err.Error(), http.StatusUnsupportedMediaType).
			WithCode(codeUnsupportedMedia))
		return
	}

	job, err := batch.Decode(http.MaxBytesReader(w, r.Body, maxBatchBody), format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, apperrors.NewTooLargeError("batch body too large"))
			return
		}
		s.writeError(w, r, apperrors.NewValidationError(err.Error()).WithCode(codeInvalidJob))
		return
	}

	result, err := s.runner.Run(r.Context(), job)
	if err != nil {
		switch {
		case errors.Is(err, batch.ErrTooManyOperations):
			s.writeError(w, r, apperrors.Wrap(err, apperrors.ErrorTypeTooLarge, err.Error(), http.StatusRequestEntityTooLarge).
				WithCode(codeTooManyOps))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.writeError(w, r, apperrors.NewTimeoutError("batch job cancelled"))
		default:
			s.writeError(w, r, err)
		}
		return
	}

	if acceptsYAML(r.Header.Get("Accept")) {
		out, err := yaml.Marshal(result)
		if err != nil {
			s.writeError(w, r, apperrors.WrapInternalError(err, "failed to encode batch result"))
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func acceptsYAML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if f, err := batch.FormatFromContentType(mediaType); err == nil && f == batch.FormatYAML {
			return true
		}
	}
	return false
}

package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/smpte/pkg/timecode"
)

func newTestHandler() (*ErrorHandler, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewErrorHandler(logger), hook
}

func TestHandleError_TimecodeError(t *testing.T) {
	h, hook := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timecode/parse", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()

	_, err := timecode.Rate29_97DF.Parse("01:00:00;30")
	require.Error(t, err)
	h.HandleError(rec, req, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrorTypeValidation, resp.Error.Type)
	assert.Equal(t, CodeFrameRateMismatch, resp.Error.Code)
	assert.Equal(t, "req-1", resp.TraceID)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestHandleError_InternalLogsAtError(t *testing.T) {
	h, hook := newTestHandler()

	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestHandleNotFoundAndMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler()

	rec := httptest.NewRecorder()
	h.HandleNotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleMethodNotAllowed(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/rates", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMiddleware_RecoversPanic(t *testing.T) {
	h, hook := newTestHandler()

	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "Panic recovered in HTTP handler" {
			found = true
		}
	}
	assert.True(t, found)
}

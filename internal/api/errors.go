package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/storage"
	"contagion-lab/internal/verification"
)

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps engine and storage errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrShockExceedsAssets):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, verification.ErrSeriesNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	entry := s.log.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"status": code,
	})
	if code >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Debug("request rejected")
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, w http.ResponseWriter, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/jd-highlighter/internal/ingestion"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrPostingNotFound indicates a job posting was not found
type ErrPostingNotFound struct {
	PostingID uuid.UUID
	URL       string
}

func (e *ErrPostingNotFound) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("job posting not found: %s", e.URL)
	}
	return fmt.Sprintf("job posting not found: %s", e.PostingID)
}

// ErrNoDescription indicates a stored posting has no text to highlight
type ErrNoDescription struct {
	PostingID uuid.UUID
}

func (e *ErrNoDescription) Error() string {
	return fmt.Sprintf("job posting has no description: %s", e.PostingID)
}

// ErrStoreUnavailable indicates the server runs without a posting store
type ErrStoreUnavailable struct{}

func (e *ErrStoreUnavailable) Error() string {
	return "job posting store is not configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || errors.Is(err, ingestion.ErrInputTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, ingestion.ErrContentExtractionFailed) {
		return http.StatusUnprocessableEntity
	}

	switch err.(type) {
	case *ErrValidation:
		return http.StatusBadRequest
	case *ErrPostingNotFound:
		return http.StatusNotFound
	case *ErrNoDescription:
		return http.StatusUnprocessableEntity
	case *ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

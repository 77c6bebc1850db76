package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// Classification sentinels matched by RequestError via errors.Is.
var (
	ErrUnauthorised = errors.New("graph: unauthorised")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrRateLimited  = errors.New("graph: rate limited")
	ErrBadRequest   = errors.New("graph: bad request")
	ErrServerError  = errors.New("graph: server error")

	// ErrFolderNotFound is returned by GetFolder and GetInbox when no folder
	// display name matches.
	ErrFolderNotFound = errors.New("graph: folder not found")

	errRequestFailed = errors.New("graph: request failed")
)

// RequestError is returned for every non-success Graph response.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap exposes the status classification.
func (e *RequestError) Unwrap() error {
	return classify(e.StatusCode)
}

func classify(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorised
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if statusCode >= 500 {
			return ErrServerError
		}
		return errRequestFailed
	}
}

// IsNotFound reports whether err is a 404 from Graph.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

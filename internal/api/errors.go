package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned for 401 responses. The stored token has
	// already been cleared when a caller sees it.
	ErrUnauthorized = errors.New("unauthorized: please log in again")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrNoPrayerTimes is returned when the backend has no schedule for a city.
	ErrNoPrayerTimes = errors.New("no prayer times found for this city")

	// ErrNotLoggedIn is returned by authenticated calls when no token is stored.
	ErrNotLoggedIn = errors.New("not logged in")
)

// StatusError describes a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Code, e.Body)
}

// Is lets errors.Is match the sentinel that corresponds to the status code.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCoordinate signals a latitude/longitude outside the WGS84 range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidRequest signals malformed search parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSuperseded signals that a newer query in the same session replaced this one.
	ErrSuperseded = errors.New("query superseded")

	// ErrLocation is the common cause of every LocationError.
	ErrLocation = errors.New("location unavailable")
	// ErrLookup is the common cause of every LookupError.
	ErrLookup = errors.New("direct lookup failed")
	// ErrSearch is the common cause of every SearchError.
	ErrSearch = errors.New("search failed")
	// ErrClassification is the common cause of every ClassificationDefect.
	ErrClassification = errors.New("unrecognized result type")
)

// LocationErrorKind describes why a location fix could not be produced.
type LocationErrorKind string

const (
	// LocationDenied means the user refused the location permission.
	LocationDenied LocationErrorKind = "denied"
	// LocationTimeout means no fix arrived within the provider timeout.
	LocationTimeout LocationErrorKind = "timeout"
	// LocationUnavailable covers every other failure.
	LocationUnavailable LocationErrorKind = "unavailable"
)

// LocationError is returned by the geo provider. Callers degrade to distance-less ranking.
type LocationError struct {
	Kind LocationErrorKind
	Err  error
}

func (e *LocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrLocation.Error(), e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrLocation.Error(), e.Kind)
}

func (e *LocationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrLocation, e.Err}
	}
	return []error{ErrLocation}
}

// NewLocationError creates a location error of the given kind.
func NewLocationError(kind LocationErrorKind, cause error) error {
	return &LocationError{Kind: kind, Err: cause}
}

// LookupErrorKind describes a direct identifier lookup failure.
type LookupErrorKind string

const (
	// LookupNotFound means the backend has no record for the identifier.
	LookupNotFound LookupErrorKind = "not_found"
	// LookupTransport means the lookup call itself failed.
	LookupTransport LookupErrorKind = "transport"
)

// LookupError is returned by a direct lookup. It is recovered by falling back to universal search.
type LookupError struct {
	Kind        LookupErrorKind
	ReferenceID string
	Err         error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s: %v", ErrLookup.Error(), e.Kind, e.ReferenceID, e.Err)
	}
	return fmt.Sprintf("%s: %s %s", ErrLookup.Error(), e.Kind, e.ReferenceID)
}

func (e *LookupError) Unwrap() []error {
	errs := []error{ErrLookup}
	if e.Kind == LookupNotFound {
		errs = append(errs, ErrNotFound)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// SearchErrorKind describes a universal search failure.
type SearchErrorKind string

const (
	// SearchTransport means the request never produced a response.
	SearchTransport SearchErrorKind = "transport"
	// SearchServer means the backend answered with an error status.
	SearchServer SearchErrorKind = "server"
)

// SearchError is terminal for a query: the presentation layer shows "no results, retry".
type SearchError struct {
	Kind       SearchErrorKind
	StatusCode int
	Err        error
}

func (e *SearchError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrSearch.Error(), e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SearchError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSearch, e.Err}
	}
	return []error{ErrSearch}
}

// ClassificationDefect reports a result whose type is outside the declared enum.
type ClassificationDefect struct {
	ResultID   string
	ResultType string
}

func (e *ClassificationDefect) Error() string {
	return fmt.Sprintf("%s %q on result %q", ErrClassification.Error(), e.ResultType, e.ResultID)
}

func (e *ClassificationDefect) Unwrap() error { return ErrClassification }

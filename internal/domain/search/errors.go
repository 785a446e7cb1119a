package search

import "errors"

// Sentinel errors for search outcomes that are not "found" or "not found".
var (
	ErrSamePerson     = errors.New("source and target are the same person")
	ErrPersonNotFound = errors.New("person not found")
	ErrTimeout        = errors.New("search timed out")
	ErrUnavailable    = errors.New("affiliation store unavailable")
	ErrInvalidRequest = errors.New("invalid search request")
)

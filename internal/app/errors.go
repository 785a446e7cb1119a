package service

import "errors"

// Sentinel errors returned by Service methods other than FindPath, which
// reports failures inside types.Result.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrTooManyPairs = errors.New("too many pairs in batch")
	ErrQueueFull    = errors.New("batch queue is full")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("store unavailable")
)

package model

import "errors"

// Sentinel errors for model validation.
var (
	ErrInvalidInterval = errors.New("stint start is after its end")
	ErrInvalidDate     = errors.New("invalid date")
)

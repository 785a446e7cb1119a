package config

import "errors"

var (
	// ErrInvalidConfig wraps field validation failures.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading the config file or environment.
	ErrLoadConfig = errors.New("load config failed")
)

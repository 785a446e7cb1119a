package search

import "github.com/okian/touchline/pkg/logger"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMaxDepth sets the depth used when a request leaves MaxDepth at zero.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithMaxDepthLimit sets the largest MaxDepth a request may ask for.
func WithMaxDepthLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.depthLimit = limit
		}
	}
}

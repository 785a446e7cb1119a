// Package scoring computes the display score of a found path from its length
// and the time the search took.
package scoring

import "time"

// Default scoring configuration constants.
const (
	defaultBase          = 1000
	defaultStepPenalty   = 100
	defaultFloor         = 100
	defaultFastBonus     = 50
	defaultFastThreshold = 5 * time.Second
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithFastBonus sets the bonus awarded to searches faster than threshold.
func WithFastBonus(bonus int, threshold time.Duration) Option {
	return func(c *Calculator) {
		if bonus >= 0 && threshold > 0 {
			c.fastBonus = bonus
			c.fastThreshold = threshold
		}
	}
}

// WithFloor sets the minimum score of a found path.
func WithFloor(floor int) Option {
	return func(c *Calculator) {
		if floor >= 0 {
			c.floor = floor
		}
	}
}

// Calculator scores paths. It is pure and safe for concurrent use.
type Calculator struct {
	base          int
	stepPenalty   int
	floor         int
	fastBonus     int
	fastThreshold time.Duration
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		base:          defaultBase,
		stepPenalty:   defaultStepPenalty,
		floor:         defaultFloor,
		fastBonus:     defaultFastBonus,
		fastThreshold: defaultFastThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score returns max(floor, base - penalty*(steps-1) + bonus) where bonus is
// paid when the search finished under the fast threshold. A path with no
// steps (not found) scores zero.
func (c *Calculator) Score(steps int, elapsedMs int64) int {
	if steps <= 0 {
		return 0
	}
	score := c.base - c.stepPenalty*(steps-1)
	if elapsedMs < c.fastThreshold.Milliseconds() {
		score += c.fastBonus
	}
	return max(c.floor, score)
}

var defaultCalculator = NewCalculator() //nolint:gochecknoglobals // stateless default

// Score scores a path with the default calculator.
func Score(steps int, elapsedMs int64) int {
	return defaultCalculator.Score(steps, elapsedMs)
}

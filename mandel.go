package mandel

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when a Config has a non-positive dimension or iteration count.
var ErrInvalidConfig = errors.New("invalid config")

// Canonical view parameters
const (
	DefaultWidth      = 1366
	DefaultHeight     = 768
	DefaultIterations = 30
)

// Config describes one fixed full-set view. It is immutable for a run and
// passed by value to everything that needs it.
type Config struct {
	Width, Height int
	Iterations    int
}

func DefaultConfig() Config {
	return Config{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Iterations: DefaultIterations,
	}
}

// NewConfig returns a validated Config.
func NewConfig(w, h, iterations int) (Config, error) {
	cfg := Config{Width: w, Height: h, Iterations: iterations}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d must be positive", ErrInvalidConfig, cfg.Width, cfg.Height)
	}
	if cfg.Iterations <= 0 {
		return fmt.Errorf("%w: iteration count %d must be positive", ErrInvalidConfig, cfg.Iterations)
	}
	// a 1 pixel high grid has half height 0, which would divide by zero in Point
	if cfg.Height < 2 {
		return fmt.Errorf("%w: height %d must be at least 2", ErrInvalidConfig, cfg.Height)
	}
	return nil
}

func (cfg Config) HalfWidth() int  { return cfg.Width / 2 }
func (cfg Config) HalfHeight() int { return cfg.Height / 2 }

// Point maps pixel (row, col) to its sample point in the complex plane.
//
// x is centered on half the width but both axes are scaled by half the
// height, so the view is stretched horizontally. Reference images depend on
// this exact formula.
func (cfg Config) Point(row, col int) complex128 {
	hh := float64(cfg.HalfHeight())
	x := float64(col - cfg.HalfWidth())
	y := float64(row - cfg.HalfHeight())
	// component-wise division keeps c(row) and c(mirrored row) exact conjugates
	return complex(x/hh, y/hh)
}

// Classify reports whether pixel (row, col) stays bounded for cfg.Iterations.
func (cfg Config) Classify(row, col int) bool {
	return Bounded(cfg.Point(row, col), cfg.Iterations)
}

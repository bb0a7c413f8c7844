package rt

import (
	"fmt"
	"math"
)

// Policy decides what happens to days whose active-case count is not positive.
type Policy int

const (
	// PolicyNaN leaves the logarithm undefined; dependent Rt points are NaN.
	PolicyNaN Policy = iota
	// PolicyFloor raises the active count to Params.Floor before the logarithm.
	// Consecutive floored days therefore give a growth of zero and an Rt of
	// exactly 1; Result.NonPositive is the only trace of them.
	PolicyFloor
)

// ParsePolicy maps "nan" and "floor" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "nan":
		return PolicyNaN, nil
	case "floor":
		return PolicyFloor, nil
	default:
		return PolicyNaN, fmt.Errorf("%w: unknown policy %q", ErrInvalidParams, s)
	}
}

func (p Policy) String() string {
	if p == PolicyFloor {
		return "floor"
	}
	return "nan"
}

// Params configures the engine.
type Params struct {
	// Kernel holds the FIR smoothing coefficients.
	Kernel []float64
	// MinSmoothLength is the Rt series length that must be exceeded before
	// smoothing is applied.
	MinSmoothLength int
	Policy          Policy
	Floor           float64
}

// DefaultParams is a three-day moving average applied to series longer
// than nine points, with undefined points left as NaN.
func DefaultParams() Params {
	return Params{
		Kernel:          []float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
		MinSmoothLength: 9,
		Policy:          PolicyNaN,
		Floor:           0.5,
	}
}

// PadLen is the odd-extension length used by the smoother.
func (p Params) PadLen() int { return 3 * len(p.Kernel) }

// Validate checks the kernel and lengths.
func (p Params) Validate() error {
	if len(p.Kernel) == 0 {
		return fmt.Errorf("%w: empty kernel", ErrInvalidParams)
	}
	for _, k := range p.Kernel {
		if math.IsNaN(k) || math.IsInf(k, 0) {
			return fmt.Errorf("%w: kernel coefficient %v", ErrInvalidParams, k)
		}
	}
	if p.MinSmoothLength < p.PadLen() {
		return fmt.Errorf("%w: min smooth length %d below padding length %d", ErrInvalidParams, p.MinSmoothLength, p.PadLen())
	}
	if p.Policy == PolicyFloor && !(p.Floor > 0) {
		return fmt.Errorf("%w: floor must be positive", ErrInvalidParams)
	}
	return nil
}

// Option adjusts Params.
type Option func(*Params)

// WithKernel replaces the smoothing kernel.
func WithKernel(k []float64) Option {
	return func(p *Params) {
		if len(k) > 0 {
			p.Kernel = append([]float64(nil), k...)
		}
	}
}

// WithMinSmoothLength sets the length threshold for smoothing.
func WithMinSmoothLength(n int) Option {
	return func(p *Params) { p.MinSmoothLength = n }
}

// WithPolicy selects the non-positive active count policy. floor is used
// only by PolicyFloor.
func WithPolicy(policy Policy, floor float64) Option {
	return func(p *Params) {
		p.Policy = policy
		if floor > 0 {
			p.Floor = floor
		}
	}
}

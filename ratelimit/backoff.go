package ratelimit

import (
	"math"
	"time"
)

// Policy computes the delay before retry attempt n (0-indexed: n=0 is the
// delay before the first retry).
type Policy interface {
	Delay(n int) time.Duration
}

// ExponentialBackoff computes delay(n) = min(max, base*factor^n).
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

// NewExponentialBackoff returns an ExponentialBackoff with factor=2 when
// factor is zero.
func NewExponentialBackoff(base, max time.Duration, factor float64) ExponentialBackoff {
	if factor == 0 {
		factor = 2
	}
	return ExponentialBackoff{Base: base, Max: max, Factor: factor}
}

func (p ExponentialBackoff) Delay(n int) time.Duration {
	d := time.Duration(float64(p.Base) * math.Pow(p.Factor, float64(n)))
	if d > p.Max {
		return p.Max
	}
	return d
}

// LinearBackoff computes delay(n) = min(max, base + n*increment).
type LinearBackoff struct {
	Base      time.Duration
	Increment time.Duration
	Max       time.Duration
}

func (p LinearBackoff) Delay(n int) time.Duration {
	d := p.Base + time.Duration(n)*p.Increment
	if d > p.Max {
		return p.Max
	}
	return d
}

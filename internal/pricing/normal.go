// Package pricing implements the closed-form option pricer used by the
// strategy engine: a normal distribution approximation and Black-Scholes
// fair value with Greeks.
package pricing

import "math"

// Abramowitz & Stegun 26.2.19 coefficients.
const (
	nd1 = 0.0498673470
	nd2 = 0.0211410061
	nd3 = 0.0032776263
	nd4 = 0.0000380036
	nd5 = 0.0000488906
	nd6 = 0.0000053830
)

const invSqrt2Pi = 0.3989422804014327

// CDF approximates the standard normal cumulative distribution.
// Absolute error is below 1.5e-7.
func CDF(x float64) float64 {
	if x < -10 {
		return 0
	}
	if x > 10 {
		return 1
	}
	a := math.Abs(x)
	poly := 1 + a*(nd1+a*(nd2+a*(nd3+a*(nd4+a*(nd5+a*nd6)))))
	p := 1 - 0.5*math.Pow(poly, -16)
	if x < 0 {
		return 1 - p
	}
	return p
}

// PDF is the standard normal density.
func PDF(x float64) float64 {
	return invSqrt2Pi * math.Exp(-0.5*x*x)
}

/*package cosmo computes the handful of background-cosmology quantities that
snapshot readers need: the age of the universe at a given redshift and the
mean matter density. Curvature is allowed, radiation is ignored.
*/
package cosmo

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	// HubbleTimeGyrH is 1/H0 in Gyr for H0 = 1 km/s/Mpc.
	HubbleTimeGyrH = 977.792221513
	// RhoCritH2 is the critical density today in Msun/Mpc^3 for h = 1.
	RhoCritH2 = 2.77536627e11

	// Number of Gauss-Legendre nodes used for the age integral. The
	// integrand is smooth after the a = x^2 substitution, so this is far
	// more than enough.
	ageNodes = 64
)

// Cosmology is a Lambda-CDM cosmology. H0 is in km/s/Mpc.
type Cosmology struct {
	H0, OmegaM, OmegaL float64
}

// New returns the cosmology with Hubble parameter h100 (little h), matter
// density OmegaM and dark energy density OmegaL.
func New(h100, omegaM, omegaL float64) *Cosmology {
	return &Cosmology{H0: 100 * h100, OmegaM: omegaM, OmegaL: omegaL}
}

// OmegaK returns the curvature density parameter.
func (c *Cosmology) OmegaK() float64 { return 1 - c.OmegaM - c.OmegaL }

// E returns H(z)/H0.
func (c *Cosmology) E(z float64) float64 {
	a1 := 1 + z
	return math.Sqrt(c.OmegaM*a1*a1*a1 + c.OmegaK()*a1*a1 + c.OmegaL)
}

// HubbleTime returns 1/H0 in Gyr.
func (c *Cosmology) HubbleTime() float64 { return HubbleTimeGyrH / c.H0 }

// AgeA returns the age of the universe in Gyr at scale factor a.
func (c *Cosmology) AgeA(a float64) float64 {
	if a <= 0 {
		return 0
	}

	// t(a) = t_H * int_0^a da' / (a' E(a')). Substituting a' = x^2 removes
	// the sqrt(a') behavior at the origin.
	om, ok, ol := c.OmegaM, c.OmegaK(), c.OmegaL
	f := func(x float64) float64 {
		x2 := x * x
		return 2 * x2 / math.Sqrt(om+ok*x2+ol*x2*x2*x2)
	}
	return c.HubbleTime() * quad.Fixed(f, 0, math.Sqrt(a), ageNodes, nil, 0)
}

// Age returns the age of the universe in Gyr at redshift z.
func (c *Cosmology) Age(z float64) float64 { return c.AgeA(1 / (1 + z)) }

// Ages returns the age of the universe in Gyr at each redshift in zs. It
// takes an optional output buffer.
func (c *Cosmology) Ages(zs []float64, out ...[]float64) []float64 {
	var ages []float64
	if len(out) > 0 && len(out[0]) == len(zs) {
		ages = out[0]
	} else {
		ages = make([]float64, len(zs))
	}
	for i := range zs {
		ages[i] = c.Age(zs[i])
	}
	return ages
}

// RhoAverage returns the mean matter density at redshift z in Msun/Mpc^3
// (physical, not comoving) for a cosmology with the given H0 in km/s/Mpc.
func RhoAverage(H0, omegaM, omegaL, z float64) float64 {
	h := H0 / 100
	a1 := 1 + z
	return RhoCritH2 * h * h * omegaM * a1 * a1 * a1
}

// RhoAverage returns the mean matter density of c at redshift z in
// Msun/Mpc^3.
func (c *Cosmology) RhoAverage(z float64) float64 {
	return RhoAverage(c.H0, c.OmegaM, c.OmegaL, z)
}

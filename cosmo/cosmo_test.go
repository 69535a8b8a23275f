package cosmo

import (
	"math"
	"testing"
)

func almostEq(x, y, eps float64) bool {
	return math.Abs(x-y) <= eps*math.Max(math.Abs(x), math.Abs(y))
}

// flatAge is the closed-form age of a flat Lambda-CDM universe.
func flatAge(c *Cosmology, z float64) float64 {
	a := 1 / (1 + z)
	ol, om := c.OmegaL, c.OmegaM
	return c.HubbleTime() * 2 / (3 * math.Sqrt(ol)) *
		math.Asinh(math.Sqrt(ol/om)*math.Pow(a, 1.5))
}

func TestAgeEdS(t *testing.T) {
	c := New(0.7, 1, 0)
	for _, z := range []float64{0, 0.5, 1, 3, 10} {
		a := 1 / (1 + z)
		res := 2.0 / 3 * c.HubbleTime() * math.Pow(a, 1.5)
		if age := c.Age(z); !almostEq(age, res, 1e-10) {
			t.Errorf("EdS Age(%g) = %g, not %g", z, age, res)
		}
	}
}

func TestAgeFlatLCDM(t *testing.T) {
	c := New(0.702, 0.272, 0.728)
	for _, z := range []float64{0, 0.1, 1, 2.5, 6, 20} {
		res := flatAge(c, z)
		if age := c.Age(z); !almostEq(age, res, 1e-8) {
			t.Errorf("LCDM Age(%g) = %g, not %g", z, age, res)
		}
	}

	// Sanity check against the usual ~13.8 Gyr.
	if age := c.Age(0); age < 13.5 || age > 14.0 {
		t.Errorf("Age(0) = %g Gyr, which is not what the universe looks like.",
			age)
	}
}

func TestAgeOpen(t *testing.T) {
	// Open, matter-only universe: closed form in terms of eta.
	c := New(0.7, 0.3, 0)
	om := c.OmegaM
	a := 1.0
	x := 2 * (1 - om) * a / om
	eta := math.Acosh(1 + x)
	res := c.HubbleTime() * om / (2 * math.Pow(1-om, 1.5)) *
		(math.Sinh(eta) - eta)
	if age := c.AgeA(a); !almostEq(age, res, 1e-8) {
		t.Errorf("Open AgeA(%g) = %g, not %g", a, age, res)
	}
}

func TestAges(t *testing.T) {
	c := New(0.7, 0.3, 0.7)
	zs := []float64{0, 1, 2}
	out := make([]float64, 3)
	ages := c.Ages(zs, out)
	for i := range zs {
		if ages[i] != c.Age(zs[i]) || out[i] != ages[i] {
			t.Errorf("Ages()[%d] = %g, not %g", i, ages[i], c.Age(zs[i]))
		}
	}
	if !(ages[0] > ages[1] && ages[1] > ages[2]) {
		t.Errorf("Ages(%g) = %g isn't decreasing.", zs, ages)
	}
	if c.AgeA(0) != 0 {
		t.Errorf("AgeA(0) = %g, not 0", c.AgeA(0))
	}
}

func TestRhoAverage(t *testing.T) {
	c := New(1, 1, 0)
	if rho := c.RhoAverage(0); !almostEq(rho, RhoCritH2, 1e-12) {
		t.Errorf("RhoAverage(0) = %g, not %g", rho, RhoCritH2)
	}
	if rho := c.RhoAverage(1); !almostEq(rho, 8*RhoCritH2, 1e-12) {
		t.Errorf("RhoAverage(1) = %g, not %g", rho, 8*RhoCritH2)
	}
}

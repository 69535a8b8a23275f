package unit

// Physical constants in SI units.
const (
	Kb = 1.380649e-23      // Boltzmann constant, J/K
	Mp = 1.67262192369e-27 // proton mass, kg
	G  = 6.67430e-11       // gravitational constant, m^3 kg^-1 s^-2
)

// Constant returns one of the physical constants above as a scalar tagged
// against reg.
func Constant(name string, reg *Registry) (*Array, error) {
	switch name {
	case "kb":
		return Scalar(Kb, "J / K", reg)
	case "mp":
		return Scalar(Mp, "kg", reg)
	case "G":
		return Scalar(G, "m**3 / kg / s**2", reg)
	}
	return nil, ErrUnknownSymbol
}

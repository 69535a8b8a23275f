package spec

// GIZMO returns the format description of GIZMO snapshots. GADGET-2/3
// snapshots written in the same layout work too.
func GIZMO() *Spec {
	return &Spec{
		Name:            "gizmo",
		HeaderGroup:     "Header",
		NPartKey:        "n_part",
		NPartPerFileKey: "n_part_pf",
		NFileKey:        "n_file",

		Header: []HeaderEntry{
			{Raw: "Time", Key: KeyTime, Unit: "Gyr"},
			{Raw: "NumFilesPerSnapshot", Key: "n_file"},
			{Raw: "MassTable", Key: "mass_tab", Unit: "code_mass"},
			{Raw: "Flag_Sfr", Key: "f_sfr"},
			{Raw: "Flag_Cooling", Key: "f_cool"},
			{Raw: "Flag_Feedback", Key: "f_fb"},
			{Raw: "Flag_StellarAge", Key: "f_age"},
			{Raw: "Flag_Metals", Key: "f_met"},
			{Raw: "NumPart_Total", Key: "n_part"},
			{Raw: "NumPart_ThisFile", Key: "n_part_pf", PerFile: true},
			{Raw: "BoxSize", Key: "box_size", Unit: "code_length"},
			{Raw: "Omega0", Key: KeyOmegaM},
			{Raw: "OmegaLambda", Key: KeyOmegaL},
			{Raw: "HubbleParam", Key: KeyHubble},
			{Raw: "Redshift", Key: KeyRedshift},
		},

		Units: Units{
			SolarAbundance:       0.02,
			LengthInCm:           3.085678e21,
			MassInG:              1.989e43,
			VelocityInCmPerS:     1e5,
			MagneticFieldInGauss: 1,
		},

		Ptypes: []Ptype{
			{"PartType0", "gas"},
			{"PartType1", "hdm"},
			{"PartType2", "ldm"},
			{"PartType3", "dum"},
			{"PartType4", "star"},
			{"PartType5", "bh"},
		},

		Fields: []Field{
			{"Coordinates", "p", "code_length"},
			{"Velocities", "v", "code_velocity"},
			{"ParticleIDs", "id", ""},
			{"Masses", "m", "code_mass"},
			{"InternalEnergy", "u", "code_specific_energy"},
			{"Density", "rho", "code_mass / code_length**3"},
			{"SmoothingLength", "h", "code_length"},
			{"ElectronAbundance", "ne", ""},
			{"NeutralHydrogenAbundance", "nh", ""},
			{"StarFormationRate", "sfr", "Msun / yr"},
			{"Metallicity", "z", "code_metallicity"},
			{"ArtificialViscosity", "alpha", ""},
			{"MagneticField", "b", "code_magnetic_field"},
			{"DivergenceOfMagneticField", "divb", "code_magnetic_field / code_length"},
			{"StellarFormationTime", "sft", ""},
			{"BH_Mass", "mbh", "code_mass"},
			{"BH_Mdot", "mdot", "code_mass / code_time"},
			{"BH_Mass_AlphaDisk", "mad", "code_mass"},
		},

		Derived: []Derived{
			{Ptype: "gas", Key: "t", Producer: "temperature"},
			{Ptype: "star", Key: "age", Producer: "stellar_age"},
		},
	}
}

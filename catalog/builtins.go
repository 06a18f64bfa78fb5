package catalog

var builtins = []Definition{
	{
		Name:        "minkowski",
		Description: "flat spacetime, Cartesian coordinates",
		Coordinates: []string{"t", "x", "y", "z"},
		Diagonal:    []string{"-1", "1", "1", "1"},
	},
	{
		Name:        "two_sphere",
		Description: "sphere of radius a",
		Coordinates: []string{"theta", "phi"},
		Diagonal:    []string{"a^2", "a^2*sin(theta)^2"},
	},
	{
		Name:        "polar",
		Description: "flat plane in polar coordinates",
		Coordinates: []string{"r", "theta"},
		Diagonal:    []string{"1", "r^2"},
	},
	{
		Name:        "flat_spherical",
		Description: "flat space in spherical coordinates",
		Coordinates: []string{"r", "theta", "phi"},
		Diagonal:    []string{"1", "r^2", "r^2*sin(theta)^2"},
	},
	{
		Name:        "schwarzschild",
		Description: "vacuum exterior of a spherical mass M (G = c = 1)",
		Coordinates: []string{"t", "r", "theta", "phi"},
		Diagonal:    []string{"-(1 - 2*M/r)", "1/(1 - 2*M/r)", "r^2", "r^2*sin(theta)^2"},
	},
	{
		Name:        "weak_field",
		Description: "linearized field of a mass M, Newtonian potential -M/r (G = c = 1)",
		Coordinates: []string{"t", "r", "theta", "phi"},
		Diagonal:    []string{"-(1 - 2*M/r)", "1 + 2*M/r", "r^2", "r^2*sin(theta)^2"},
	},
	{
		Name:        "flrw",
		Description: "Friedmann-Lemaitre-Robertson-Walker with scale factor a(t) and curvature k",
		Coordinates: []string{"t", "r", "theta", "phi"},
		Diagonal:    []string{"-1", "a(t)^2/(1 - k*r^2)", "a(t)^2*r^2", "a(t)^2*r^2*sin(theta)^2"},
	},
	{
		Name:        "conformally_compacted",
		Description: "Minkowski space conformally mapped onto the Einstein static universe",
		Coordinates: []string{"T", "chi", "theta", "phi"},
		Diagonal: []string{
			"-1/(cos(T) + cos(chi))^2",
			"1/(cos(T) + cos(chi))^2",
			"sin(chi)^2/(cos(T) + cos(chi))^2",
			"sin(chi)^2*sin(theta)^2/(cos(T) + cos(chi))^2",
		},
	},
}

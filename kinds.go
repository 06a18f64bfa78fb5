package spacetime

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// Kind identifies a tensor the engine can produce.
type Kind int

const (
	KindMetric Kind = iota + 1
	KindChristoffel
	KindRiemann
	KindRicci
	KindRicciScalar
	KindEinstein
	KindSchouten
	KindWeyl
	KindStressEnergy
	KindProperAcceleration
	KindCoordinateAcceleration
	KindGeodesicDeviation
)

var kindNames = map[Kind]string{
	KindMetric:                 "metric",
	KindChristoffel:            "christoffel",
	KindRiemann:                "riemann",
	KindRicci:                  "ricci",
	KindRicciScalar:            "ricci_scalar",
	KindEinstein:               "einstein",
	KindSchouten:               "schouten",
	KindWeyl:                   "weyl",
	KindStressEnergy:           "stress_energy",
	KindProperAcceleration:     "proper_acceleration",
	KindCoordinateAcceleration: "coordinate_acceleration",
	KindGeodesicDeviation:      "geodesic_deviation",
}

var kindSymbols = map[Kind]string{
	KindMetric:                 "g",
	KindChristoffel:            "Γ",
	KindRiemann:                "R",
	KindRicci:                  "R",
	KindRicciScalar:            "R",
	KindEinstein:               "G",
	KindSchouten:               "P",
	KindWeyl:                   "C",
	KindStressEnergy:           "T",
	KindProperAcceleration:     "ẍ",
	KindCoordinateAcceleration: "a",
	KindGeodesicDeviation:      "Dξ",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind maps a name such as "ricci_scalar" to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, s := range kindNames {
		if s == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Kinds lists every kind in pipeline order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := range kindNames {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Configs lists the index configurations k supports.
func (k Kind) Configs() []IndexConfig {
	if k == KindMetric {
		return []IndexConfig{DD, UU}
	}
	var out []IndexConfig
	for key := range recipes {
		if key.kind == k {
			out = append(out, key.cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var defaultConfigs = map[Kind]IndexConfig{
	KindMetric:                 DD,
	KindChristoffel:            UDD,
	KindRiemann:                UDDD,
	KindRicci:                  DD,
	KindRicciScalar:            Scalar,
	KindEinstein:               DD,
	KindSchouten:               DD,
	KindWeyl:                   DDDD,
	KindStressEnergy:           DD,
	KindProperAcceleration:     U,
	KindCoordinateAcceleration: U,
	KindGeodesicDeviation:      U,
}

// DefaultConfig is the configuration k is conventionally quoted in, e.g.
// udd for the Christoffel symbols.
func (k Kind) DefaultConfig() IndexConfig { return defaultConfigs[k] }

// Supports reports whether cfg is a valid configuration for k.
func (k Kind) Supports(cfg IndexConfig) bool {
	if k == KindMetric {
		return cfg == DD || cfg == UU
	}
	_, ok := recipes[key{kind: k, cfg: cfg}]
	return ok
}

// Label renders a component name such as "Γ^{0}_{12}" or "R_{01}".
func (k Kind) Label(cfg IndexConfig, idx []int) string {
	var sb strings.Builder
	sb.WriteString(kindSymbols[k])
	for s := 0; s < len(cfg); {
		e := s
		for e < len(cfg) && cfg[e] == cfg[s] {
			e++
		}
		if cfg[s] == 'u' {
			sb.WriteString("^{")
		} else {
			sb.WriteString("_{")
		}
		for i := s; i < e && i < len(idx); i++ {
			sb.WriteString(strconv.Itoa(idx[i]))
		}
		sb.WriteString("}")
		s = e
	}
	return sb.String()
}

// key addresses one memoized tensor.
type key struct {
	kind Kind
	cfg  IndexConfig
}

func (k key) String() string { return k.kind.String() + "/" + k.cfg.String() }

// recipe describes how to build one (kind, configuration) from committed
// dependencies. Each component is computed independently.
type recipe struct {
	requires  []key
	check     func(dim int) error
	component func(c *calc, idx []int) (symbolic.Expr, error)
	verify    func(c *calc, t *Tensor) error
}

var recipes map[key]recipe

func init() {
	gDD, gUU := key{KindMetric, DD}, key{KindMetric, UU}
	christoffel := key{KindChristoffel, UDD}
	riemannUp, riemannDown := key{KindRiemann, UDDD}, key{KindRiemann, DDDD}
	ricci, scalar := key{KindRicci, DD}, key{KindRicciScalar, Scalar}
	einstein, schouten, stress := key{KindEinstein, DD}, key{KindSchouten, DD}, key{KindStressEnergy, DD}

	recipes = map[key]recipe{
		christoffel:                     {requires: []key{gDD, gUU}, component: christoffelSecondKind},
		{KindChristoffel, DDD}:          {requires: []key{gDD}, component: christoffelFirstKind},
		riemannUp:                       {requires: []key{christoffel}, component: riemannMixed},
		riemannDown:                     {requires: []key{gDD, christoffel}, component: riemannCovariant},
		{KindRiemann, DDUU}:             {requires: []key{riemannDown, gUU}, component: raiseFrom(KindRiemann, DDDD)},
		ricci:                           {requires: []key{riemannUp}, component: ricciTensor, verify: verifyRicciSymmetric},
		{KindRicci, UU}:                 {requires: []key{ricci, gUU}, component: raiseFrom(KindRicci, DD)},
		{KindRicci, UD}:                 {requires: []key{ricci, gUU}, component: raiseFrom(KindRicci, DD)},
		{KindRicci, DU}:                 {requires: []key{ricci, gUU}, component: raiseFrom(KindRicci, DD)},
		scalar:                          {requires: []key{ricci, gUU}, component: ricciScalar},
		einstein:                        {requires: []key{ricci, scalar, gDD}, component: einsteinTensor},
		{KindEinstein, UU}:              {requires: []key{einstein, gUU}, component: raiseFrom(KindEinstein, DD)},
		{KindEinstein, UD}:              {requires: []key{einstein, gUU}, component: raiseFrom(KindEinstein, DD)},
		{KindEinstein, DU}:              {requires: []key{einstein, gUU}, component: raiseFrom(KindEinstein, DD)},
		schouten:                        {requires: []key{ricci, scalar, gDD}, check: checkSchoutenDim, component: schoutenTensor},
		{KindSchouten, UU}:              {requires: []key{schouten, gUU}, check: checkSchoutenDim, component: raiseFrom(KindSchouten, DD)},
		{KindWeyl, DDDD}:                {requires: []key{riemannDown, ricci, scalar, gDD}, check: checkWeylDim, component: weylTensor},
		stress:                          {requires: []key{einstein, gDD}, component: stressEnergy},
		{KindStressEnergy, UU}:          {requires: []key{stress, gUU}, component: raiseFrom(KindStressEnergy, DD)},
		{KindStressEnergy, UD}:          {requires: []key{stress, gUU}, component: raiseFrom(KindStressEnergy, DD)},
		{KindStressEnergy, DU}:          {requires: []key{stress, gUU}, component: raiseFrom(KindStressEnergy, DD)},
		{KindProperAcceleration, U}:     {requires: []key{christoffel}, component: properAcceleration},
		{KindCoordinateAcceleration, U}: {requires: []key{christoffel}, component: coordinateAcceleration},
		{KindGeodesicDeviation, U}:      {requires: []key{riemannUp}, component: geodesicDeviation},
	}
}

// dependents returns every key whose recipe transitively requires one of
// roots, not including roots themselves.
func dependents(roots ...key) map[key]struct{} {
	out := map[key]struct{}{}
	frontier := append([]key(nil), roots...)
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		for k, r := range recipes {
			if _, seen := out[k]; seen {
				continue
			}
			for _, dep := range r.requires {
				if dep == next {
					out[k] = struct{}{}
					frontier = append(frontier, k)
					break
				}
			}
		}
	}
	return out
}

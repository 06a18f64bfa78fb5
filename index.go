package spacetime

// IndexConfig names the position of each tensor slot, one letter per slot:
// 'u' for contravariant (upper) and 'd' for covariant (lower).
type IndexConfig string

const (
	Scalar IndexConfig = ""
	U      IndexConfig = "u"
	DD     IndexConfig = "dd"
	UU     IndexConfig = "uu"
	UD     IndexConfig = "ud"
	DU     IndexConfig = "du"
	UDD    IndexConfig = "udd"
	DDD    IndexConfig = "ddd"
	UDDD   IndexConfig = "uddd"
	DDDD   IndexConfig = "dddd"
	DDUU   IndexConfig = "dduu"
)

// Rank is the number of slots.
func (c IndexConfig) Rank() int { return len(c) }

func (c IndexConfig) String() string {
	if c == Scalar {
		return "scalar"
	}
	return string(c)
}

// ParseIndexConfig accepts "scalar" as a spelling of the rank-0 configuration.
func ParseIndexConfig(s string) IndexConfig {
	if s == "scalar" {
		return Scalar
	}
	return IndexConfig(s)
}

package compliant

// GroupBy aggregates a frame F per distinct combination of key columns
type GroupBy[F any, E any] interface {
	Keys() []string
	Agg(exprs ...E) (F, error)
}

// simpleAggregations are the leaf functions a backend can map directly onto
// a native grouped reduction.
var simpleAggregations = map[string]bool{
	"sum":   true,
	"mean":  true,
	"min":   true,
	"max":   true,
	"count": true,
}

// IsSimpleAggregation reports whether e is a bare len() or a single supported
// aggregation applied directly to column references, so a backend can take
// its fast grouped path instead of evaluating e once per group.
func IsSimpleAggregation(e DepthTracked) bool {
	if e.Depth() == 0 {
		return e.FunctionName() == "len"
	}
	if e.Depth() != 1 {
		return false
	}
	switch RootName(e.FunctionName()) {
	case "col", "all", "exclude", "nth":
	default:
		return false
	}
	return simpleAggregations[LeafName(e.FunctionName())]
}

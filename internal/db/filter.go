package db

// Condition restricts a query either to an exact TAG value or to a NUMERIC range.
// A nil bound is open.
type Condition struct {
	Field string
	Tag   string
	Min   *float64
	Max   *float64
}

// IsTag reports whether the condition is a TAG match.
func (c Condition) IsTag() bool {
	return c.Min == nil && c.Max == nil
}

// Filter is a conjunction of conditions. An empty filter matches everything.
type Filter []Condition

// TagEquals matches documents whose TAG field equals value.
func TagEquals(field, value string) Condition {
	return Condition{Field: field, Tag: value}
}

// NumericAtLeast matches documents whose NUMERIC field is >= v.
func NumericAtLeast(field string, v float64) Condition {
	return Condition{Field: field, Min: &v}
}

// NumericBetween matches documents whose NUMERIC field is within [lo, hi].
func NumericBetween(field string, lo, hi float64) Condition {
	return Condition{Field: field, Min: &lo, Max: &hi}
}

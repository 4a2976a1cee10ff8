package shared

import "fmt"

// ParamSet represents one moving average parameter combination. Identity is
// value identity: two parameter sets are the same iff both fields match, so a
// ParamSet can key maps directly.
type ParamSet struct {
	// Fast is the fast moving average window in bars.
	Fast int
	// Slow is the slow moving average window in bars.
	Slow int
}

// Valid asserts the parameter set satisfies the strategy validity predicate.
func (p ParamSet) Valid() bool {
	return p.Fast >= 1 && p.Slow > p.Fast
}

// String returns a human readable representation of the parameter set.
func (p ParamSet) String() string {
	return fmt.Sprintf("fast=%d slow=%d", p.Fast, p.Slow)
}

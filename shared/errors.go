package shared

import "fmt"

// SimulationError represents a recovered strategy simulation failure. It is
// absorbed at the fold level and converted into an empty fold result, never
// propagated through aggregation or selection.
type SimulationError struct {
	// Ticker is the simulated ticker symbol.
	Ticker string
	// Params is the simulated parameter set.
	Params ParamSet
	// Cause is the recovered failure cause.
	Cause any
}

// Error satisfies the error interface.
func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s: simulation failed for %s: %v", e.Ticker, e.Params.String(), e.Cause)
}

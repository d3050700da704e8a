package contracts

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the module. Wrap them with fmt.Errorf
// and %w so callers can match with errors.Is.
var (
	// ErrInvalidInput rejects a request before any work starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoStrategiesResolved aborts a run when not a single requested
	// strategy could be resolved.
	ErrNoStrategiesResolved = errors.New("no strategies resolved")

	// ErrNotFound reports a missing strategy, run, or watchlist.
	ErrNotFound = errors.New("not found")
)

// ContractViolation rejects a strategy definition that does not satisfy
// the strategy contract. The candidate never enters the registry.
type ContractViolation struct {
	Candidate string // 파일명 또는 script_id
	Reason    string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("strategy contract violation: %s: %s", e.Candidate, e.Reason)
}

// AsContractViolation unwraps err into a ContractViolation if one is in
// the chain.
func AsContractViolation(err error) (*ContractViolation, bool) {
	var cv *ContractViolation
	if errors.As(err, &cv) {
		return cv, true
	}
	return nil, false
}

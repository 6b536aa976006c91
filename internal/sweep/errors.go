package sweep

import (
	"fmt"

	"github.com/flarebyte/deopt-sweep/internal/hook"
)

// PreconditionError aborts a campaign before any job runs.
type PreconditionError struct {
	Reason string
	Path   string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// HookError is the terminal condition of a flat-repeat campaign whose
// post-processing script failed. Job outputs are left in place.
type HookError struct {
	Outcome hook.Outcome
}

func (e *HookError) Error() string {
	return "post-campaign script failed: " + e.Outcome.Describe()
}

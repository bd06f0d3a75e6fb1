package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/fpang/genprompt/internal/session"
)

// ErrMissingInput reports a step precondition that cannot be recovered from.
// Only Analyze returns it; every other step degrades instead.
var ErrMissingInput = errors.New("missing required input")

// Outcome classifies how a step finished.
type Outcome int

const (
	// Succeeded means the step's model call worked and its output was written.
	Succeeded Outcome = iota
	// Degraded means the model call or template failed and the step fell
	// back (sentinel analysis, or previous output left in place).
	Degraded
	// Skipped means a soft precondition was not met and the step did no work.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Degraded:
		return "degraded"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is what a step hands back to the graph. Cause is set for Degraded
// and Skipped results and is informational only.
type Result struct {
	State   session.State
	Outcome Outcome
	Cause   error
}

func succeeded(st session.State) Result { return Result{State: st, Outcome: Succeeded} }

func degraded(st session.State, cause error) Result {
	return Result{State: st, Outcome: Degraded, Cause: cause}
}

func skipped(st session.State, cause error) Result {
	return Result{State: st, Outcome: Skipped, Cause: cause}
}

// StepFunc is one unit of work in the graph. A non-nil error is fatal and
// aborts the traversal; recoverable problems are reported through Result.
type StepFunc func(ctx context.Context, st session.State) (Result, error)

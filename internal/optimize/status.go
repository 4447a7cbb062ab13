package optimize

import "errors"

// Status is the outcome of one optimize call.
type Status string

const (
	StatusOptimal     Status = "optimal"
	StatusInfeasible  Status = "infeasible"
	StatusSolverError Status = "solver_error"
)

var (
	// ErrInfeasible reports that no dispatch satisfies the constraints.
	ErrInfeasible = errors.New("problem is infeasible")
	// ErrSolver wraps environment and numeric failures of a solver.
	ErrSolver = errors.New("solver error")
	// ErrUnknownSolver is returned when no solver is registered under a name.
	ErrUnknownSolver = errors.New("unknown solver")
)

// StatusFromError maps a solve error to its outcome status.
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOptimal
	case errors.Is(err, ErrInfeasible):
		return StatusInfeasible
	default:
		return StatusSolverError
	}
}

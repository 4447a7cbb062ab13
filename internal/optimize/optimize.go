// Package optimize formulates the economic dispatch of a network as a linear
// program and solves it with a registered backend.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"hydrogen-bypass/internal/metrics"
	"hydrogen-bypass/internal/model"
)

// ErrAlreadySolved is returned when a network already carries results.
var ErrAlreadySolved = errors.New("network already solved")

// Optimize freezes n, solves its dispatch with the named solver and attaches
// the results. The network is left without results unless the status is optimal.
// The returned error carries details for non-optimal statuses.
func Optimize(ctx context.Context, n *model.Network, solverName string) (Status, error) {
	start := time.Now()
	status, err := optimize(ctx, n, solverName)
	metrics.ObserveOptimize(solverLabel(solverName), string(status), time.Since(start))
	if err != nil {
		log.Printf("[Optimize] %s with %s: %s: %v", networkName(n), solverName, status, err)
		return status, err
	}
	r, _ := n.Results()
	metrics.Objective.WithLabelValues(n.Name).Set(r.Objective)
	log.Printf("[Optimize] %s with %s: optimal, objective=%.2f EUR in %s",
		n.Name, solverName, r.Objective, time.Since(start).Round(time.Millisecond))
	return status, nil
}

func optimize(ctx context.Context, n *model.Network, solverName string) (Status, error) {
	if n == nil {
		return StatusSolverError, fmt.Errorf("%w: network is nil", ErrSolver)
	}
	solver, err := Lookup(solverName)
	if err != nil {
		return StatusSolverError, fmt.Errorf("%w: %v", ErrSolver, err)
	}
	if _, ok := n.Results(); ok {
		return StatusSolverError, fmt.Errorf("%w: %q", ErrAlreadySolved, n.Name)
	}
	n.Freeze()

	p, err := Formulate(n)
	if err != nil {
		return StatusFromError(err), err
	}
	rows, cols := p.Dims()
	metrics.ProblemSize.WithLabelValues(n.Name, "rows").Set(float64(rows))
	metrics.ProblemSize.WithLabelValues(n.Name, "cols").Set(float64(cols))

	sol, err := solver.Solve(ctx, p)
	if err != nil {
		return StatusFromError(err), err
	}
	res, err := p.Results(sol.X)
	if err != nil {
		return StatusSolverError, err
	}
	if err := n.SetResults(res); err != nil {
		return StatusSolverError, fmt.Errorf("%w: %v", ErrSolver, err)
	}
	return StatusOptimal, nil
}

// solverLabel keeps metric labels to registered solver names.
func solverLabel(name string) string {
	s, err := Lookup(name)
	if err != nil {
		return "unknown"
	}
	return s.Name()
}

func networkName(n *model.Network) string {
	if n == nil {
		return "<nil>"
	}
	return strconv.Quote(n.Name)
}

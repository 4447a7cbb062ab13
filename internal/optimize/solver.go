package optimize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Solution is a primal solution of a Problem.
type Solution struct {
	X         []float64
	Objective float64
	// Iterations is reported by solvers that expose it; zero otherwise.
	Iterations int
}

// Solver solves a standard-form Problem. Implementations return an error
// wrapping ErrInfeasible when no feasible point exists.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p *Problem) (Solution, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Solver{}
)

func init() {
	simplex := NewSimplexSolver()
	Register("simplex", simplex)
	Register("gonum", simplex)
	Register("glpk", NewGLPKSolver(""))
}

// Register makes a solver available under name, replacing any previous entry.
func Register(name string, s Solver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = s
}

// Lookup returns the solver registered under name (case-insensitive).
func Lookup(name string) (Solver, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownSolver, name, strings.Join(namesLocked(), ", "))
	}
	return s, nil
}

// Names lists registered solver names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

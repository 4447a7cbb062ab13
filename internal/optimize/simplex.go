package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultSimplexMaxRows caps the dense problems the in-process solver takes on.
const DefaultSimplexMaxRows = 1200

// SimplexSolver solves in-process with gonum's dense simplex. The search
// starts from the bound slacks plus one penalized artificial column per
// equality row, so gonum never searches for a starting basis itself.
type SimplexSolver struct {
	// Tol is the reduced-cost optimality tolerance.
	Tol float64
	// MaxRows rejects larger problems when > 0.
	MaxRows int
}

func NewSimplexSolver() *SimplexSolver {
	return &SimplexSolver{Tol: 1e-9, MaxRows: DefaultSimplexMaxRows}
}

func (s *SimplexSolver) Name() string { return "simplex" }

func (s *SimplexSolver) Solve(ctx context.Context, p *Problem) (sol Solution, err error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, fmt.Errorf("%w: %v", ErrSolver, err)
	}
	m, n := p.Dims()
	if s.MaxRows > 0 && m > s.MaxRows {
		return Solution{}, fmt.Errorf("%w: %d constraints exceed the simplex limit of %d, use glpk", ErrSolver, m, s.MaxRows)
	}
	// lp.Simplex panics on malformed input rather than returning an error.
	defer func() {
		if r := recover(); r != nil {
			sol = Solution{}
			err = fmt.Errorf("%w: simplex: %v", ErrSolver, r)
		}
	}()

	ext := withArtificials(p)
	_, x, err := lp.Simplex(ext.c, ext.a, ext.b, s.Tol, ext.basis)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return Solution{}, fmt.Errorf("%w: %v", ErrInfeasible, err)
	case err != nil:
		return Solution{}, fmt.Errorf("%w: %v", ErrSolver, err)
	}
	if err := ctx.Err(); err != nil {
		return Solution{}, fmt.Errorf("%w: %v", ErrSolver, err)
	}

	var residual float64
	for _, j := range ext.artificial {
		residual += x[j]
	}
	if !scalar.EqualWithinAbs(residual, 0, 1e-7*math.Max(1, floats.Norm(ext.b, math.Inf(1)))) {
		return Solution{}, fmt.Errorf("%w: constraints violated by %g in the cheapest dispatch", ErrInfeasible, residual)
	}
	x = x[:n]
	return Solution{X: x, Objective: floats.Dot(p.C, x)}, nil
}

type extended struct {
	c, b       []float64
	a          *mat.Dense
	basis      []int
	artificial []int
}

// withArtificials signs every row so that b >= 0 and gives each row without
// a usable slack an artificial column priced at penalty(p). Slacks and
// artificials together form an identity starting basis.
func withArtificials(p *Problem) extended {
	m, n := p.Dims()
	slack := func(i int) int {
		if len(p.Slack) != m || p.B[i] < 0 {
			return -1
		}
		return p.Slack[i]
	}
	var need []int
	for i := 0; i < m; i++ {
		if slack(i) < 0 {
			need = append(need, i)
		}
	}

	ext := extended{
		c:     make([]float64, n+len(need)),
		b:     make([]float64, m),
		a:     mat.NewDense(m, n+len(need), nil),
		basis: make([]int, m),
	}
	ext.a.Copy(p.A)
	copy(ext.c, p.C)
	copy(ext.b, p.B)
	for i := range ext.b {
		if ext.b[i] < 0 {
			ext.b[i] = -ext.b[i]
			floats.Scale(-1, ext.a.RawRowView(i))
		}
		ext.basis[i] = slack(i)
	}

	cost := penalty(p)
	for k, i := range need {
		j := n + k
		ext.a.Set(i, j, 1)
		ext.c[j] = cost
		ext.basis[i] = j
		ext.artificial = append(ext.artificial, j)
	}
	return ext
}

// penalty prices one unit of constraint violation above any marginal value a
// row can reach: the dearest cost scaled up by the losses of every link.
func penalty(p *Problem) float64 {
	dear := 1.0
	for _, v := range p.C {
		dear = math.Max(dear, math.Abs(v))
	}
	for _, l := range p.links {
		if l.Efficiency > 0 {
			dear /= l.Efficiency
		}
	}
	return 1e3 * dear
}

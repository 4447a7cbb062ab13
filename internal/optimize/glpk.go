package optimize

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// GLPKSolver runs the glpsol command-line solver on a free-MPS export of the problem.
type GLPKSolver struct {
	// Path is the glpsol executable; looked up on PATH when it has no separator.
	Path string
}

func NewGLPKSolver(path string) *GLPKSolver {
	if path == "" {
		path = "glpsol"
	}
	return &GLPKSolver{Path: path}
}

func (s *GLPKSolver) Name() string { return "glpk" }

// Available reports whether the glpsol binary can be found.
func (s *GLPKSolver) Available() bool {
	_, err := exec.LookPath(s.Path)
	return err == nil
}

func (s *GLPKSolver) Solve(ctx context.Context, p *Problem) (Solution, error) {
	bin, err := exec.LookPath(s.Path)
	if err != nil {
		return Solution{}, fmt.Errorf("%w: glpk: %v", ErrSolver, err)
	}
	dir, err := os.MkdirTemp("", "glpk-*")
	if err != nil {
		return Solution{}, fmt.Errorf("%w: glpk: %v", ErrSolver, err)
	}
	defer os.RemoveAll(dir)

	mpsPath := filepath.Join(dir, "problem.mps")
	solPath := filepath.Join(dir, "solution.txt")
	f, err := os.Create(mpsPath)
	if err != nil {
		return Solution{}, fmt.Errorf("%w: glpk: %v", ErrSolver, err)
	}
	if err := WriteMPS(f, p); err != nil {
		f.Close()
		return Solution{}, fmt.Errorf("%w: glpk: write mps: %v", ErrSolver, err)
	}
	if err := f.Close(); err != nil {
		return Solution{}, fmt.Errorf("%w: glpk: %v", ErrSolver, err)
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "--freemps", mpsPath, "--min", "-w", solPath)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		log.Printf("[GLPK] glpsol failed: %s", strings.TrimSpace(out.String()))
		return Solution{}, fmt.Errorf("%w: glpk: %v", ErrSolver, err)
	}

	sf, err := os.Open(solPath)
	if err != nil {
		return Solution{}, fmt.Errorf("%w: glpk: no solution file: %v", ErrSolver, err)
	}
	defer sf.Close()
	sol, err := ParseGLPKSolution(sf, len(p.C))
	if err != nil {
		return Solution{}, err
	}
	var obj float64
	for j, c := range p.C {
		obj += c * sol.X[j]
	}
	sol.Objective = obj
	return sol, nil
}

// WriteMPS writes p in free MPS format. Rows are named r1..rm and columns
// c1..cn so that solver output maps back by position.
func WriteMPS(w io.Writer, p *Problem) error {
	bw := bufio.NewWriter(w)
	m, n := p.Dims()

	fmt.Fprintln(bw, "NAME dispatch")
	fmt.Fprintln(bw, "ROWS")
	fmt.Fprintln(bw, " N obj")
	for i := 0; i < m; i++ {
		fmt.Fprintf(bw, " E r%d\n", i+1)
	}
	fmt.Fprintln(bw, "COLUMNS")
	for j := 0; j < n; j++ {
		col := fmt.Sprintf("c%d", j+1)
		wrote := false
		if p.C[j] != 0 {
			fmt.Fprintf(bw, " %s obj %s\n", col, mpsFloat(p.C[j]))
			wrote = true
		}
		for i := 0; i < m; i++ {
			if v := p.A.At(i, j); v != 0 {
				fmt.Fprintf(bw, " %s r%d %s\n", col, i+1, mpsFloat(v))
				wrote = true
			}
		}
		if !wrote {
			// Keep empty columns so numbering stays positional.
			fmt.Fprintf(bw, " %s obj 0\n", col)
		}
	}
	fmt.Fprintln(bw, "RHS")
	for i, b := range p.B {
		if b != 0 {
			fmt.Fprintf(bw, " RHS r%d %s\n", i+1, mpsFloat(b))
		}
	}
	fmt.Fprintln(bw, "ENDATA")
	return bw.Flush()
}

func mpsFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}

// ParseGLPKSolution reads a glpsol -w basic solution for a problem with n columns.
func ParseGLPKSolution(r io.Reader, n int) (Solution, error) {
	sol := Solution{X: make([]float64, n)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var sawStatus bool
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "s":
			// s bas <rows> <cols> <primal status> <dual status> <objective>
			if len(fields) < 7 {
				return Solution{}, fmt.Errorf("%w: glpk: malformed status line %q", ErrSolver, sc.Text())
			}
			sawStatus = true
			switch pst, dst := fields[4], fields[5]; {
			case pst == "n" || pst == "i":
				return Solution{}, fmt.Errorf("%w: glpk reports primal status %q", ErrInfeasible, pst)
			case pst != "f" || dst != "f":
				return Solution{}, fmt.Errorf("%w: glpk: solution not optimal (primal %q, dual %q)", ErrSolver, pst, dst)
			}
			obj, err := strconv.ParseFloat(fields[6], 64)
			if err != nil {
				return Solution{}, fmt.Errorf("%w: glpk: objective %q: %v", ErrSolver, fields[6], err)
			}
			sol.Objective = obj
		case "j":
			// j <col> <status> <primal> <dual>
			if len(fields) < 4 {
				return Solution{}, fmt.Errorf("%w: glpk: malformed column line %q", ErrSolver, sc.Text())
			}
			j, err := strconv.Atoi(fields[1])
			if err != nil || j < 1 || j > n {
				return Solution{}, fmt.Errorf("%w: glpk: column index %q out of range", ErrSolver, fields[1])
			}
			v, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return Solution{}, fmt.Errorf("%w: glpk: column %d value %q: %v", ErrSolver, j, fields[3], err)
			}
			sol.X[j-1] = v
		}
	}
	if err := sc.Err(); err != nil {
		return Solution{}, fmt.Errorf("%w: glpk: %v", ErrSolver, err)
	}
	if !sawStatus {
		return Solution{}, fmt.Errorf("%w: glpk: %v", ErrSolver, errors.New("solution file has no status line"))
	}
	return sol, nil
}

package handlers

import (
	"net/http"

	"hydrogen-bypass/internal/api/models"
	"hydrogen-bypass/internal/optimize"

	"github.com/gin-gonic/gin"
)

// ListSolvers handles GET /api/v1/solvers
func ListSolvers(c *gin.Context) {
	names := optimize.Names()
	solvers := make([]models.SolverInfo, 0, len(names))
	for _, name := range names {
		s, err := optimize.Lookup(name)
		if err != nil {
			continue
		}
		available := true
		if a, ok := s.(interface{ Available() bool }); ok {
			available = a.Available()
		}
		solvers = append(solvers, models.SolverInfo{Name: name, Available: available})
	}
	c.JSON(http.StatusOK, gin.H{"solvers": solvers})
}

package handlers

import (
	"errors"
	"net/http"

	"hydrogen-bypass/internal/api/models"
	"hydrogen-bypass/internal/optimize"
	"hydrogen-bypass/internal/simulate"

	"github.com/gin-gonic/gin"
)

// requestError is a client-side problem detected before a run starts
type requestError struct {
	status  int
	code    string
	err     error
	details map[string]interface{}
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func invalidRequest(err error) *requestError {
	return &requestError{status: http.StatusBadRequest, code: "INVALID_REQUEST", err: err}
}

func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondRunError maps a run failure to its HTTP status and error code
func respondRunError(c *gin.Context, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		respondError(c, reqErr.status, reqErr.code, reqErr.Error(), reqErr.details)
		return
	}
	status, code := classifyRunError(err)
	respondError(c, status, code, err.Error(), map[string]interface{}{
		"status": string(optimize.StatusFromError(err)),
	})
}

func classifyRunError(err error) (int, string) {
	switch {
	case errors.Is(err, simulate.ErrDataLoad):
		return http.StatusBadRequest, "DATA_LOAD_ERROR"
	case errors.Is(err, simulate.ErrBuild):
		return http.StatusBadRequest, "INVALID_CONFIG"
	case errors.Is(err, optimize.ErrInfeasible):
		return http.StatusUnprocessableEntity, "INFEASIBLE"
	case errors.Is(err, optimize.ErrImbalance):
		return http.StatusInternalServerError, "VERIFICATION_FAILED"
	case errors.Is(err, optimize.ErrSolver):
		return http.StatusInternalServerError, "SOLVER_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

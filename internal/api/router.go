// Package api wires the HTTP handlers into a gin router.
package api

import (
	"net/http"
	"strings"

	"hydrogen-bypass/internal/api/handlers"
	"hydrogen-bypass/internal/api/middleware"
	"hydrogen-bypass/internal/api/models"
	"hydrogen-bypass/internal/data"
	"hydrogen-bypass/internal/export"
	"hydrogen-bypass/internal/metrics"
	"hydrogen-bypass/internal/simulate"

	"github.com/gin-gonic/gin"
)

// Options configure the router.
type Options struct {
	DataDir   string
	PresetDir string
	Runs      *data.Cache[*simulate.Result]
	Engine    *simulate.Engine
	Sinks     []export.Sink
	// CORSOrigins overrides CORS_ORIGINS when non-empty.
	CORSOrigins []string
}

func NewRouter(opts Options) *gin.Engine {
	router := gin.New()

	if len(opts.CORSOrigins) > 0 {
		router.Use(middleware.CORSWithOrigins(opts.CORSOrigins))
	} else {
		router.Use(middleware.CORS())
	}
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	presetHandler := handlers.NewPresetHandler(opts.PresetDir)
	scenarioHandler := handlers.NewScenarioHandler(opts.Engine, opts.Runs, opts.DataDir, presetHandler.Dir(), opts.Sinks)
	datasetHandler := handlers.NewDatasetHandler(opts.DataDir)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/scenarios/run", scenarioHandler.RunScenario)
		v1.POST("/scenarios/compare", scenarioHandler.CompareScenarios)
		v1.GET("/scenarios/runs/:id", scenarioHandler.GetRun)
		v1.GET("/scenarios/runs/:id/ledger", scenarioHandler.GetLedger)

		v1.GET("/presets", presetHandler.ListPresets)
		v1.GET("/solvers", handlers.ListSolvers)
		v1.GET("/datasets", datasetHandler.ListDatasets)
	}

	router.NoRoute(func(c *gin.Context) {
		message := "Not found"
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			message = "Unknown API route " + c.Request.URL.Path
		}
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: message},
		})
	})

	return router
}

package handlers

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"hydrogen-bypass/internal/api/models"
	"hydrogen-bypass/internal/config"

	"github.com/gin-gonic/gin"
)

// PresetHandler lists bypass presets from a directory of YAML files
type PresetHandler struct {
	presetDir string
}

// NewPresetHandler creates a new preset handler. An empty dir falls back to
// PRESET_DIR, then to ./examples/bypass.
func NewPresetHandler(dir string) *PresetHandler {
	if dir == "" {
		dir = os.Getenv("PRESET_DIR")
	}
	if dir == "" {
		dir = filepath.Join("examples", "bypass")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	log.Printf("[API] Using preset directory: %s", dir)
	return &PresetHandler{presetDir: dir}
}

// Dir returns the preset directory path
func (h *PresetHandler) Dir() string {
	return h.presetDir
}

// ListPresets handles GET /api/v1/presets
func (h *PresetHandler) ListPresets(c *gin.Context) {
	presets := []models.PresetInfo{}

	loaded, err := config.ListBypassPresets(h.presetDir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[API] Preset directory does not exist: %s", h.presetDir)
			c.JSON(http.StatusOK, gin.H{"presets": presets})
			return
		}
		respondError(c, http.StatusInternalServerError, "PRESET_LOAD_ERROR", err.Error(), nil)
		return
	}

	for _, p := range loaded {
		presets = append(presets, models.PresetInfo{
			ID:   strings.TrimSuffix(p.File, filepath.Ext(p.File)),
			Name: p.Name,
			File: p.File,
			Specs: models.PresetSpecs{
				StoreENom:              p.Bypass.StoreENom,
				ElectrolyzerPNom:       p.Bypass.ElectrolyzerPNom,
				ElectrolyzerEfficiency: p.Bypass.ElectrolyzerEfficiency,
				FuelCellPNom:           p.Bypass.FuelCellPNom,
				FuelCellEfficiency:     p.Bypass.FuelCellEfficiency,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

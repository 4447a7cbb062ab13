package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Preset is a bypass YAML file found in a preset directory.
type Preset struct {
	Name   string
	File   string
	Bypass BypassConfig
}

// ListBypassPresets loads every *.yaml / *.yml file in dir, sorted by name.
// The preset name is the file's bypass.name, or the file stem when unset.
func ListBypassPresets(dir string) ([]Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Preset
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		b, err := LoadBypassFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		name := b.Name
		if name == "" {
			name = strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		}
		out = append(out, Preset{Name: name, File: e.Name(), Bypass: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindPreset returns the preset with the given name or file stem.
func FindPreset(dir, name string) (Preset, bool, error) {
	presets, err := ListBypassPresets(dir)
	if err != nil {
		return Preset{}, false, err
	}
	for _, p := range presets {
		if p.Name == name || strings.TrimSuffix(p.File, filepath.Ext(p.File)) == name {
			return p, true, nil
		}
	}
	return Preset{}, false, nil
}

// Package scales holds the daily-rotating tone scale assigned to the nine
// grid slots. The actual audio synthesis happens client-side; the server only
// publishes the frequencies for the current game day.
package scales

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed scales.yaml
var defaultFiles embed.FS

// Slots is the number of addressable positions in the game grid.
const Slots = 9

type scaleFile struct {
	Base     []float64 `yaml:"base"`
	Rotation int       `yaml:"rotation"`
}

// Catalog resolves the tone frequencies for a given day of year.
type Catalog struct {
	base     []float64
	rotation int
}

// New loads the embedded default scale and, if overridePath is non-empty,
// replaces it with the scale from that YAML file.
func New(overridePath string) (*Catalog, error) {
	raw, err := fs.ReadFile(defaultFiles, "scales.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded scale: %w", err)
	}
	if strings.TrimSpace(overridePath) != "" {
		raw, err = os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read scale override: %w", err)
		}
	}

	var sf scaleFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse scale: %w", err)
	}
	if len(sf.Base) != Slots {
		return nil, fmt.Errorf("scale must define %d frequencies, got %d", Slots, len(sf.Base))
	}
	if sf.Rotation <= 0 {
		sf.Rotation = 1
	}
	return &Catalog{base: sf.Base, rotation: sf.Rotation}, nil
}

// ForDay returns the per-slot frequencies for the given day of year,
// rotating the base scale by dayOfYear modulo the rotation period.
func (c *Catalog) ForDay(dayOfYear int) []float64 {
	if dayOfYear < 0 {
		dayOfYear = 0
	}
	shift := dayOfYear % c.rotation
	out := make([]float64, 0, Slots)
	out = append(out, c.base[shift:]...)
	out = append(out, c.base[:shift]...)
	return out[:Slots]
}

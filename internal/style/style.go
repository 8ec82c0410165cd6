// Package style keeps the per-drawing display style file: one entry per
// layer, created with defaults the first time a drawing is read and edited
// by hand afterwards.
package style

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Style is the display style of one layer.
type Style struct {
	Color     string  `json:"color" validate:"required,hexcolor"`
	Fill      string  `json:"fill" validate:"omitempty,hexcolor"`
	Opacity   float64 `json:"opacity" validate:"gte=0,lte=1"`
	LineWidth float64 `json:"lineWidth" validate:"gte=0"`
	Visible   bool    `json:"visible"`
}

// Sheet maps layer names to their style.
type Sheet map[string]Style

// Default is the style every layer starts with.
func Default() Style {
	return Style{
		Color:     "#333333",
		Fill:      "#cccccc",
		Opacity:   1,
		LineWidth: 1,
		Visible:   true,
	}
}

var validate = validator.New()

// PathFor returns where the style file of drawingPath lives in dir: the
// drawing's base name with its extension replaced by ".json".
func PathFor(dir, drawingPath string) string {
	base := filepath.Base(drawingPath)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return filepath.Join(dir, base+".json")
}

// EnsureFile creates the style file for drawingPath with a default entry per
// layer. An existing file is left untouched and created is false.
func EnsureFile(dir, drawingPath string, layers []string) (path string, created bool, err error) {
	path = PathFor(dir, drawingPath)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !os.IsNotExist(err) {
		return path, false, fmt.Errorf("failed to stat style file: %w", err)
	}

	sheet := make(Sheet, len(layers))
	for _, l := range layers {
		sheet[l] = Default()
	}
	data, err := json.MarshalIndent(sheet, "", "  ")
	if err != nil {
		return path, false, fmt.Errorf("failed to encode style file: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, false, fmt.Errorf("failed to create style directory: %w", err)
	}
	if err := writeFile(path, data, 0o644); err != nil {
		return path, false, err
	}
	return path, true, nil
}

// Load reads and validates a style file.
func Load(path string) (Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style file: %w", err)
	}
	var sheet Sheet
	if err := json.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("failed to decode style file %s: %w", path, err)
	}
	for layer, s := range sheet {
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("invalid style for layer %q: %w", layer, err)
		}
	}
	return sheet, nil
}

// writeFile replaces path through a temporary file in the same directory so
// readers never see a partial sheet.
func writeFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	_ = tmp.Chmod(perm)
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true
	return nil
}

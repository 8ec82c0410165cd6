// Package drawing turns a CAD drawing export into a scene: it decodes and
// validates the export, converts raw shapes to geometries and reconstructs
// the object hierarchy from the group memberships.
package drawing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stwalsh4118/artscene/internal/annotation"
	"github.com/stwalsh4118/artscene/internal/logger"
	"github.com/stwalsh4118/artscene/internal/models"
	"github.com/stwalsh4118/artscene/internal/scene"
)

// ErrInvalidDrawing is returned for exports that cannot be decoded or whose
// tables are inconsistent.
var ErrInvalidDrawing = errors.New("invalid drawing")

// DefaultReadableKinds are the raw object kinds turned into elements when no
// other set is configured.
var DefaultReadableKinds = []string{models.ObjectKindCurve}

var validate = validator.New()

// Decode reads and validates a drawing export.
func Decode(r io.Reader) (*models.Drawing, error) {
	var doc models.Drawing
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDrawing, err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDrawing, err)
	}
	return &doc, nil
}

// Open decodes the drawing export stored at path.
func Open(path string) (*models.Drawing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open drawing: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Options control which raw objects become elements.
type Options struct {
	ReadableKinds []string
	Log           *logger.Logger
}

// Result is an assembled drawing.
type Result struct {
	Name     string
	Tree     *scene.Tree
	Elements []*scene.Element
	// Layers lists the layers of the converted elements by layer index.
	Layers []string
	// Skipped counts readable objects whose shape could not be converted.
	Skipped int
}

// Assemble converts every readable object of doc into an element, creates
// one object per group and builds the tree. Text dots attached to a group
// annotate that group's object with its floor count and height.
func Assemble(doc *models.Drawing, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	kinds := opts.ReadableKinds
	if len(kinds) == 0 {
		kinds = DefaultReadableKinds
	}
	readable := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		readable[k] = true
	}

	layers, err := layerTable(doc.Layers)
	if err != nil {
		return nil, err
	}
	objects, err := groupObjects(doc.Groups)
	if err != nil {
		return nil, err
	}

	res := &Result{Name: doc.Name}
	texts := make(map[int]string)
	for i := range doc.Objects {
		raw := &doc.Objects[i]
		layer, ok := layers[raw.Layer]
		if !ok {
			return nil, fmt.Errorf("%w: object %d references unknown layer %d", ErrInvalidDrawing, i, raw.Layer)
		}
		if raw.Kind == models.ObjectKindTextDot && len(raw.Groups) > 0 {
			texts[raw.Groups[0]] = raw.Text
		}
		if !readable[raw.Kind] {
			continue
		}
		geom, err := Convert(raw)
		if err != nil {
			log.Warn("skipping object with unconvertible geometry", logger.Fields{
				"object": raw.ID,
				"kind":   raw.Kind,
				"error":  err.Error(),
			})
			res.Skipped++
			continue
		}
		res.Elements = append(res.Elements, newElement(raw, layer, geom))
	}

	res.Layers = usedLayers(doc.Layers, res.Elements)
	annotate(objects, annotation.Parse(texts))

	tree, err := scene.Build(res.Elements, objects)
	if err != nil {
		return nil, err
	}
	res.Tree = tree

	log.Info("drawing assembled", logger.Fields{
		"drawing":  doc.Name,
		"objects":  tree.Len(),
		"elements": len(res.Elements),
		"skipped":  res.Skipped,
	})
	return res, nil
}

// Convert turns a raw shape into a geometry. Straight curves become a line
// between their end points, closed curves polygons and the rest polylines.
// Text dots are placed at the centre of their bounding box.
func Convert(raw *models.RawObject) (models.Geometry, error) {
	pts := raw.Points
	if len(pts) == 0 {
		return models.None(), fmt.Errorf("%w: no points", models.ErrInvalidGeometry)
	}
	switch raw.Kind {
	case models.ObjectKindPoint:
		return models.NewPoint(pts[0][0], pts[0][1])
	case models.ObjectKindTextDot:
		x, y := centre(pts)
		return models.NewPoint(x, y)
	case models.ObjectKindCurve:
		switch {
		case raw.Linear || len(pts) == 2:
			return models.NewLineString([][2]float64{pts[0], pts[len(pts)-1]})
		case raw.Closed:
			return models.NewPolygon(pts)
		default:
			return models.NewLineString(pts)
		}
	}
	return models.None(), fmt.Errorf("%w: unsupported kind %q", models.ErrInvalidGeometry, raw.Kind)
}

func newElement(raw *models.RawObject, layer string, geom models.Geometry) *scene.Element {
	if id, err := uuid.Parse(raw.ID); err == nil {
		return scene.NewElementWithID(id, layer, raw.Groups, geom)
	}
	return scene.NewElement(layer, raw.Groups, geom)
}

func layerTable(layers []models.Layer) (map[int]string, error) {
	table := make(map[int]string, len(layers))
	for _, l := range layers {
		if _, dup := table[l.Index]; dup {
			return nil, fmt.Errorf("%w: duplicate layer index %d", ErrInvalidDrawing, l.Index)
		}
		table[l.Index] = l.Name
	}
	return table, nil
}

func usedLayers(layers []models.Layer, elems []*scene.Element) []string {
	used := make(map[string]bool, len(layers))
	for _, e := range elems {
		used[e.Type()] = true
	}
	sorted := append([]models.Layer(nil), layers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	names := make([]string, 0, len(used))
	for _, l := range sorted {
		if used[l.Name] {
			names = append(names, l.Name)
			used[l.Name] = false
		}
	}
	return names
}

func groupObjects(groups []models.Group) (map[int]*scene.Object, error) {
	objects := make(map[int]*scene.Object, len(groups))
	for _, g := range groups {
		if _, dup := objects[g.Index]; dup {
			return nil, fmt.Errorf("%w: duplicate group index %d", ErrInvalidDrawing, g.Index)
		}
		objects[g.Index] = scene.NewObject(g.Index, g.Name)
	}
	return objects, nil
}

func annotate(objects map[int]*scene.Object, attrs annotation.Attributes) {
	for idx, obj := range objects {
		if text, ok := attrs.Text[idx]; ok {
			obj.Annotations = &text
		}
		if f, ok := attrs.Floors[idx]; ok {
			obj.Floor = &f
		}
		if h, ok := attrs.Heights[idx]; ok {
			obj.Height = &h
		}
	}
}

func centre(pts [][2]float64) (float64, float64) {
	minX, minY := pts[0][0], pts[0][1]
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = min(minX, p[0]), max(maxX, p[0])
		minY, maxY = min(minY, p[1]), max(maxY, p[1])
	}
	return (minX + maxX) / 2, (minY + maxY) / 2
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned when coordinates cannot form the requested shape.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Kind identifies which shape a Geometry holds.
type Kind int

const (
	KindNone Kind = iota
	KindPoint
	KindLineString
	KindPolygon
)

// String returns the GeoJSON type name for the kind.
func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindLineString:
		return "LineString"
	case KindPolygon:
		return "Polygon"
	default:
		return "None"
	}
}

// Geometry is a closed variant over {None, Point, LineString, Polygon}.
// The kind is decided once at construction; the core stores it opaquely.
// Coordinates are planar drawing units, not WGS84.
type Geometry struct {
	kind  Kind
	line  [][2]float64   // Point (len 1) and LineString
	rings [][][2]float64 // Polygon, exterior ring first, each ring closed
}

// None returns the empty geometry.
func None() Geometry {
	return Geometry{}
}

// NewPoint creates a Point geometry.
func NewPoint(x, y float64) (Geometry, error) {
	if !finite(x, y) {
		return Geometry{}, fmt.Errorf("%w: point (%f, %f) is not finite", ErrInvalidGeometry, x, y)
	}
	return Geometry{kind: KindPoint, line: [][2]float64{{x, y}}}, nil
}

// NewLineString creates a LineString from at least two coordinates.
func NewLineString(coords [][2]float64) (Geometry, error) {
	if len(coords) < 2 {
		return Geometry{}, fmt.Errorf("%w: line string needs at least 2 points, got %d", ErrInvalidGeometry, len(coords))
	}
	if err := checkFinite(coords); err != nil {
		return Geometry{}, err
	}
	return Geometry{kind: KindLineString, line: copyCoords(coords)}, nil
}

// NewPolygon creates a Polygon from an exterior ring and optional holes.
// Rings are closed automatically when the last point differs from the first.
func NewPolygon(exterior [][2]float64, holes ...[][2]float64) (Geometry, error) {
	rings := make([][][2]float64, 0, 1+len(holes))
	for i, ring := range append([][][2]float64{exterior}, holes...) {
		closed, err := closeRing(ring)
		if err != nil {
			return Geometry{}, fmt.Errorf("ring %d: %w", i, err)
		}
		rings = append(rings, closed)
	}
	return Geometry{kind: KindPolygon, rings: rings}, nil
}

// Kind reports the shape held by g.
func (g Geometry) Kind() Kind {
	return g.kind
}

// IsEmpty reports whether g carries no shape.
func (g Geometry) IsEmpty() bool {
	return g.kind == KindNone
}

// Point returns the coordinate of a Point geometry.
func (g Geometry) Point() ([2]float64, bool) {
	if g.kind != KindPoint {
		return [2]float64{}, false
	}
	return g.line[0], true
}

// Coordinates returns a copy of the point, line or exterior ring coordinates.
func (g Geometry) Coordinates() [][2]float64 {
	switch g.kind {
	case KindPoint, KindLineString:
		return copyCoords(g.line)
	case KindPolygon:
		return copyCoords(g.rings[0])
	default:
		return nil
	}
}

// Rings returns a copy of the polygon rings, or nil for other kinds.
func (g Geometry) Rings() [][][2]float64 {
	if g.kind != KindPolygon {
		return nil
	}
	out := make([][][2]float64, len(g.rings))
	for i, r := range g.rings {
		out[i] = copyCoords(r)
	}
	return out
}

// Equal reports whether both geometries have the same kind and coordinates.
func (g Geometry) Equal(other Geometry) bool {
	if g.kind != other.kind || len(g.line) != len(other.line) || len(g.rings) != len(other.rings) {
		return false
	}
	for i := range g.line {
		if g.line[i] != other.line[i] {
			return false
		}
	}
	for i := range g.rings {
		if len(g.rings[i]) != len(other.rings[i]) {
			return false
		}
		for j := range g.rings[i] {
			if g.rings[i][j] != other.rings[i][j] {
				return false
			}
		}
	}
	return true
}

// String returns a short WKT-like description used in tree dumps.
func (g Geometry) String() string {
	switch g.kind {
	case KindPoint:
		return fmt.Sprintf("POINT (%g %g)", g.line[0][0], g.line[0][1])
	case KindLineString:
		return fmt.Sprintf("LINESTRING (%d points)", len(g.line))
	case KindPolygon:
		return fmt.Sprintf("POLYGON (%d points, %d rings)", len(g.rings[0]), len(g.rings))
	default:
		return "EMPTY"
	}
}

// geoJSON is the wire shape shared by the JSON and SQL codecs.
type geoJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// MarshalJSON encodes g as a GeoJSON geometry object, or null when empty.
func (g Geometry) MarshalJSON() ([]byte, error) {
	var coords interface{}
	switch g.kind {
	case KindNone:
		return []byte("null"), nil
	case KindPoint:
		coords = g.line[0]
	case KindLineString:
		coords = g.line
	case KindPolygon:
		coords = g.rings
	}
	return json.Marshal(struct {
		Type        string      `json:"type"`
		Coordinates interface{} `json:"coordinates"`
	}{
		Type:        g.kind.String(),
		Coordinates: coords,
	})
}

// UnmarshalJSON parses a GeoJSON Point, LineString or Polygon. null yields None.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*g = Geometry{}
		return nil
	}

	var raw geoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal geometry: %w", err)
	}

	var (
		parsed Geometry
		err    error
	)
	switch raw.Type {
	case "Point":
		var c [2]float64
		if err := json.Unmarshal(raw.Coordinates, &c); err != nil {
			return fmt.Errorf("failed to unmarshal point coordinates: %w", err)
		}
		parsed, err = NewPoint(c[0], c[1])
	case "LineString":
		var c [][2]float64
		if err := json.Unmarshal(raw.Coordinates, &c); err != nil {
			return fmt.Errorf("failed to unmarshal line string coordinates: %w", err)
		}
		parsed, err = NewLineString(c)
	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(raw.Coordinates, &rings); err != nil {
			return fmt.Errorf("failed to unmarshal polygon coordinates: %w", err)
		}
		if len(rings) == 0 {
			return fmt.Errorf("%w: polygon has no rings", ErrInvalidGeometry)
		}
		parsed, err = NewPolygon(rings[0], rings[1:]...)
	default:
		return fmt.Errorf("%w: unsupported geometry type %q", ErrInvalidGeometry, raw.Type)
	}
	if err != nil {
		return err
	}

	*g = parsed
	return nil
}

// Scan implements sql.Scanner. Drivers return the GeoJSON produced by
// ST_AsGeoJSON (postgres) or the stored text column (sqlite).
func (g *Geometry) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*g = Geometry{}
		return nil
	case []byte:
		return g.UnmarshalJSON(v)
	case string:
		return g.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("failed to scan Geometry: expected []byte or string, got %T", value)
	}
}

// Value implements driver.Valuer, returning GeoJSON text or NULL when empty.
func (g Geometry) Value() (driver.Value, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	data, err := g.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geometry to GeoJSON: %w", err)
	}
	return string(data), nil
}

func closeRing(ring [][2]float64) ([][2]float64, error) {
	if err := checkFinite(ring); err != nil {
		return nil, err
	}
	out := copyCoords(ring)
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	// closed ring: at least 3 distinct points plus the closing one
	if len(out) < 4 {
		return nil, fmt.Errorf("%w: polygon ring needs at least 3 distinct points, got %d", ErrInvalidGeometry, len(ring))
	}
	return out, nil
}

func checkFinite(coords [][2]float64) error {
	for i, c := range coords {
		if !finite(c[0], c[1]) {
			return fmt.Errorf("%w: coordinate %d (%f, %f) is not finite", ErrInvalidGeometry, i, c[0], c[1])
		}
	}
	return nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func copyCoords(in [][2]float64) [][2]float64 {
	if in == nil {
		return nil
	}
	out := make([][2]float64, len(in))
	copy(out, in)
	return out
}

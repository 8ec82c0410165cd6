package drawing

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/artscene/internal/logger"
	"github.com/stwalsh4118/artscene/internal/models"
	"github.com/stwalsh4118/artscene/internal/scene"
)

func openHouse(t *testing.T) *models.Drawing {
	t.Helper()
	doc, err := Open(filepath.Join("testdata", "house.json"))
	require.NoError(t, err)
	return doc
}

func TestOpen(t *testing.T) {
	doc := openHouse(t)

	assert.Equal(t, "house", doc.Name)
	assert.Len(t, doc.Groups, 4)
	assert.Len(t, doc.Layers, 2)
	assert.Len(t, doc.Objects, 6)

	_, err := Open(filepath.Join("testdata", "missing.json"))
	assert.Error(t, err)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{"},
		{name: "unknown field", body: `{"name":"x","colour":"red"}`},
		{name: "missing name", body: `{"groups":[],"layers":[],"objects":[]}`},
		{name: "negative group", body: `{"name":"x","groups":[{"index":-1,"name":"g"}]}`},
		{name: "unknown kind", body: `{"name":"x","objects":[{"kind":"mesh","points":[[0,0]]}]}`},
		{name: "no points", body: `{"name":"x","objects":[{"kind":"curve","points":[]}]}`},
		{name: "bad id", body: `{"name":"x","objects":[{"id":"obj-1","kind":"point","points":[[0,0]]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode(strings.NewReader(tt.body))

			assert.Nil(t, doc)
			assert.ErrorIs(t, err, ErrInvalidDrawing)
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		raw    models.RawObject
		kind   models.Kind
		coords [][2]float64
		ring   [][2]float64
	}{
		{
			name:   "straight curve keeps end points",
			raw:    models.RawObject{Kind: models.ObjectKindCurve, Linear: true, Points: [][2]float64{{0, 0}, {1, 0}, {2, 0}}},
			kind:   models.KindLineString,
			coords: [][2]float64{{0, 0}, {2, 0}},
		},
		{
			name:   "two point curve",
			raw:    models.RawObject{Kind: models.ObjectKindCurve, Points: [][2]float64{{0, 0}, {3, 4}}},
			kind:   models.KindLineString,
			coords: [][2]float64{{0, 0}, {3, 4}},
		},
		{
			name:   "open polyline",
			raw:    models.RawObject{Kind: models.ObjectKindCurve, Points: [][2]float64{{0, 0}, {1, 1}, {2, 0}}},
			kind:   models.KindLineString,
			coords: [][2]float64{{0, 0}, {1, 1}, {2, 0}},
		},
		{
			name: "closed polyline",
			raw:  models.RawObject{Kind: models.ObjectKindCurve, Closed: true, Points: [][2]float64{{0, 0}, {1, 0}, {1, 1}}},
			kind: models.KindPolygon,
			ring: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 0}},
		},
		{
			name:   "point",
			raw:    models.RawObject{Kind: models.ObjectKindPoint, Points: [][2]float64{{5, 6}}},
			kind:   models.KindPoint,
			coords: [][2]float64{{5, 6}},
		},
		{
			name:   "text dot at bounding box centre",
			raw:    models.RawObject{Kind: models.ObjectKindTextDot, Points: [][2]float64{{0, 0}, {4, 1}, {2, 6}}},
			kind:   models.KindPoint,
			coords: [][2]float64{{2, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geom, err := Convert(&tt.raw)

			require.NoError(t, err)
			assert.Equal(t, tt.kind, geom.Kind())
			if tt.ring != nil {
				require.Len(t, geom.Rings(), 1)
				assert.Equal(t, tt.ring, geom.Rings()[0])
				return
			}
			assert.Equal(t, tt.coords, geom.Coordinates())
		})
	}
}

func TestConvert_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawObject
	}{
		{name: "no points", raw: models.RawObject{Kind: models.ObjectKindCurve}},
		{name: "single point curve", raw: models.RawObject{Kind: models.ObjectKindCurve, Points: [][2]float64{{0, 0}}}},
		{name: "degenerate ring", raw: models.RawObject{Kind: models.ObjectKindCurve, Closed: true, Points: [][2]float64{{0, 0}, {1, 1}, {0, 0}}}},
		{name: "unknown kind", raw: models.RawObject{Kind: "mesh", Points: [][2]float64{{0, 0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geom, err := Convert(&tt.raw)

			assert.ErrorIs(t, err, models.ErrInvalidGeometry)
			assert.True(t, geom.IsEmpty())
		})
	}
}

func TestAssemble_House(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithLevel("production", "debug", &buf)

	res, err := Assemble(openHouse(t), Options{Log: log})
	require.NoError(t, err)

	assert.Equal(t, "house", res.Name)
	assert.Equal(t, []string{"walls"}, res.Layers, "only layers of converted elements")
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Elements, 3)
	require.NoError(t, res.Tree.Validate())

	roots, err := res.Tree.Children(scene.RootKey)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "house", roots[0].Name)
	assert.Equal(t, "annex", roots[1].Name, "groups no curve reaches hang off the root")

	kitchen, err := res.Tree.Resolve("kitchen")
	require.NoError(t, err)
	depth, err := res.Tree.Depth(kitchen.Index())
	require.NoError(t, err)
	assert.Equal(t, 3, depth)

	wall := res.Elements[0]
	assert.Equal(t, uuid.MustParse("6f1c2a52-8a3e-4f57-9c3e-0d6c1f6b2a10"), wall.ID())
	assert.Equal(t, "walls", wall.Type())
	assert.Same(t, kitchen, wall.Owner())
	assert.Equal(t, models.KindPolygon, wall.Geometry().Kind())

	house := roots[0]
	require.NotNil(t, house.Floor)
	require.NotNil(t, house.Height)
	require.NotNil(t, house.Annotations)
	assert.Equal(t, 12, *house.Floor)
	assert.InDelta(t, 36.5, *house.Height, 1e-9)
	assert.Equal(t, "12FH=36.5m", *house.Annotations)
	assert.Nil(t, kitchen.Floor)

	all, err := res.Tree.ElementsUnder(house.Index())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.Contains(t, buf.String(), "skipping object with unconvertible geometry")
	assert.Contains(t, buf.String(), "drawing assembled")
}

func TestAssemble_ReadableKinds(t *testing.T) {
	res, err := Assemble(openHouse(t), Options{
		ReadableKinds: []string{models.ObjectKindCurve, models.ObjectKindPoint, models.ObjectKindTextDot},
	})
	require.NoError(t, err)

	assert.Len(t, res.Elements, 5)
	annex, err := res.Tree.Resolve("annex")
	require.NoError(t, err)
	require.Len(t, annex.Elements(), 1)
	assert.Equal(t, models.KindPoint, annex.Elements()[0].Geometry().Kind())
	assert.Equal(t, "notes", annex.Elements()[0].Type())
}

func TestAssemble_Layers(t *testing.T) {
	tests := []struct {
		name  string
		kinds []string
		want  []string
	}{
		{name: "curves", kinds: []string{models.ObjectKindCurve}, want: []string{"walls"}},
		{name: "points", kinds: []string{models.ObjectKindPoint}, want: []string{"notes"}},
		{name: "every kind", kinds: []string{models.ObjectKindTextDot, models.ObjectKindPoint, models.ObjectKindCurve}, want: []string{"walls", "notes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Assemble(openHouse(t), Options{ReadableKinds: tt.kinds})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Layers)
		})
	}
}

func TestAssemble_InconsistentTables(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc *models.Drawing)
		target error
	}{
		{
			name:   "unknown layer",
			mutate: func(doc *models.Drawing) { doc.Objects[0].Layer = 9 },
			target: ErrInvalidDrawing,
		},
		{
			name:   "duplicate layer index",
			mutate: func(doc *models.Drawing) { doc.Layers[1].Index = 0 },
			target: ErrInvalidDrawing,
		},
		{
			name:   "duplicate group index",
			mutate: func(doc *models.Drawing) { doc.Groups[3].Index = 2 },
			target: ErrInvalidDrawing,
		},
		{
			name:   "curve in an undeclared group",
			mutate: func(doc *models.Drawing) { doc.Objects[2].Groups = []int{42} },
			target: scene.ErrUnknownGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := openHouse(t)
			tt.mutate(doc)

			res, err := Assemble(doc, Options{})

			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

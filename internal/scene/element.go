package scene

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/artscene/internal/models"
)

// Element is the smallest unit of the scene: one shape, the layer it was drawn
// on and the groups it belongs to. Elements carry no hierarchy of their own.
type Element struct {
	id       uuid.UUID
	layer    string
	groups   []int
	geometry models.Geometry
	owner    *Object
}

// NewElement creates an element with a fresh id. groups is the membership
// path innermost first and is copied.
func NewElement(layer string, groups []int, geom models.Geometry) *Element {
	return NewElementWithID(newID(), layer, groups, geom)
}

// NewElementWithID is NewElement for ids assigned by the CAD document.
func NewElementWithID(id uuid.UUID, layer string, groups []int, geom models.Geometry) *Element {
	return &Element{
		id:       id,
		layer:    layer,
		groups:   append([]int(nil), groups...),
		geometry: geom,
	}
}

// ID returns the element id.
func (e *Element) ID() uuid.UUID { return e.id }

// Type returns the source layer name.
func (e *Element) Type() string { return e.layer }

// Geometry returns the shape payload.
func (e *Element) Geometry() models.Geometry { return e.geometry }

// HasGeometry reports whether a shape is attached.
func (e *Element) HasGeometry() bool { return !e.geometry.IsEmpty() }

// GroupPath returns a copy of the membership path, innermost group first.
func (e *Element) GroupPath() []int {
	return append([]int(nil), e.groups...)
}

// Owner returns the object holding the element, or nil.
func (e *Element) Owner() *Object { return e.owner }

// AttachGeometry sets the shape of an element created without one.
func (e *Element) AttachGeometry(g models.Geometry) error {
	if g.IsEmpty() {
		return ErrMissingGeometry
	}
	if e.HasGeometry() {
		return fmt.Errorf("%w: element %s already has geometry", ErrDomainConstraint, e.id)
	}
	e.geometry = g
	return nil
}

// innermost returns the first group of the path.
func (e *Element) innermost() (int, bool) {
	if len(e.groups) == 0 {
		return 0, false
	}
	return e.groups[0], true
}

// newID returns a time-based id, falling back to a random one when the
// node id cannot be obtained.
func newID() uuid.UUID {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.New()
	}
	return id
}

package scene

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/artscene/internal/models"
)

// Snapshot is a flat, pre-order copy of a tree. Parents always precede their
// children, so replaying the records with Add rebuilds the same tree.
type Snapshot struct {
	Objects []ObjectRecord `json:"objects"`
}

// ObjectRecord captures one object and its position.
type ObjectRecord struct {
	Floor       *int            `json:"floor,omitempty"`
	Height      *float64        `json:"height,omitempty"`
	Annotations *string         `json:"annotations,omitempty"`
	Name        string          `json:"name"`
	Elements    []ElementRecord `json:"elements"`
	Index       int             `json:"index"`
	Parent      int             `json:"parent"`
	ID          uuid.UUID       `json:"id"`
}

// ElementRecord captures one element.
type ElementRecord struct {
	Geometry models.Geometry `json:"geometry"`
	Type     string          `json:"type"`
	Groups   []int           `json:"groups"`
	ID       uuid.UUID       `json:"id"`
}

// Snapshot copies the current tree.
func (t *Tree) Snapshot() Snapshot {
	snap := Snapshot{Objects: make([]ObjectRecord, 0, len(t.nodes))}
	for _, n := range collect(t.root, nil) {
		o := n.obj
		rec := ObjectRecord{
			ID:          o.id,
			Index:       o.index,
			Parent:      n.parent.key(),
			Name:        o.Name,
			Floor:       clone(o.Floor),
			Height:      clone(o.Height),
			Annotations: clone(o.Annotations),
			Elements:    make([]ElementRecord, 0, len(o.elements)),
		}
		for _, e := range o.elements {
			rec.Elements = append(rec.Elements, ElementRecord{
				ID:       e.id,
				Type:     e.layer,
				Groups:   e.GroupPath(),
				Geometry: e.geometry,
			})
		}
		snap.Objects = append(snap.Objects, rec)
	}
	return snap
}

// Restore rebuilds a tree from a snapshot, keeping object and element ids.
func Restore(snap Snapshot) (*Tree, error) {
	t := NewTree()
	for _, rec := range snap.Objects {
		obj := &Object{
			id:          rec.ID,
			index:       rec.Index,
			Name:        rec.Name,
			Floor:       clone(rec.Floor),
			Height:      clone(rec.Height),
			Annotations: clone(rec.Annotations),
		}
		for _, er := range rec.Elements {
			e := &Element{
				id:       er.ID,
				layer:    er.Type,
				groups:   append([]int(nil), er.Groups...),
				geometry: er.Geometry,
			}
			if err := obj.AddElement(e); err != nil {
				return nil, err
			}
		}
		if err := t.Add(obj, rec.Parent); err != nil {
			return nil, fmt.Errorf("restore object %d: %w", rec.Index, err)
		}
	}
	return t, nil
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

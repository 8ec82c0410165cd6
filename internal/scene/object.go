package scene

import (
	"fmt"

	"github.com/google/uuid"
)

// Object is a logical node of the scene (site, building, floor, room). It maps
// one-to-one to a CAD group and owns the elements drawn in that group.
//
// The object never stores topology. Its position is looked up in the tree
// that currently holds it, so views obtained through Tree reflect later moves
// and return nothing once the object has been deleted.
type Object struct {
	id       uuid.UUID
	index    int
	elements []*Element
	tree     *Tree

	Name        string
	Floor       *int
	Height      *float64
	Annotations *string
}

// NewObject creates a detached object for the given group index.
func NewObject(index int, name string) *Object {
	return &Object{
		id:    newID(),
		index: index,
		Name:  name,
	}
}

// ID returns the object id, independent of tree position.
func (o *Object) ID() uuid.UUID { return o.id }

// Index returns the group index used as the tree key.
func (o *Object) Index() int { return o.index }

// Attached reports whether the object is currently part of a tree.
func (o *Object) Attached() bool { return o.tree != nil }

// Elements returns the owned elements in insertion order.
func (o *Object) Elements() []*Element {
	return append([]*Element(nil), o.elements...)
}

// AddElement appends an element. Elements without geometry, or already held
// by another object, are rejected. A non-empty group path must start with the
// object's own index, and once the object is attached every index on the path
// must name an object of the tree.
func (o *Object) AddElement(e *Element) error {
	if e == nil || !e.HasGeometry() {
		return fmt.Errorf("object %d: %w", o.index, ErrMissingGeometry)
	}
	if e.owner != nil {
		return fmt.Errorf("object %d: element %s: %w", o.index, e.id, ErrElementOwned)
	}
	if err := o.checkPath(e); err != nil {
		return err
	}
	if o.tree != nil {
		for _, g := range e.groups {
			if !o.tree.Contains(g) {
				return fmt.Errorf("%w: object %d: element %s names group %d outside the tree",
					ErrDomainConstraint, o.index, e.id, g)
			}
		}
	}
	o.adopt(e)
	return nil
}

// checkPath rejects an element whose innermost group is another object.
func (o *Object) checkPath(e *Element) error {
	if len(e.groups) > 0 && e.groups[0] != o.index {
		return fmt.Errorf("%w: object %d: element %s belongs to group %d",
			ErrDomainConstraint, o.index, e.id, e.groups[0])
	}
	return nil
}

// DeleteElement removes the element with the given id.
func (o *Object) DeleteElement(id uuid.UUID) error {
	for i, e := range o.elements {
		if e.id == id {
			o.elements = append(o.elements[:i:i], o.elements[i+1:]...)
			e.owner = nil
			return nil
		}
	}
	return fmt.Errorf("object %d: %w: %s", o.index, ErrElementNotFound, id)
}

// Tree returns a read-only view of the subtree rooted at this object, or nil
// when the object is detached.
func (o *Object) Tree() *View {
	if o.tree == nil {
		return nil
	}
	return &View{tree: o.tree, key: o.index}
}

// AllObjects returns this object and every descendant in pre-order.
func (o *Object) AllObjects() []*Object {
	if o.tree == nil {
		return nil
	}
	objs, _ := o.tree.ObjectsUnder(o.index)
	return objs
}

// AllElements returns the elements of this object and every descendant.
func (o *Object) AllElements() []*Element {
	if o.tree == nil {
		return nil
	}
	elems, _ := o.tree.ElementsUnder(o.index)
	return elems
}

func (o *Object) adopt(e *Element) {
	e.owner = o
	o.elements = append(o.elements, e)
}

func (o *Object) checkElements() error {
	for _, e := range o.elements {
		if !e.HasGeometry() {
			return fmt.Errorf("object %d: element %s: %w", o.index, e.id, ErrMissingGeometry)
		}
		if err := o.checkPath(e); err != nil {
			return err
		}
	}
	return nil
}

// View is a read-only projection of the subtree rooted at one object. It
// holds only the key and resolves everything against the tree on each call.
type View struct {
	tree *Tree
	key  int
}

// Root returns the object at the top of the view, or nil if it was removed.
func (v *View) Root() *Object {
	obj, _ := v.tree.Find(v.key)
	return obj
}

// Objects returns the objects of the subtree in pre-order.
func (v *View) Objects() []*Object {
	objs, _ := v.tree.ObjectsUnder(v.key)
	return objs
}

// Elements returns the elements of the subtree in pre-order.
func (v *View) Elements() []*Element {
	elems, _ := v.tree.ElementsUnder(v.key)
	return elems
}

// Len returns the number of objects in the subtree.
func (v *View) Len() int {
	return len(v.Objects())
}

// Depth returns the number of levels below the view root.
func (v *View) Depth() int {
	n, ok := v.tree.nodes[v.key]
	if !ok {
		return 0
	}
	return height(n)
}

func height(n *node) int {
	h := 0
	for _, c := range n.children {
		if d := height(c) + 1; d > h {
			h = d
		}
	}
	return h
}

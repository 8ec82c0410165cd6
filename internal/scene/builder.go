package scene

import (
	"fmt"
	"sort"
)

// Build assembles the object tree from the elements' group paths.
//
// objects maps every group index to its object. Each distinct non-empty path
// is reversed to run outermost first and walked: indices not yet in the tree
// are created under the previous index of the path, or under the root for
// the first one. Nodes that already exist are never moved, so repeated or
// overlapping paths merge. Paths are processed in order of first appearance.
//
// Objects that no path reaches are attached under the root in ascending
// index order. Every element with a path is then given to the object at the
// innermost index of that path; elements with an empty path are left out.
//
// Build validates its whole input before touching any object and fails with
// ErrUnknownGroup, ErrMissingGeometry, ErrElementOwned or ErrAttached.
func Build(elements []*Element, objects map[int]*Object) (*Tree, error) {
	if err := checkBuildInput(elements, objects); err != nil {
		return nil, err
	}

	t := NewTree()
	seen := make(map[string]bool)
	for _, e := range elements {
		if e == nil || len(e.groups) == 0 {
			continue
		}
		key := fmt.Sprint(e.groups)
		if seen[key] {
			continue
		}
		seen[key] = true
		t.mergePath(e.groups, objects)
	}

	unreached := make([]int, 0)
	for idx := range objects {
		if !t.Contains(idx) {
			unreached = append(unreached, idx)
		}
	}
	sort.Ints(unreached)
	for _, idx := range unreached {
		t.attach(objects[idx], t.root)
	}

	for _, e := range elements {
		if e == nil {
			continue
		}
		if idx, ok := e.innermost(); ok {
			objects[idx].adopt(e)
		}
	}
	return t, nil
}

// mergePath walks an innermost-first path from its outermost group inwards.
func (t *Tree) mergePath(path []int, objects map[int]*Object) {
	prev := t.root
	for i := len(path) - 1; i >= 0; i-- {
		n, ok := t.nodes[path[i]]
		if !ok {
			n = t.attach(objects[path[i]], prev)
		}
		prev = n
	}
}

func checkBuildInput(elements []*Element, objects map[int]*Object) error {
	for idx, obj := range objects {
		if obj == nil {
			return fmt.Errorf("%w: group %d has no object", ErrMalformedInput, idx)
		}
		if obj.index != idx {
			return fmt.Errorf("%w: group %d maps to object with index %d", ErrMalformedInput, idx, obj.index)
		}
		if idx < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidKey, idx)
		}
		if obj.tree != nil {
			return fmt.Errorf("%w: %d", ErrAttached, idx)
		}
		if err := obj.checkElements(); err != nil {
			return err
		}
	}

	claimed := make(map[*Element]bool)
	for _, e := range elements {
		if e == nil || len(e.groups) == 0 {
			continue
		}
		if !e.HasGeometry() {
			return fmt.Errorf("element %s: %w", e.id, ErrMissingGeometry)
		}
		if e.owner != nil || claimed[e] {
			return fmt.Errorf("element %s: %w", e.id, ErrElementOwned)
		}
		claimed[e] = true
		for _, idx := range e.groups {
			if _, ok := objects[idx]; !ok {
				return fmt.Errorf("element %s: %w: %d", e.id, ErrUnknownGroup, idx)
			}
		}
	}
	return nil
}

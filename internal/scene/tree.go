// Package scene holds the object hierarchy reconstructed from a CAD drawing:
// elements, the objects that own them and the tree that orders the objects.
package scene

import (
	"fmt"
	"strconv"
)

// RootKey addresses the synthetic root of every tree. Object indices are
// group indices and therefore never negative.
const RootKey = -1

type node struct {
	obj      *Object
	parent   *node
	children []*node
}

func (n *node) key() int {
	if n.obj == nil {
		return RootKey
	}
	return n.obj.index
}

// Tree is the single owner of scene topology. Each live object is one node
// keyed by its index; the root carries no object.
//
// Tree does no locking. Callers sharing a tree must serialise access.
type Tree struct {
	root  *node
	nodes map[int]*node
}

// NewTree returns a tree holding only the root.
func NewTree() *Tree {
	return &Tree{
		root:  &node{},
		nodes: make(map[int]*node),
	}
}

// Len returns the number of objects in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Contains reports whether an object with the given index is in the tree.
func (t *Tree) Contains(key int) bool {
	_, ok := t.nodes[key]
	return ok
}

// Find returns the object with the given index.
func (t *Tree) Find(key int) (*Object, bool) {
	n, ok := t.nodes[key]
	if !ok {
		return nil, false
	}
	return n.obj, true
}

// FindByName returns the first object in pre-order whose name matches.
// Names are not unique; use FindAllByName to see every match.
func (t *Tree) FindByName(name string) (*Object, bool) {
	var found *Object
	t.Walk(func(obj *Object, _ int) bool {
		if obj.Name == name {
			found = obj
			return false
		}
		return true
	})
	return found, found != nil
}

// FindAllByName returns every object with the given name in pre-order.
func (t *Tree) FindAllByName(name string) []*Object {
	var found []*Object
	t.Walk(func(obj *Object, _ int) bool {
		if obj.Name == name {
			found = append(found, obj)
		}
		return true
	})
	return found
}

// Resolve looks an object up by a reference that is either a decimal index
// or a name. A decimal reference is tried as an index first and then as a
// name, so objects named "2024" stay reachable.
func (t *Tree) Resolve(ref string) (*Object, error) {
	if key, err := strconv.Atoi(ref); err == nil {
		if obj, ok := t.Find(key); ok {
			return obj, nil
		}
	}
	if obj, ok := t.FindByName(ref); ok {
		return obj, nil
	}
	return nil, fmt.Errorf("%w: %q matches no index or name", ErrObjectNotFound, ref)
}

// Add attaches obj as the last child of parentKey.
func (t *Tree) Add(obj *Object, parentKey int) error {
	if err := t.checkNew(obj); err != nil {
		return err
	}
	parent, err := t.parentNode(parentKey)
	if err != nil {
		return err
	}
	t.attach(obj, parent)
	return nil
}

// Insert places obj between parentKey and its direct child childKey: obj
// takes the child's position under the parent and the child moves under obj.
// Nothing changes unless every check passes.
func (t *Tree) Insert(obj *Object, parentKey, childKey int) error {
	if err := t.checkNew(obj); err != nil {
		return err
	}
	parent, err := t.parentNode(parentKey)
	if err != nil {
		return err
	}
	if childKey == RootKey {
		return fmt.Errorf("%w: the root cannot be a child", ErrInvalidKey)
	}
	child, ok := t.nodes[childKey]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchChild, childKey)
	}
	if child.parent != parent {
		return fmt.Errorf("%w: %d is under %d, not %d", ErrNotDirectChild, childKey, child.parent.key(), parentKey)
	}

	n := &node{obj: obj, parent: parent, children: []*node{child}}
	parent.children[indexOf(parent.children, child)] = n
	child.parent = n
	t.nodes[obj.index] = n
	obj.tree = t
	return nil
}

// Delete removes the object and its whole subtree, returning how many
// objects were removed. Removed objects are detached.
func (t *Tree) Delete(key int) (int, error) {
	if key == RootKey {
		return 0, fmt.Errorf("%w: the root cannot be deleted", ErrInvalidKey)
	}
	n, ok := t.nodes[key]
	if !ok {
		return 0, fmt.Errorf("%w: index %d", ErrObjectNotFound, key)
	}

	removed := collect(n, nil)
	n.parent.children = removeChild(n.parent.children, n)
	n.parent = nil
	for _, r := range removed {
		delete(t.nodes, r.obj.index)
		r.obj.tree = nil
	}
	return len(removed), nil
}

// DeleteByName deletes the first object in pre-order with the given name.
func (t *Tree) DeleteByName(name string) (int, error) {
	obj, ok := t.FindByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: name %q", ErrObjectNotFound, name)
	}
	return t.Delete(obj.index)
}

// Move detaches the subtree at key and appends it to newParentKey. Moving a
// node under itself or one of its descendants fails with ErrCycle. Moving to
// the current parent keeps the sibling order.
func (t *Tree) Move(key, newParentKey int) error {
	if key == RootKey {
		return fmt.Errorf("%w: the root cannot be moved", ErrInvalidKey)
	}
	n, ok := t.nodes[key]
	if !ok {
		return fmt.Errorf("%w: index %d", ErrObjectNotFound, key)
	}
	target := t.root
	if newParentKey != RootKey {
		if target, ok = t.nodes[newParentKey]; !ok {
			return fmt.Errorf("%w: new parent %d", ErrObjectNotFound, newParentKey)
		}
	}
	for p := target; p != nil; p = p.parent {
		if p == n {
			return fmt.Errorf("%w: cannot move %d under %d", ErrCycle, key, newParentKey)
		}
	}
	if n.parent == target {
		return nil
	}

	n.parent.children = removeChild(n.parent.children, n)
	n.parent = target
	target.children = append(target.children, n)
	return nil
}

// ObjectsUnder returns the object at key and all its descendants in
// pre-order. RootKey returns every object.
func (t *Tree) ObjectsUnder(key int) ([]*Object, error) {
	n, err := t.lookup(key)
	if err != nil {
		return nil, err
	}
	nodes := collect(n, nil)
	objs := make([]*Object, 0, len(nodes))
	for _, c := range nodes {
		objs = append(objs, c.obj)
	}
	return objs, nil
}

// ElementsUnder returns the elements of every object under key, flattened
// in pre-order.
func (t *Tree) ElementsUnder(key int) ([]*Element, error) {
	objs, err := t.ObjectsUnder(key)
	if err != nil {
		return nil, err
	}
	elems := []*Element{}
	for _, obj := range objs {
		elems = append(elems, obj.elements...)
	}
	return elems, nil
}

// Objects returns every object in pre-order.
func (t *Tree) Objects() []*Object {
	objs, _ := t.ObjectsUnder(RootKey)
	return objs
}

// Parent returns the parent of key, or nil when key sits directly under the root.
func (t *Tree) Parent(key int) (*Object, error) {
	n, ok := t.nodes[key]
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrObjectNotFound, key)
	}
	return n.parent.obj, nil
}

// Children returns the direct children of key in order.
func (t *Tree) Children(key int) ([]*Object, error) {
	n, err := t.lookup(key)
	if err != nil {
		return nil, err
	}
	out := make([]*Object, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c.obj)
	}
	return out, nil
}

// Depth returns the distance from the root; top-level objects have depth 1.
func (t *Tree) Depth(key int) (int, error) {
	n, err := t.lookup(key)
	if err != nil {
		return 0, err
	}
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d, nil
}

// Walk visits every object in pre-order with its depth. Returning false
// stops the walk.
func (t *Tree) Walk(fn func(obj *Object, depth int) bool) {
	var visit func(n *node, depth int) bool
	visit = func(n *node, depth int) bool {
		for _, c := range n.children {
			if !fn(c.obj, depth) || !visit(c, depth+1) {
				return false
			}
		}
		return true
	}
	visit(t.root, 1)
}

// Validate checks the structural invariants: every node reachable from the
// root exactly once, consistent parent links, keys matching object indices
// and every element owned by the object that lists it. An element's innermost
// group must be its owner. Outer path entries are not checked here since
// moves and deletes may leave them naming former ancestors.
func (t *Tree) Validate() error {
	seen := make(map[int]bool, len(t.nodes))
	var visit func(n *node) error
	visit = func(n *node) error {
		for _, c := range n.children {
			if c.obj == nil {
				return fmt.Errorf("%w: child of %d has no object", ErrStructural, n.key())
			}
			k := c.obj.index
			if seen[k] {
				return fmt.Errorf("%w: %d reached twice", ErrStructural, k)
			}
			seen[k] = true
			if c.parent != n {
				return fmt.Errorf("%w: %d has a stale parent link", ErrStructural, k)
			}
			if t.nodes[k] != c {
				return fmt.Errorf("%w: %d is not registered under its index", ErrStructural, k)
			}
			if c.obj.tree != t {
				return fmt.Errorf("%w: %d does not point at this tree", ErrStructural, k)
			}
			for _, e := range c.obj.elements {
				if e.owner != c.obj {
					return fmt.Errorf("%w: element %s of %d has another owner", ErrDomainConstraint, e.id, k)
				}
				if err := c.obj.checkPath(e); err != nil {
					return err
				}
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(t.root); err != nil {
		return err
	}
	if len(seen) != len(t.nodes) {
		return fmt.Errorf("%w: %d objects registered, %d reachable", ErrStructural, len(t.nodes), len(seen))
	}
	return nil
}

func (t *Tree) checkNew(obj *Object) error {
	if obj == nil {
		return fmt.Errorf("%w: nil object", ErrInvalidKey)
	}
	if obj.index < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKey, obj.index)
	}
	if _, ok := t.nodes[obj.index]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateKey, obj.index)
	}
	if obj.tree != nil {
		return fmt.Errorf("%w: %d", ErrAttached, obj.index)
	}
	return obj.checkElements()
}

func (t *Tree) parentNode(key int) (*node, error) {
	if key == RootKey {
		return t.root, nil
	}
	n, ok := t.nodes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchParent, key)
	}
	return n, nil
}

// lookup resolves a key, RootKey included.
func (t *Tree) lookup(key int) (*node, error) {
	if key == RootKey {
		return t.root, nil
	}
	n, ok := t.nodes[key]
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrObjectNotFound, key)
	}
	return n, nil
}

func (t *Tree) attach(obj *Object, parent *node) *node {
	n := &node{obj: obj, parent: parent}
	parent.children = append(parent.children, n)
	t.nodes[obj.index] = n
	obj.tree = t
	return n
}

// collect appends n and its descendants in pre-order, skipping the root.
func collect(n *node, acc []*node) []*node {
	if n.obj != nil {
		acc = append(acc, n)
	}
	for _, c := range n.children {
		acc = collect(c, acc)
	}
	return acc
}

func indexOf(nodes []*node, n *node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	return -1
}

func removeChild(nodes []*node, n *node) []*node {
	i := indexOf(nodes, n)
	if i < 0 {
		return nodes
	}
	return append(nodes[:i:i], nodes[i+1:]...)
}

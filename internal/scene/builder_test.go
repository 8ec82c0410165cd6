package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/artscene/internal/models"
)

func objectsFor(indices ...int) map[int]*Object {
	objs := make(map[int]*Object, len(indices))
	for _, idx := range indices {
		objs[idx] = NewObject(idx, "")
	}
	return objs
}

// shape renders topology only, so trees with different ids can be compared.
func shape(tree *Tree) map[int][]int {
	out := map[int][]int{}
	var visit func(key int)
	visit = func(key int) {
		children, _ := tree.Children(key)
		out[key] = keys(children)
		for _, c := range children {
			visit(c.Index())
		}
	}
	visit(RootKey)
	return out
}

func TestBuild_ChainScenario(t *testing.T) {
	tree, elems, objs := chainTree(t)

	assert.Equal(t, map[int][]int{
		RootKey: {1},
		1:       {2},
		2:       {3},
		3:       {},
	}, shape(tree))

	for i, idx := range []int{1, 2, 3} {
		assert.Equal(t, []*Element{elems[i]}, objs[idx].Elements())
		assert.Same(t, objs[idx], elems[i].Owner())
		assert.True(t, objs[idx].Attached())
	}
	require.NoError(t, tree.Validate())
}

func TestBuild_ObjectTreeView(t *testing.T) {
	_, elems, objs := chainTree(t)

	view := objs[2].Tree()
	require.NotNil(t, view)
	assert.Same(t, objs[2], view.Root())
	assert.Equal(t, []int{2, 3}, keys(view.Objects()))
	assert.Equal(t, []*Element{elems[1], elems[2]}, view.Elements())
	assert.Equal(t, 2, view.Len())
	assert.Equal(t, 1, view.Depth())

	assert.Equal(t, []int{1, 2, 3}, keys(objs[1].AllObjects()))
	assert.Equal(t, elems, objs[1].AllElements())
}

func TestBuild_ViewFollowsLaterMoves(t *testing.T) {
	tree, _, objs := chainTree(t)
	view := objs[1].Tree()

	require.NoError(t, tree.Move(3, RootKey))

	assert.Equal(t, []int{1, 2}, keys(view.Objects()))
}

func TestBuild_DuplicatePathsAreIdempotent(t *testing.T) {
	paths := [][]int{{4, 2, 1}, {5, 2, 1}, {6, 1}}
	withDup := append(append([][]int{}, paths...), []int{4, 2, 1}, []int{6, 1})

	build := func(ps [][]int) *Tree {
		elems := make([]*Element, 0, len(ps))
		for _, p := range ps {
			elems = append(elems, element(t, p...))
		}
		tree, err := Build(elems, objectsFor(1, 2, 4, 5, 6))
		require.NoError(t, err)
		return tree
	}

	assert.Equal(t, shape(build(paths)), shape(build(withDup)))
	assert.Equal(t, map[int][]int{
		RootKey: {1},
		1:       {2, 6},
		2:       {4, 5},
		4:       {},
		5:       {},
		6:       {},
	}, shape(build(paths)))
}

func TestBuild_ExistingNodesAreNotReparented(t *testing.T) {
	// 3 first appears under 2; the later path claims it under 7.
	elems := []*Element{element(t, 3, 2), element(t, 3, 7)}

	tree, err := Build(elems, objectsFor(2, 3, 7))

	require.NoError(t, err)
	assert.Equal(t, map[int][]int{
		RootKey: {2, 7},
		2:       {3},
		3:       {},
		7:       {},
	}, shape(tree))
}

func TestBuild_UnreachedObjectsAttachToRoot(t *testing.T) {
	elems := []*Element{element(t, 2, 1)}

	tree, err := Build(elems, objectsFor(1, 2, 9, 5))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 9}, childKeys(t, tree, RootKey))
	assert.Equal(t, 4, tree.Len())
}

func TestBuild_EmptyPathElementsAreDropped(t *testing.T) {
	loose := element(t)
	elems := []*Element{element(t, 1), loose}

	tree, err := Build(elems, objectsFor(1))

	require.NoError(t, err)
	all, err := tree.ElementsUnder(RootKey)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Nil(t, loose.Owner())
}

func TestBuild_UnknownGroupFails(t *testing.T) {
	objs := objectsFor(1)
	elems := []*Element{element(t, 1), element(t, 8, 1)}

	tree, err := Build(elems, objs)

	assert.Nil(t, tree)
	assert.ErrorIs(t, err, ErrUnknownGroup)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Contains(t, err.Error(), "8")
	assert.Empty(t, objs[1].Elements(), "nothing is assigned when the input is rejected")
	assert.False(t, objs[1].Attached())
}

func TestBuild_MissingGeometryFails(t *testing.T) {
	elems := []*Element{NewElement("wall", []int{1}, models.None())}

	_, err := Build(elems, objectsFor(1))

	assert.ErrorIs(t, err, ErrMissingGeometry)
}

func TestBuild_ElementListedTwiceFails(t *testing.T) {
	e := element(t, 1)

	_, err := Build([]*Element{e, e}, objectsFor(1))

	assert.ErrorIs(t, err, ErrElementOwned)
	assert.Nil(t, e.Owner())
}

func TestBuild_MismatchedObjectKey(t *testing.T) {
	objs := map[int]*Object{1: NewObject(2, "wrong")}

	_, err := Build(nil, objs)

	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestBuild_Empty(t *testing.T) {
	tree, err := Build(nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.Objects())
}

func TestObject_Elements(t *testing.T) {
	obj := NewObject(1, "room")
	e := element(t, 1)

	require.NoError(t, obj.AddElement(e))
	assert.ErrorIs(t, obj.AddElement(e), ErrElementOwned)
	assert.ErrorIs(t, obj.AddElement(NewElement("wall", nil, models.None())), ErrMissingGeometry)
	assert.ErrorIs(t, obj.AddElement(nil), ErrMissingGeometry)

	require.NoError(t, obj.DeleteElement(e.ID()))
	assert.Empty(t, obj.Elements())
	assert.Nil(t, e.Owner())
	assert.ErrorIs(t, obj.DeleteElement(e.ID()), ErrElementNotFound)

	other := NewObject(1, "copy")
	require.NoError(t, other.AddElement(e), "a released element can be adopted again")
}

func TestObject_AddElement_GroupPath(t *testing.T) {
	tests := []struct {
		name    string
		target  int
		path    []int
		wantErr error
	}{
		{name: "innermost is the object", target: 2, path: []int{2, 1}},
		{name: "empty path", target: 3, path: nil},
		{name: "innermost is the parent", target: 2, path: []int{1}, wantErr: ErrDomainConstraint},
		{name: "innermost is a sibling", target: 3, path: []int{2, 1}, wantErr: ErrDomainConstraint},
		{name: "outer group not in tree", target: 3, path: []int{3, 9}, wantErr: ErrDomainConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, _, objs := chainTree(t)
			obj := objs[tt.target]
			before := len(obj.Elements())
			e := element(t, tt.path...)

			err := obj.AddElement(e)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, obj.Elements(), before)
				assert.Nil(t, e.Owner())
				return
			}
			require.NoError(t, err)
			assert.Len(t, obj.Elements(), before+1)
			require.NoError(t, tree.Validate())
		})
	}
}

func TestObject_AddElement_DetachedChecksInnermostOnly(t *testing.T) {
	obj := NewObject(7, "loose")

	require.NoError(t, obj.AddElement(element(t, 7, 40, 41)))
	assert.ErrorIs(t, obj.AddElement(element(t, 40, 7)), ErrDomainConstraint)

	tree := NewTree()
	assert.NoError(t, tree.Add(obj, RootKey))
}

func TestTree_Add_RejectsForeignElementPath(t *testing.T) {
	tree := NewTree()
	obj := NewObject(5, "bad")
	obj.elements = append(obj.elements, element(t, 6))

	err := tree.Add(obj, RootKey)

	assert.ErrorIs(t, err, ErrDomainConstraint)
	assert.Equal(t, 0, tree.Len())
}

func TestTree_Validate_ForeignElementPath(t *testing.T) {
	tree, _, objs := chainTree(t)
	stray := element(t, 1)
	stray.owner = objs[3]
	objs[3].elements = append(objs[3].elements, stray)

	assert.ErrorIs(t, tree.Validate(), ErrDomainConstraint)
}

func TestRestore_RejectsForeignElementPath(t *testing.T) {
	tree, _, _ := chainTree(t)
	snap := tree.Snapshot()
	for i := range snap.Objects {
		if snap.Objects[i].Index == 3 {
			snap.Objects[i].Elements[0].Groups = []int{1}
		}
	}

	_, err := Restore(snap)

	assert.ErrorIs(t, err, ErrDomainConstraint)
}

func TestObject_DetachedViews(t *testing.T) {
	obj := NewObject(1, "loose")

	assert.Nil(t, obj.Tree())
	assert.Nil(t, obj.AllObjects())
	assert.Nil(t, obj.AllElements())
}

func TestElement_AttachGeometry(t *testing.T) {
	e := NewElement("wall", []int{3, 1}, models.None())
	assert.False(t, e.HasGeometry())

	require.NoError(t, e.AttachGeometry(square(t)))
	assert.True(t, e.HasGeometry())
	assert.ErrorIs(t, e.AttachGeometry(square(t)), ErrDomainConstraint)
	assert.ErrorIs(t, NewElement("x", nil, models.None()).AttachGeometry(models.None()), ErrMissingGeometry)

	path := e.GroupPath()
	path[0] = 99
	assert.Equal(t, []int{3, 1}, e.GroupPath())
}

package services

import (
	"github.com/google/uuid"
	"github.com/stwalsh4118/artscene/internal/models"
	"github.com/stwalsh4118/artscene/internal/scene"
)

// SceneInfo summarises an open scene.
type SceneInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Objects  int    `json:"objects"`
	Elements int    `json:"elements"`
	Skipped  int    `json:"skipped,omitempty"`
}

// ObjectView is a detached copy of one object and where it sits.
type ObjectView struct {
	Index       int       `json:"index"`
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Parent      int       `json:"parent"`
	Depth       int       `json:"depth"`
	Floor       *int      `json:"floor,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	Annotations *string   `json:"annotations,omitempty"`
	Elements    int       `json:"elements"`
}

// ElementView is a detached copy of one element.
type ElementView struct {
	ID       uuid.UUID       `json:"id"`
	Type     string          `json:"type"`
	Groups   []int           `json:"groups"`
	Geometry models.Geometry `json:"geometry"`
	Owner    int             `json:"owner"`
}

// TreeNode is one object of a nested tree listing.
type TreeNode struct {
	ObjectView
	Children []TreeNode `json:"children"`
}

// SceneTree is a whole scene as nested objects under the root.
type SceneTree struct {
	SceneInfo
	Roots []TreeNode `json:"roots"`
}

func objectView(t *scene.Tree, obj *scene.Object) ObjectView {
	v := ObjectView{
		Index:       obj.Index(),
		ID:          obj.ID(),
		Name:        obj.Name,
		Parent:      scene.RootKey,
		Floor:       clonePtr(obj.Floor),
		Height:      clonePtr(obj.Height),
		Annotations: clonePtr(obj.Annotations),
		Elements:    len(obj.Elements()),
	}
	if p, err := t.Parent(obj.Index()); err == nil && p != nil {
		v.Parent = p.Index()
	}
	v.Depth, _ = t.Depth(obj.Index())
	return v
}

func objectViews(t *scene.Tree, objs []*scene.Object) []ObjectView {
	out := make([]ObjectView, 0, len(objs))
	for _, o := range objs {
		out = append(out, objectView(t, o))
	}
	return out
}

func elementView(e *scene.Element) ElementView {
	v := ElementView{
		ID:       e.ID(),
		Type:     e.Type(),
		Groups:   e.GroupPath(),
		Geometry: e.Geometry(),
		Owner:    scene.RootKey,
	}
	if o := e.Owner(); o != nil {
		v.Owner = o.Index()
	}
	return v
}

func elementViews(elems []*scene.Element) []ElementView {
	out := make([]ElementView, 0, len(elems))
	for _, e := range elems {
		out = append(out, elementView(e))
	}
	return out
}

func treeNodes(t *scene.Tree, key int) []TreeNode {
	children, err := t.Children(key)
	if err != nil {
		return nil
	}
	out := make([]TreeNode, 0, len(children))
	for _, c := range children {
		out = append(out, TreeNode{
			ObjectView: objectView(t, c),
			Children:   treeNodes(t, c.Index()),
		})
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package scene

import (
	"fmt"
	"io"
	"strings"
)

// Render writes the tree as indented text, one object per line:
//
//	root
//	├── 0 site (1 elements)
//	│   └── 3 tower A (4 elements) floor=12 height=36.5
//	└── 7 annotations
func (t *Tree) Render(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "root"); err != nil {
		return err
	}
	return renderChildren(w, t.root, "")
}

// String returns the rendered tree.
func (t *Tree) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func renderChildren(w io.Writer, n *node, prefix string) error {
	for i, c := range n.children {
		branch, next := "├── ", "│   "
		if i == len(n.children)-1 {
			branch, next = "└── ", "    "
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", prefix, branch, label(c.obj)); err != nil {
			return err
		}
		if err := renderChildren(w, c, prefix+next); err != nil {
			return err
		}
	}
	return nil
}

func label(o *Object) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", o.index)
	if o.Name != "" {
		fmt.Fprintf(&sb, " %s", o.Name)
	}
	if len(o.elements) > 0 {
		fmt.Fprintf(&sb, " (%d elements)", len(o.elements))
	}
	if o.Floor != nil {
		fmt.Fprintf(&sb, " floor=%d", *o.Floor)
	}
	if o.Height != nil {
		fmt.Fprintf(&sb, " height=%g", *o.Height)
	}
	return sb.String()
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/artscene/internal/scene"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// treeNode is the serialised form of one object and its subtree.
type treeNode struct {
	Index       int        `json:"index" yaml:"index"`
	Name        string     `json:"name,omitempty" yaml:"name,omitempty"`
	Floor       *int       `json:"floor,omitempty" yaml:"floor,omitempty"`
	Height      *float64   `json:"height,omitempty" yaml:"height,omitempty"`
	Annotations *string    `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Elements    []string   `json:"elements,omitempty" yaml:"elements,omitempty"`
	Children    []treeNode `json:"children,omitempty" yaml:"children,omitempty"`
}

func newTreeCommand(opts *options) *cobra.Command {
	var format, under string

	cmd := &cobra.Command{
		Use:   "tree <drawing>",
		Short: "Print the object hierarchy of a drawing export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.load(args[0])
			if err != nil {
				return err
			}
			return writeTree(cmd.OutOrStdout(), res.Tree, under, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	cmd.Flags().StringVar(&under, "under", "", "only print the subtree of this object (index or name)")
	return cmd
}

func writeTree(w io.Writer, t *scene.Tree, under, format string) error {
	key := scene.RootKey
	if under != "" {
		obj, err := t.Resolve(under)
		if err != nil {
			return err
		}
		key = obj.Index()
	}

	switch format {
	case formatText:
		if key == scene.RootKey {
			return t.Render(w)
		}
		return renderSubtree(w, t, key)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(nodesFor(t, key))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(nodesFor(t, key)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// nodesFor returns the object at key with its subtree, or every top-level
// object when key is the root.
func nodesFor(t *scene.Tree, key int) []treeNode {
	if key == scene.RootKey {
		return children(t, scene.RootKey)
	}
	obj, _ := t.Find(key)
	return []treeNode{toNode(t, obj)}
}

func children(t *scene.Tree, key int) []treeNode {
	objs, _ := t.Children(key)
	out := make([]treeNode, 0, len(objs))
	for _, o := range objs {
		out = append(out, toNode(t, o))
	}
	return out
}

func toNode(t *scene.Tree, o *scene.Object) treeNode {
	n := treeNode{
		Index:       o.Index(),
		Name:        o.Name,
		Floor:       o.Floor,
		Height:      o.Height,
		Annotations: o.Annotations,
		Children:    children(t, o.Index()),
	}
	for _, e := range o.Elements() {
		n.Elements = append(n.Elements, fmt.Sprintf("%s %s", e.Type(), e.Geometry().Kind()))
	}
	return n
}

// renderSubtree prints the object at key and everything under it, indented
// by depth below it.
func renderSubtree(w io.Writer, t *scene.Tree, key int) error {
	base, err := t.Depth(key)
	if err != nil {
		return err
	}
	objs, err := t.ObjectsUnder(key)
	if err != nil {
		return err
	}
	for _, o := range objs {
		d, _ := t.Depth(o.Index())
		indent := ""
		for i := base; i < d; i++ {
			indent += "  "
		}
		if _, err := fmt.Fprintf(w, "%s%d %s\n", indent, o.Index(), o.Name); err != nil {
			return err
		}
	}
	return nil
}

package cli

import (
	"fmt"

	difflib "github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

func newDiffCommand(opts *options) *cobra.Command {
	var context int

	cmd := &cobra.Command{
		Use:   "diff <drawing-a> <drawing-b>",
		Short: "Compare the object hierarchies of two drawing exports",
		Long: `Prints a unified diff of the rendered hierarchies. Nothing is printed
when both drawings give the same tree.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(args[0])
			if err != nil {
				return err
			}
			b, err := opts.load(args[1])
			if err != nil {
				return err
			}
			patch, err := unifiedTree(args[0], args[1], a.Tree.String(), b.Tree.String(), context)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), patch)
			return err
		},
	}

	cmd.Flags().IntVarP(&context, "context", "U", 3, "lines of context around each change")
	return cmd
}

// unifiedTree diffs two rendered trees. Equal trees give an empty patch.
func unifiedTree(aName, bName, a, b string, context int) (string, error) {
	if context < 0 {
		context = 0
	}
	u := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  context,
	}
	patch, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("failed to diff trees: %w", err)
	}
	return patch, nil
}

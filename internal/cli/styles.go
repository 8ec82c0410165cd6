package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/artscene/internal/style"
)

func newStylesCommand(opts *options) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "styles <drawing>",
		Short: "Create the style file of a drawing and list its layers",
		Long: `Creates <dir>/<drawing base name>.json with a default style for every
layer of the drawing. An existing style file is left as it is and its
content is listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.load(args[0])
			if err != nil {
				return err
			}
			path, created, err := style.EnsureFile(dir, args[0], res.Layers)
			if err != nil {
				return err
			}
			sheet, err := style.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := "existing"
			if created {
				state = "created"
			}
			fmt.Fprintf(out, "%s (%s)\n", path, state)

			layers := make([]string, 0, len(sheet))
			for l := range sheet {
				layers = append(layers, l)
			}
			sort.Strings(layers)
			for _, l := range layers {
				s := sheet[l]
				fmt.Fprintf(out, "  %-16s color=%s fill=%s opacity=%g width=%g visible=%t\n",
					l, s.Color, s.Fill, s.Opacity, s.LineWidth, s.Visible)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "styles", "directory holding style files")
	return cmd
}

// Package cli implements the scenectl command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/artscene/internal/drawing"
	"github.com/stwalsh4118/artscene/internal/logger"
)

// options are the global flags shared by every command.
type options struct {
	kinds    []string
	logLevel string
	log      *logger.Logger
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the scenectl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "scenectl",
		Short: "Inspect CAD drawing exports as scene trees",
		Long: `scenectl reads drawing exports, builds their object hierarchy and
prints, styles or compares the resulting scenes.

Examples:
  scenectl tree house.json
  scenectl tree house.json --format yaml --under kitchen
  scenectl styles house.json --dir styles
  scenectl diff before.json after.json`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.log = logger.NewWithLevel("development", opts.logLevel, cmd.ErrOrStderr())
			return nil
		},
	}

	root.PersistentFlags().StringSliceVar(&opts.kinds, "kinds", drawing.DefaultReadableKinds,
		"raw object kinds that become elements (curve, point, textdot)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(newTreeCommand(opts))
	root.AddCommand(newStylesCommand(opts))
	root.AddCommand(newDiffCommand(opts))
	return root
}

// load reads and assembles the drawing export at path.
func (o *options) load(path string) (*drawing.Result, error) {
	doc, err := drawing.Open(path)
	if err != nil {
		return nil, err
	}
	res, err := drawing.Assemble(doc, drawing.Options{ReadableKinds: o.kinds, Log: o.log})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

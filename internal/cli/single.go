package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-threshold/internal/threshold"
)

// outputPath returns the -o flag when given and the configured path otherwise.
func outputPath(cmd *cobra.Command, configured string) string {
	if cmd.Flags().Changed("output") {
		out, _ := cmd.Flags().GetString("output")
		return out
	}
	return configured
}

func (a *app) globalCommand() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "global <input>",
		Short: "Binarize with the iterative global threshold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := a.loadInput(args[0], region)
			if err != nil {
				return err
			}
			res, err := threshold.Global(buf, a.cfg.GlobalOptions())
			if err != nil {
				return err
			}

			out := outputPath(cmd, a.cfg.Output.Global)
			if err := save(res.Image, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "threshold=%.4f initial=%.1f iterations=%d -> %s\n",
				res.Threshold, res.Initial, res.Iterations, out)
			return nil
		},
	}

	fs := cmd.Flags()
	addGlobalFlags(fs)
	addInputFlags(fs, &region)
	fs.StringP("output", "o", "global_binary.png", "output path")
	return cmd
}

func (a *app) localCommand() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "local <input>",
		Short: "Binarize against the mean of each pixel's neighborhood",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := a.loadInput(args[0], region)
			if err != nil {
				return err
			}
			res, err := threshold.Local(buf, a.cfg.LocalOptions())
			if err != nil {
				return err
			}

			out := outputPath(cmd, a.cfg.Output.Local)
			if err := save(res.Image, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "window=%dx%d -> %s\n", res.Window.Width, res.Window.Height, out)
			return nil
		},
	}

	fs := cmd.Flags()
	addLocalFlags(fs)
	addInputFlags(fs, &region)
	fs.StringP("output", "o", "local_binary.png", "output path")
	return cmd
}

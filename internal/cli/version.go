package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-threshold/internal/ocr"
)

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// version must work even when the configuration is broken
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "image-threshold %s\n", a.info.Version)
			fmt.Fprintf(w, "  Build time: %s\n", a.info.BuildTime)
			fmt.Fprintf(w, "  Git commit: %s\n", a.info.GitCommit)
			if v := ocr.Version(); v != "" {
				fmt.Fprintf(w, "  Tesseract:  %s\n", v)
			} else {
				fmt.Fprintf(w, "  Tesseract:  not available\n")
			}
		},
	}
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-threshold/internal/ocr"
	"github.com/ironsheep/image-threshold/internal/threshold"
)

func (a *app) ocrCommand() *cobra.Command {
	var (
		region string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "ocr <input>",
		Short: "Compare how well Tesseract reads each binarization",
		Long: `Binarize the input both ways, run Tesseract on each result and report the
recognized text and mean word confidence. Requires a build with cgo and the
Tesseract libraries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ocr.Available() {
				return ocr.ErrUnavailable
			}

			buf, err := a.loadInput(args[0], region)
			if err != nil {
				return err
			}
			res, err := threshold.Both(buf, a.cfg.GlobalOptions(), a.cfg.LocalOptions())
			if err != nil {
				return err
			}
			scores, err := ocr.Compare(res.Global.Image, res.Local.Image, a.cfg.OCR.Language)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), scores)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "global (threshold=%.4f): confidence=%.3f words=%d\n",
				res.Global.Threshold, scores.Global.MeanConfidence, len(scores.Global.Words))
			fmt.Fprintf(w, "local (window=%dx%d): confidence=%.3f words=%d\n",
				res.Local.Window.Width, res.Local.Window.Height, scores.Local.MeanConfidence, len(scores.Local.Words))
			fmt.Fprintf(w, "preferred: %s\n", scores.Preferred)
			if text := strings.TrimSpace(preferredText(scores)); text != "" {
				fmt.Fprintf(w, "\n%s\n", text)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	addGlobalFlags(fs)
	addLocalFlags(fs)
	addInputFlags(fs, &region)
	fs.String("language", "eng", "Tesseract language code")
	fs.BoolVar(&asJSON, "json", false, "print the results as JSON")
	return cmd
}

func preferredText(c *ocr.Comparison) string {
	if c.Preferred == "local" {
		return c.Local.FullText
	}
	return c.Global.FullText
}

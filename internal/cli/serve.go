package cli

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-threshold/internal/server"
)

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Serve the thresholding tools over the Model Context Protocol. Requests are
read from stdin one JSON-RPC message per line and responses are written to
stdout. Configure it in your MCP client (e.g., Claude Desktop).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Debug() {
				log.Printf("Image threshold MCP server v%s (built %s, commit %s)",
					a.info.Version, a.info.BuildTime, a.info.GitCommit)
			}
			srv := server.New(a.cfg).WithVersion(a.info.Version)
			return srv.Serve(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	addGlobalFlags(fs)
	addLocalFlags(fs)
	addGrayFlag(fs)
	fs.String("language", "eng", "Tesseract language code for image_ocr_binarized")
	return cmd
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/petal-labs/imagine/cli/mcpserver"
	"github.com/petal-labs/imagine/output"
)

func (a *App) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve image generation over MCP stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the
generate_image tool. Logs go to stderr.

Example MCP client configuration:
  {"command": "imagine", "args": ["serve"], "env": {"GEMINI_API_KEY": "..."}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := mcpserver.New(mcpserver.Options{
				Generator:  a.newGenerator(a.cfg.Timeout, a.cfg.MaxAttempts),
				Writer:     output.NewWriter(),
				Config:     a.cfg,
				Credential: a.resolveCredential,
				Logger:     a.logger,
				Version:    Version,
			})
			a.logger.Info("mcp server listening on stdio")
			return srv.Serve(cmd.Context(), a.stdin, a.stdout)
		},
	}
}

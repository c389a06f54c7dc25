package cli

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	webgen "github.com/ROTl24/ai-web-generator/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, cleanup, err := webgen.New(cfg)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		defer cleanup()

		return server.ServeStdio(s)
	},
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	webgen "github.com/ROTl24/ai-web-generator/internal/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the webgen version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "webgen v%s\n", webgen.Version)
	},
}

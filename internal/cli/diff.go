package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ROTl24/ai-web-generator/internal/diff"
)

var diffCmd = &cobra.Command{
	Use:   "diff <base-dir> <target-dir>",
	Short: "Compare two project directories file by file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := diff.DiffFiles(args[0], args[1])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		showPatch, _ := cmd.Flags().GetBool("patch")
		changed := 0
		for _, e := range entries {
			if e.ChangeType == diff.Unchanged {
				continue
			}
			changed++
			fmt.Fprintf(out, "%-9s %s\n", e.ChangeType, e.Path)
			if showPatch && e.Patch != "" {
				fmt.Fprintln(out, e.Patch)
			}
		}
		fmt.Fprintf(out, "%d of %d files changed\n", changed, len(entries))
		return nil
	},
}

func init() {
	diffCmd.Flags().Bool("json", false, "Print the full diff entries as JSON")
	diffCmd.Flags().Bool("patch", false, "Print unified patches of modified text files")
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ROTl24/ai-web-generator/internal/archive"
)

var downloadCmd = &cobra.Command{
	Use:   "download <project-dir> [out.zip]",
	Short: "Pack a project directory into a zip, without dependencies and build output",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		out := filepath.Base(filepath.Clean(dir)) + ".zip"
		if len(args) == 2 {
			out = args[1]
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		n, err := archive.WriteZip(cmd.Context(), f, dir, archive.Excluded)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(out)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files\n", out, n)
		return nil
	},
}

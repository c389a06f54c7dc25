package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ROTl24/ai-web-generator/internal/builder"
	"github.com/ROTl24/ai-web-generator/internal/progress"
)

var buildCmd = &cobra.Command{
	Use:   "build <project-dir>",
	Short: "Install and build a generated Vue project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		b := builder.New(builder.Options{
			NPMCommand:     cfg.Build.NPMCommand,
			InstallTimeout: cfg.Build.InstallTimeout,
			BuildTimeout:   cfg.Build.BuildTimeout,
			Hub:            progress.NewHub(),
		})
		defer b.Close()

		return runBuild(cmd, b, args[0])
	},
}

// runBuild starts the build, prints its progress and fails when the
// build does.
func runBuild(cmd *cobra.Command, b *builder.Orchestrator, dir string) error {
	events, cancel, err := b.Watch(dir)
	if err != nil {
		return err
	}
	defer cancel()

	task := b.BuildAsync(dir)
	out := cmd.OutOrStdout()
	// The hub closes the channel after the finishing event.
	for e := range events {
		fmt.Fprintf(out, "[%3d%%] %-8s %s\n", e.Percent, e.Step, e.Message)
	}

	res, err := task.Wait(cmd.Context())
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("build failed: %s", res.Message)
	}
	fmt.Fprintf(out, "build succeeded: %s\n", res.Message)
	return nil
}

// Package cli defines the webgen command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ROTl24/ai-web-generator/internal/config"
	"github.com/ROTl24/ai-web-generator/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "webgen",
	Short: "AI web application generator",
	Long: `webgen turns chat requests into web applications. Every generation is
kept as a numbered version that can be previewed, compared and rolled back.

Run 'webgen serve' for the MCP server on stdio, or 'webgen http' for the
HTTP API with streaming generation and static previews.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"output-root": "output_root",
	"data-dir":    "data_dir",
	"deploy-host": "deploy_host",
	"log-level":   "log_level",
	"log-format":  "log_format",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(httpCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "Path to "+config.FileName+" (default: ./"+config.FileName+" or ~/.webgen/"+config.FileName+")")
	pf.String("output-root", "", "Directory generated code is written to")
	pf.String("data-dir", "", "Directory holding the database")
	pf.String("deploy-host", "", "Base URL of the static preview endpoint")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: json or text")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the configuration for cmd and configures logging.
// Flags win over env vars, which win over the config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
	}
	if f := cmd.Flags().Lookup("http-addr"); f != nil {
		if err := v.BindPFlag("http_addr", f); err != nil {
			return nil, fmt.Errorf("binding --http-addr: %w", err)
		}
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return cfg, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jgivc/pluginmaster/internal/app"
	"github.com/spf13/cobra"
)

var (
	cfgFileName string
	envFileName string
	workDir     string

	rootCmd = &cobra.Command{
		Use:           "pluginmaster",
		Short:         "Build pluginmaster.json from plugin manifests",
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `pluginmaster collects the manifest of every plugin folder under plugins/
(either <name>/<name>.json or <name>/latest.zip containing <name>.json),
trims and enriches it, and writes the catalog to pluginmaster.json.

LastUpdated of each entry is taken from the git history of the plugin files,
so the tool must run inside the repository checkout.

The branch used for download links is read from GITHUB_REF.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.New(cfgFileName, envFileName, workDir).Run(cmd.Context())
		},
	}
)

func init() {
	rootCmd.Flags().StringVarP(&cfgFileName, "config", "c", "config.yml", "path to config file")
	rootCmd.Flags().StringVar(&envFileName, "env-file", ".env", "path to dotenv file")
	rootCmd.Flags().StringVar(&workDir, "work-dir", "", "repository root (overrides work_dir from config)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

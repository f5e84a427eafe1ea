package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"umlreg/internal/config"
	"umlreg/internal/manifest"
	"umlreg/internal/paths"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize umlreg configuration",
	Long: `Creates a .umlreg/ directory with the default configuration and an example
MODELS.toml manifest in the project directory.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	cfgPath := config.Path(root)
	if _, err := os.Stat(cfgPath); err == nil && !initForce {
		fmt.Fprintln(out, "umlreg already initialized.")
		fmt.Fprintf(out, "Configuration at: %s\n", cfgPath)
		fmt.Fprintln(out, "\nRun 'umlreg init --force' to reinitialize.")
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if _, err := paths.EnsureLogsDir(root); err != nil {
		return err
	}

	manifestPath := resolvePath(root, cfg.Registry.ManifestPath)
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		if err := manifest.CreateExample(manifestPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Created %s\n", manifestPath)
	}

	fmt.Fprintf(out, "Initialized umlreg in %s\n", root)
	fmt.Fprintf(out, "Configuration at: %s\n", cfgPath)
	fmt.Fprintln(out, "\nDeclare models in the manifest or run 'umlreg load <resource> --declare'.")
	return nil
}

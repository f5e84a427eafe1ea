package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"umlreg/internal/version"
)

var (
	formatFlag  string
	failOnError bool
	rootFlag    string
	verbosity   int
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:   "umlreg",
	Short: "umlreg - UML model registry",
	Long: `umlreg loads UML class models from XMI documents, checks and resolves them,
and keeps the loaded models available by name from the command line and over HTTP.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("umlreg version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", string(FormatHuman), "Output format (human, json)")
	rootCmd.PersistentFlags().BoolVar(&failOnError, "fail-on-error", false, "Exit with status 1 when a load reports an ERROR")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
}

// projectRoot returns the absolute project directory.
func projectRoot() (string, error) {
	root := rootFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// outputFormat validates the --format flag.
func outputFormat() (OutputFormat, error) {
	switch OutputFormat(formatFlag) {
	case FormatHuman, FormatJSON:
		return OutputFormat(formatFlag), nil
	default:
		return "", fmt.Errorf("unsupported format: %s (want human or json)", formatFlag)
	}
}

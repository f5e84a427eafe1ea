package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"umlreg/internal/parser"
	"umlreg/internal/version"
)

// VersionResponseCLI describes the build.
type VersionResponseCLI struct {
	Version        string   `json:"version"`
	Commit         string   `json:"commit"`
	BuildDate      string   `json:"buildDate"`
	GoVersion      string   `json:"goVersion"`
	ParserVersions []string `json:"parserVersions"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}
		if format == FormatHuman {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return err
		}
		resp := &VersionResponseCLI{
			Version:   version.Version,
			Commit:    version.Commit,
			BuildDate: version.BuildDate,
			GoVersion: runtime.Version(),
		}
		for _, v := range parser.Versions() {
			resp.ParserVersions = append(resp.ParserVersions, string(v))
		}
		return writeResponse(cmd.OutOrStdout(), resp)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

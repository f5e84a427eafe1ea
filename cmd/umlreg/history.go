package main

import (
	"github.com/spf13/cobra"

	"umlreg/internal/errors"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <name>",
	Short: "Show the recorded load attempts of a model",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of attempts to show (0 shows all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	name := args[0]
	meta, err := env.registry.Declaration(ctx, name)
	if err != nil {
		return err
	}
	if meta == nil {
		return errors.Newf(errors.ModelNotFound, "no model named %q", name)
	}

	attempts, err := env.registry.History(ctx, name, historyLimit)
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), &HistoryResponseCLI{Model: name, Attempts: attempts})
}

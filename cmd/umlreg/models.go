package main

import (
	"github.com/spf13/cobra"

	"umlreg/internal/diag"
	"umlreg/internal/errors"
)

var modelsCheck bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List declared models",
	Long: `List the models declared in the manifest or loaded with 'umlreg load'.

With --check every model is loaded and its state and message counts are shown.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

var modelCmd = &cobra.Command{
	Use:   "model <name>",
	Short: "Load a declared model and show its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runModel,
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsCheck, "check", false, "Load every model and report its state")
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(modelCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	declared, err := env.registry.Declared(ctx)
	if err != nil {
		return err
	}
	resp := &ModelsResponseCLI{Manifest: env.manifestPath, Models: []ModelSummaryCLI{}}
	for _, meta := range declared {
		resp.Models = append(resp.Models, ModelSummaryCLI{
			Name:          meta.Name,
			Resource:      meta.Resource,
			ParserVersion: meta.ParserVersion,
			Origin:        string(meta.Origin),
			State:         "declared",
		})
	}

	var summaries []diag.Summary
	if modelsCheck {
		infos, err := env.registry.LoadAll(ctx)
		if err != nil {
			return err
		}
		for i, info := range infos {
			summary := info.Summary
			resp.Models[i].Summary = &summary
			resp.Models[i].State = "failed"
			if info.Loaded() {
				resp.Models[i].State = "loaded"
			}
			summaries = append(summaries, summary)
		}
	}

	if err := writeResponse(cmd.OutOrStdout(), resp); err != nil {
		return err
	}
	return checkErrors(summaries...)
}

func runModel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	info, ok := env.registry.GetModel(ctx, args[0])
	if !ok {
		return errors.Newf(errors.ModelNotFound, "no model named %q", args[0])
	}
	if err := writeResponse(cmd.OutOrStdout(), newModelResponse(info)); err != nil {
		return err
	}
	if !info.Loaded() {
		return errLoadReportedErrors
	}
	return checkErrors(info.Summary)
}

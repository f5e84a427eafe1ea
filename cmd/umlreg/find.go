package main

import (
	"github.com/spf13/cobra"

	"umlreg/internal/errors"
	"umlreg/internal/registry"
)

var findModel string

var findCmd = &cobra.Command{
	Use:   "find <xmiId>",
	Short: "Find an element by XMI id across the declared models",
	Long: `Load the declared models and look up an element by its XMI id.
Models are searched in name order and the first match is shown.

Examples:
  umlreg find EAID_C2
  umlreg find d1 --model sample`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringVar(&findModel, "model", "", "Only search this model")
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	xmiID := args[0]
	var ref *registry.ElementRef
	if findModel != "" {
		info, ok := env.registry.GetModel(ctx, findModel)
		if !ok {
			return errors.Newf(errors.ModelNotFound, "no model named %q", findModel)
		}
		if info.Loaded() {
			if id, found := info.Model.Find(xmiID); found {
				ref = &registry.ElementRef{
					ModelName:     info.Meta.Name,
					Model:         info.Model,
					Element:       info.Model.Get(id),
					QualifiedName: info.Model.QualifiedName(id),
				}
			}
		}
	} else {
		if _, err := env.registry.LoadAll(ctx); err != nil {
			return err
		}
		ref, _ = env.registry.FindElementByID(xmiID)
	}
	if ref == nil {
		return errors.Newf(errors.ElementNotFound, "no element with XMI id %q", xmiID)
	}
	return writeResponse(cmd.OutOrStdout(), newElementResponse(ref))
}

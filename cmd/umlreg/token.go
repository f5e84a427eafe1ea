package main

import (
	"github.com/spf13/cobra"

	"umlreg/internal/auth"
	"umlreg/internal/config"
)

var tokenSave bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the API reload token",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a new reload token",
	Long: `Generate a random bearer token for POST /models/{name}/reload and print it
with its bcrypt hash. Only the hash belongs in the configuration.

Examples:
  umlreg token create
  umlreg token create --save`,
	Args: cobra.NoArgs,
	RunE: runTokenCreate,
}

func init() {
	tokenCreateCmd.Flags().BoolVar(&tokenSave, "save", false, "Store the hash as api.tokenHash in the project config")
	tokenCmd.AddCommand(tokenCreateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	token, err := auth.GenerateToken()
	if err != nil {
		return err
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		return err
	}

	resp := &TokenResponseCLI{Token: token, Hash: hash}
	if tokenSave {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		cfg, err := config.LoadConfig(root)
		if err != nil {
			return err
		}
		cfg.API.TokenHash = hash
		if err := cfg.Save(root); err != nil {
			return err
		}
		resp.Saved = true
	}
	return writeResponse(cmd.OutOrStdout(), resp)
}

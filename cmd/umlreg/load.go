package main

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"umlreg/internal/config"
	"umlreg/internal/manifest"
	"umlreg/internal/paths"
	"umlreg/internal/storage"
)

var (
	loadParserVersion string
	loadName          string
	loadDescription   string
	loadDeclare       bool
	loadCharset       string
	loadStripInvalid  bool
)

var loadCmd = &cobra.Command{
	Use:   "load <resource>",
	Short: "Load a model and record it in the registry",
	Long: `Parse an XMI document, check it and store the result in the registry.

The resource is a file path, a file:// URL or an http(s):// URL. Files ending in
.gz or .zst are decompressed.

Examples:
  umlreg load models/sample.xmi
  umlreg load legacy.xmi --parser-version v1 --name legacy --declare
  umlreg load https://models.example.org/domain.xmi.gz --fail-on-error`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadParserVersion, "parser-version", "", "Parser version, v1 (XMI 1.x) or v2 (XMI 2.x); default from config")
	loadCmd.Flags().StringVar(&loadName, "name", "", "Model name (default: derived from the resource)")
	loadCmd.Flags().StringVar(&loadDescription, "description", "", "Model description")
	loadCmd.Flags().BoolVar(&loadDeclare, "declare", false, "Also declare the model in the manifest")
	loadCmd.Flags().StringVar(&loadCharset, "charset", "", "Document charset (default: from config, auto-detected)")
	loadCmd.Flags().BoolVar(&loadStripInvalid, "strip-invalid", false, "Remove characters XML does not allow before parsing")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	env, err := openEnvironment(cmd.Context(), func(cfg *config.Config) {
		if loadCharset != "" {
			cfg.Parser.Charset = loadCharset
		}
		if loadStripInvalid {
			cfg.Parser.StripInvalidChars = true
		}
	})
	if err != nil {
		return err
	}
	defer env.Close()

	resource := args[0]
	if !paths.IsRemote(resource) {
		if resource, err = filepath.Abs(resource); err != nil {
			return err
		}
	}
	name := loadName
	if name == "" {
		name = modelNameFor(resource)
	}
	version := loadParserVersion
	if version == "" {
		version = env.cfg.Parser.Version
	}

	info, loadErr := env.registry.LoadAndSave(cmd.Context(), storage.ModelMetaData{
		Name:          name,
		Resource:      resource,
		ParserVersion: version,
		Description:   loadDescription,
		Origin:        storage.OriginCLI,
	})
	if info == nil {
		return loadErr
	}

	resp := newModelResponse(info)
	if loadDeclare && loadErr == nil {
		err := manifest.Declare(env.manifestPath, manifest.ModelDeclaration{
			Name:        name,
			Resource:    resource,
			Version:     version,
			Description: loadDescription,
		})
		if err != nil {
			return err
		}
		resp.Declared = env.manifestPath
	}

	if err := writeResponse(cmd.OutOrStdout(), resp); err != nil {
		return err
	}
	if loadErr != nil {
		return errLoadReportedErrors
	}
	return checkErrors(info.Summary)
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// modelNameFor derives a registry name from a resource, e.g.
// "models/Order Entry.xmi.gz" becomes "Order-Entry".
func modelNameFor(resource string) string {
	base := resource
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	for _, ext := range []string{".gz", ".zst", ".xmi", ".xml", ".uml"} {
		base = strings.TrimSuffix(base, ext)
	}
	name := strings.Trim(invalidNameChars.ReplaceAllString(base, "-"), "-")
	if name == "" {
		return "model"
	}
	return name
}

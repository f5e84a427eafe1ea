package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"umlreg/internal/diag"
	"umlreg/internal/errors"
	"umlreg/internal/export"
	"umlreg/internal/parser"
	"umlreg/internal/paths"
	"umlreg/internal/resource"
	"umlreg/internal/uml"
)

var (
	exportFormat        string
	exportOutput        string
	exportProblemsOnly  bool
	exportNoMembers     bool
	exportNoMessages    bool
	exportOrganize      bool
	exportParserVersion string
)

var exportCmd = &cobra.Command{
	Use:   "export <resource|name>",
	Short: "Export a model as a text outline, JSON or YAML",
	Long: `Export the package tree of a model with statuses, resolved references,
relationships and load messages.

The argument is the name of a declared model or a resource to load without
recording it in the registry.

Examples:
  umlreg export sample
  umlreg export models/sample.xmi --export-format yaml --output sample.yaml
  umlreg export sample --problems-only
  umlreg export sample --organize`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "export-format", export.FormatText, "Export format (text, json, yaml)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
	exportCmd.Flags().BoolVar(&exportProblemsOnly, "problems-only", false, "Only include classes that are not ACTIVE")
	exportCmd.Flags().BoolVar(&exportNoMembers, "no-members", false, "Leave out class members")
	exportCmd.Flags().BoolVar(&exportNoMessages, "no-messages", false, "Leave out load messages")
	exportCmd.Flags().BoolVar(&exportOrganize, "organize", false, "Show the package overview instead of the full tree")
	exportCmd.Flags().StringVar(&exportParserVersion, "parser-version", "", "Parser version for a resource argument; default from config")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	model, msgs, src, err := modelForExport(ctx, env, args[0])
	if err != nil {
		return err
	}

	opts := export.ExportOptions{
		IncludeMembers:  !exportNoMembers,
		IncludeMessages: !exportNoMessages,
		ProblemsOnly:    exportProblemsOnly,
		Format:          exportFormat,
	}
	exporter := export.NewExporter(env.logger)
	snapshot, err := exporter.Export(model, msgs, src, opts)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer f.Close()
		out = f
	}

	if exportOrganize {
		organizer := export.NewOrganizer(snapshot)
		org := organizer.Organize()
		switch exportFormat {
		case export.FormatText:
			_, err = io.WriteString(out, organizer.FormatOrganizedText(org))
		case export.FormatJSON:
			var data string
			if data, err = formatJSON(org); err == nil {
				_, err = fmt.Fprintln(out, data)
			}
		default:
			err = fmt.Errorf("--organize supports the text and json formats, not %q", exportFormat)
		}
	} else {
		err = exporter.Write(out, snapshot, opts)
	}
	if err != nil {
		return err
	}
	if exportOutput != "" {
		env.logger.Info("Exported model", "model", src.Name, "output", exportOutput)
	}
	return checkErrors(snapshot.Metadata.Summary)
}

// modelForExport returns the cached model named arg, or loads arg as a
// resource without recording it.
func modelForExport(ctx context.Context, env *environment, arg string) (*uml.Model, []diag.Message, export.Source, error) {
	meta, err := env.registry.Declaration(ctx, arg)
	if err != nil {
		return nil, nil, export.Source{}, err
	}
	if meta != nil {
		info, _ := env.registry.GetModel(ctx, arg)
		if !info.Loaded() {
			return nil, nil, export.Source{}, errors.Newf(errors.NoResult,
				"model %q did not load; run 'umlreg model %s' for its messages", arg, arg)
		}
		src := export.Source{Name: info.Meta.Resource, Version: info.Meta.ParserVersion, Fingerprint: info.Attempt.Fingerprint}
		return info.Model, info.Messages, src, nil
	}

	if !resource.Exists(arg) {
		return nil, nil, export.Source{}, errors.Newf(errors.ModelNotFound, "%q is neither a declared model nor a readable resource", arg)
	}
	name := arg
	if !paths.IsRemote(name) {
		if name, err = filepath.Abs(name); err != nil {
			return nil, nil, export.Source{}, err
		}
	}
	res, err := loadTransient(ctx, env, name)
	if err != nil {
		return nil, nil, export.Source{}, err
	}
	src := export.Source{Name: name, Version: string(res.Version), Fingerprint: res.Fingerprint}
	return res.Model, res.Messages.All(), src, nil
}

// loadTransient parses a resource with the project's parser settings.
func loadTransient(ctx context.Context, env *environment, name string) (*parser.Result, error) {
	versionTag := exportParserVersion
	if versionTag == "" {
		versionTag = env.cfg.Parser.Version
	}
	version, err := parser.ParseVersion(versionTag)
	if err != nil {
		return nil, err
	}
	opts := parserOptions(env.cfg, env.terms)
	opts.Logger = env.logger
	p, err := parser.New(version, opts)
	if err != nil {
		return nil, err
	}

	rc, err := resource.NewOpener(resource.DefaultTimeout, env.logger).Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return p.Parse(ctx, parser.Source{Name: name, Reader: rc})
}

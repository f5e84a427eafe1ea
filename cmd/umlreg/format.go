package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"umlreg/internal/diag"
	"umlreg/internal/errors"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// errLoadReportedErrors is returned by loading commands under --fail-on-error.
// The output already explains it, so it is not printed again.
var errLoadReportedErrors = stderrors.New("load reported errors")

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// writeResponse formats resp with the --format flag and prints it.
func writeResponse(w io.Writer, resp interface{}) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// checkErrors applies --fail-on-error to the summaries of finished loads.
func checkErrors(summaries ...diag.Summary) error {
	if !failOnError {
		return nil
	}
	for _, s := range summaries {
		if s.Errors > 0 {
			return errLoadReportedErrors
		}
	}
	return nil
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ModelResponseCLI:
		return formatModelHuman(v), nil
	case *ModelsResponseCLI:
		return formatModelsHuman(v), nil
	case *ElementResponseCLI:
		return formatElementHuman(v), nil
	case *HistoryResponseCLI:
		return formatHistoryHuman(v), nil
	case *TokenResponseCLI:
		return formatTokenHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

func formatModelHuman(resp *ModelResponseCLI) string {
	var b strings.Builder

	state := color.GreenString("loaded")
	if !resp.Loaded {
		state = color.RedString("failed")
	}
	b.WriteString(fmt.Sprintf("Model %s (%s)\n", resp.Name, state))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString(fmt.Sprintf("  Resource:  %s\n", resp.Resource))
	b.WriteString(fmt.Sprintf("  Parser:    %s\n", resp.ParserVersion))
	if resp.Description != "" {
		b.WriteString(fmt.Sprintf("  About:     %s\n", resp.Description))
	}
	if resp.Loaded {
		b.WriteString(fmt.Sprintf("  UML model: %s\n", resp.ModelName))
		b.WriteString(fmt.Sprintf("  Contents:  %d packages, %d classes, %d relationships (%d elements)\n",
			resp.Packages, resp.Classes, resp.Relationships, resp.Elements))
		b.WriteString(fmt.Sprintf("  Checksum:  %s\n", shortHash(resp.Fingerprint)))
	}
	b.WriteString(fmt.Sprintf("  Took:      %dms\n", resp.DurationMs))
	if resp.Declared != "" {
		b.WriteString(fmt.Sprintf("  Declared in %s\n", resp.Declared))
	}

	b.WriteString("\n" + formatSummary(resp.Summary) + "\n")
	for _, m := range resp.Messages {
		b.WriteString("  " + formatMessage(m) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatModelsHuman(resp *ModelsResponseCLI) string {
	if len(resp.Models) == 0 {
		return fmt.Sprintf("No models declared in %s", resp.Manifest)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Models (%d)\n", len(resp.Models)))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	for _, m := range resp.Models {
		state := m.State
		switch m.State {
		case "loaded":
			state = color.GreenString(state)
		case "failed":
			state = color.RedString(state)
		}
		b.WriteString(fmt.Sprintf("  %-20s %-3s %-8s %s\n", m.Name, m.ParserVersion, state, m.Resource))
		if m.Summary != nil && (m.Summary.Errors > 0 || m.Summary.Warnings > 0) {
			b.WriteString(fmt.Sprintf("  %20s %s\n", "", formatSummary(*m.Summary)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatElementHuman(resp *ElementResponseCLI) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s [%s]\n", resp.Kind, resp.QualifiedName, formatStatus(resp.Status)))
	b.WriteString(fmt.Sprintf("  Model:  %s\n", resp.Model))
	b.WriteString(fmt.Sprintf("  XMI id: %s\n", resp.XMIID))
	if resp.Parent != "" {
		b.WriteString(fmt.Sprintf("  Parent: %s\n", resp.Parent))
	}
	if resp.TypeName != "" {
		b.WriteString(fmt.Sprintf("  Type:   %s\n", resp.TypeName))
	}
	if resp.SuperClass != "" {
		b.WriteString(fmt.Sprintf("  Super:  %s\n", resp.SuperClass))
	}
	if resp.Concept != "" {
		b.WriteString(fmt.Sprintf("  Concept: %s\n", resp.Concept))
	}
	if len(resp.Children) > 0 {
		b.WriteString(fmt.Sprintf("  Children: %s\n", strings.Join(resp.Children, ", ")))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHistoryHuman(resp *HistoryResponseCLI) string {
	if len(resp.Attempts) == 0 {
		return fmt.Sprintf("No load attempts recorded for %s", resp.Model)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Load history of %s (%d)\n", resp.Model, len(resp.Attempts)))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	for _, a := range resp.Attempts {
		mark := color.GreenString("✓")
		if !a.Success {
			mark = color.RedString("✗")
		}
		b.WriteString(fmt.Sprintf("%s %s  %s  %5dms  %d elements  %d errors, %d warnings\n",
			mark, a.StartedAt.Local().Format(time.DateTime), a.ParserVersion,
			a.Duration.Milliseconds(), a.Elements, a.Errors, a.Warnings))
		if a.Failure != "" {
			b.WriteString(fmt.Sprintf("    %s\n", a.Failure))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatTokenHuman(resp *TokenResponseCLI) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Token: %s\n", resp.Token))
	b.WriteString(fmt.Sprintf("Hash:  %s\n", resp.Hash))
	if resp.Saved {
		b.WriteString("\nThe hash was saved as api.tokenHash. Restart the server to use it.\n")
	} else {
		b.WriteString("\nSet api.tokenHash to the hash to require this token for reloads.\n")
	}
	b.WriteString("The token is not stored and cannot be shown again.")
	return b.String()
}

func formatSummary(s diag.Summary) string {
	parts := []string{
		colorBySeverity(diag.Error, fmt.Sprintf("%d errors", s.Errors)),
		colorBySeverity(diag.Warning, fmt.Sprintf("%d warnings", s.Warnings)),
		fmt.Sprintf("%d infos", s.Infos),
	}
	return strings.Join(parts, ", ")
}

func formatMessage(m diag.Message) string {
	line := colorBySeverity(m.Severity, string(m.Severity)) + ": " + m.Text
	if m.Code != "" {
		line += " (" + m.Code + ")"
	}
	return line
}

func formatStatus(status string) string {
	switch status {
	case "ERROR":
		return color.RedString(status)
	case "IN_PROGRESS":
		return color.YellowString(status)
	default:
		return status
	}
}

func colorBySeverity(sev diag.Severity, s string) string {
	switch sev {
	case diag.Error:
		return color.RedString(s)
	case diag.Warning:
		return color.YellowString(s)
	default:
		return s
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// printError reports a command failure with any suggested fixes.
func printError(w io.Writer, err error) {
	if stderrors.Is(err, errLoadReportedErrors) {
		return
	}
	e, ok := errors.As(err)
	if !ok {
		fmt.Fprintf(w, "%s %v\n", color.RedString("Error:"), err)
		return
	}
	fmt.Fprintf(w, "%s %v\n", color.RedString("Error:"), err)
	for _, fix := range e.SuggestedFixes() {
		switch {
		case fix.Command != "":
			fmt.Fprintf(w, "  try: %s\n", fix.Command)
		case fix.URL != "":
			fmt.Fprintf(w, "  see: %s\n", fix.URL)
		case fix.Description != "":
			fmt.Fprintf(w, "  hint: %s\n", fix.Description)
		}
	}
}

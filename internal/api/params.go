package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"umlreg/internal/diag"
	"umlreg/internal/export"
)

// QueryParamInt extracts a non-negative integer query parameter with a default value
func QueryParamInt(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %w", name, err)
	}
	if i < 0 {
		return 0, fmt.Errorf("%s must be non-negative", name)
	}
	return i, nil
}

// QueryParamBool extracts a boolean query parameter with a default value
func QueryParamBool(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1" || val == "yes"
}

// parseMinSeverity reads the optional severity filter; empty means everything
func parseMinSeverity(r *http.Request) (diag.Severity, error) {
	val := r.URL.Query().Get("severity")
	if val == "" {
		return diag.Info, nil
	}
	return diag.ParseSeverity(val)
}

// parseExportOptions reads format, members, messages and problemsOnly
func parseExportOptions(r *http.Request) (export.ExportOptions, error) {
	opts := export.DefaultOptions()
	opts.Format = export.FormatJSON
	if f := strings.ToLower(r.URL.Query().Get("format")); f != "" {
		switch f {
		case export.FormatJSON, export.FormatYAML, export.FormatText:
			opts.Format = f
		default:
			return opts, fmt.Errorf("invalid format %q: must be json, yaml or text", f)
		}
	}
	opts.IncludeMembers = QueryParamBool(r, "members", opts.IncludeMembers)
	opts.IncludeMessages = QueryParamBool(r, "messages", opts.IncludeMessages)
	opts.ProblemsOnly = QueryParamBool(r, "problemsOnly", false)
	return opts, nil
}

var contentTypes = map[string]string{
	export.FormatJSON: "application/json",
	export.FormatYAML: "application/yaml",
	export.FormatText: "text/plain; charset=utf-8",
}

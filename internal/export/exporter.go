package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"umlreg/internal/diag"
	"umlreg/internal/slogutil"
	"umlreg/internal/uml"
)

// Source describes where an exported model was loaded from.
type Source struct {
	Name        string
	Version     string
	Fingerprint string
}

// Exporter builds model snapshots.
type Exporter struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter creates a new exporter.
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Exporter{logger: logger, now: time.Now}
}

// Export builds the snapshot of m. msgs are the messages of the load.
func (e *Exporter) Export(m *uml.Model, msgs []diag.Message, src Source, opts ExportOptions) (*ModelExport, error) {
	if m == nil {
		return nil, fmt.Errorf("no model to export")
	}

	out := &ModelExport{
		Metadata: ExportMetadata{
			Model:        m.Name(),
			XMIID:        m.Root().XMIID,
			Source:       src.Name,
			Version:      src.Version,
			Fingerprint:  src.Fingerprint,
			Generated:    e.now().UTC().Format(time.RFC3339),
			ElementCount: m.Len(),
			Summary:      summarize(msgs),
		},
	}

	for _, pkgID := range m.Packages() {
		pkg := m.Get(pkgID)
		ep := ExportPackage{
			Name:          pkg.Name,
			QualifiedName: m.QualifiedName(pkgID),
			XMIID:         pkg.XMIID,
			Status:        pkg.Status.String(),
		}
		for _, childID := range pkg.Children {
			child := m.Get(childID)
			if !child.Kind.IsClass() {
				continue
			}
			out.Metadata.ClassCount++
			ec := exportClass(m, child, opts)
			if opts.ProblemsOnly && !hasProblem(ec) {
				continue
			}
			ep.Classes = append(ep.Classes, ec)
		}
		out.Metadata.PackageCount++
		if opts.ProblemsOnly && len(ep.Classes) == 0 {
			continue
		}
		out.Packages = append(out.Packages, ep)
	}
	sort.SliceStable(out.Packages, func(i, j int) bool {
		return out.Packages[i].QualifiedName < out.Packages[j].QualifiedName
	})

	for _, r := range m.Relationships() {
		out.Relationships = append(out.Relationships, ExportRelationship{
			XMIID:  r.XMIID,
			Type:   string(r.Type),
			Source: r.SourceID,
			Target: r.TargetID,
			Status: r.Status.String(),
		})
	}
	if opts.IncludeMessages {
		out.Messages = msgs
	}

	e.logger.Debug("Exported model",
		"model", m.Name(),
		"packages", out.Metadata.PackageCount,
		"classes", out.Metadata.ClassCount,
	)
	return out, nil
}

func exportClass(m *uml.Model, c *uml.Element, opts ExportOptions) ExportClass {
	ec := ExportClass{
		Kind:       c.Kind.String(),
		Name:       c.Name,
		XMIID:      c.XMIID,
		Status:     c.Status.String(),
		Primitive:  c.IsPrimitive(),
		Stereotype: c.Stereotype,
		SuperClass: c.SuperClassName,
	}
	if c.SuperClass != uml.NoElement {
		ec.SuperClass = m.QualifiedName(c.SuperClass)
	}
	if c.Kind == uml.KindLocalValueDomain && !c.Concept.IsZero() {
		ec.Concept = &ExportConcept{
			Namespace: c.Concept.Namespace,
			Property:  c.Concept.PropertyName,
			Value:     c.Concept.PropertyValue,
		}
		if rc := c.ResolvedConcept; rc != nil {
			ec.Concept.ID = rc.ID
			ec.Concept.Name = rc.Name
		}
		for _, v := range c.ValueSet {
			ec.Concept.ValueSet = append(ec.Concept.ValueSet, v.Name)
		}
	}
	if !opts.IncludeMembers {
		return ec
	}
	for _, memberID := range m.Members(c.ID) {
		member := m.Get(memberID)
		em := ExportMember{
			Name:   member.Name,
			XMIID:  member.XMIID,
			Type:   member.TypeName,
			Status: member.Status.String(),
		}
		if member.ResolvedClass != uml.NoElement {
			em.ResolvedType = m.QualifiedName(member.ResolvedClass)
		}
		ec.Members = append(ec.Members, em)
	}
	return ec
}

func healthy(status string) bool {
	return status == uml.Active.String() || status == uml.ActiveWithInfo.String()
}

func hasProblem(c ExportClass) bool {
	if !healthy(c.Status) {
		return true
	}
	for _, m := range c.Members {
		if !healthy(m.Status) {
			return true
		}
	}
	return false
}

func summarize(msgs []diag.Message) diag.Summary {
	var s diag.Summary
	for _, m := range msgs {
		switch m.Severity {
		case diag.Error:
			s.Errors++
		case diag.Warning:
			s.Warnings++
		case diag.Info:
			s.Infos++
		}
	}
	return s
}

// Write renders export in the format named by opts.Format.
func (e *Exporter) Write(w io.Writer, export *ModelExport, opts ExportOptions) error {
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(export)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(export); err != nil {
			return err
		}
		return enc.Close()
	case "", FormatText:
		_, err := io.WriteString(w, e.FormatText(export, opts))
		return err
	default:
		return fmt.Errorf("unknown export format %q (want text, json or yaml)", opts.Format)
	}
}

// FormatText formats the export as an indented outline
func (e *Exporter) FormatText(export *ModelExport, opts ExportOptions) string {
	var sb strings.Builder

	md := export.Metadata
	sb.WriteString(fmt.Sprintf("# Model: %s (%s)\n", md.Model, md.XMIID))
	if md.Source != "" {
		sb.WriteString(fmt.Sprintf("# Source: %s [%s]\n", md.Source, md.Version))
	}
	sb.WriteString(fmt.Sprintf("# Generated: %s\n", md.Generated))
	sb.WriteString(fmt.Sprintf("# Packages: %d | Classes: %d | Elements: %d\n", md.PackageCount, md.ClassCount, md.ElementCount))
	sb.WriteString(fmt.Sprintf("# Messages: %d errors, %d warnings, %d infos\n\n", md.Summary.Errors, md.Summary.Warnings, md.Summary.Infos))

	for _, pkg := range export.Packages {
		sb.WriteString(fmt.Sprintf("## %s\n", pkg.QualifiedName))
		for _, c := range pkg.Classes {
			sb.WriteString(formatClassLine(c) + "\n")
			for _, m := range c.Members {
				sb.WriteString(formatMemberLine(m) + "\n")
			}
		}
		sb.WriteString("\n")
	}

	if len(export.Relationships) > 0 {
		sb.WriteString("## relationships\n")
		for _, r := range export.Relationships {
			sb.WriteString(fmt.Sprintf("    %s %s -> %s  [%s]\n", r.Type, r.Source, r.Target, r.Status))
		}
		sb.WriteString("\n")
	}

	if len(export.Messages) > 0 {
		sb.WriteString("## messages\n")
		for _, m := range export.Messages {
			sb.WriteString("    " + m.String() + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n")
	sb.WriteString("Legend:\n")
	sb.WriteString("  $  = class\n")
	sb.WriteString("  %  = local value domain\n")
	sb.WriteString("  .  = member\n")
	if opts.IncludeMembers {
		sb.WriteString("  -> = resolved type or superclass\n")
	}

	return sb.String()
}

func formatClassLine(c ExportClass) string {
	prefix := "$"
	if c.Kind == uml.KindLocalValueDomain.String() {
		prefix = "%"
	}
	line := fmt.Sprintf("    %s %s", prefix, c.Name)
	if c.Primitive {
		line += " <<primitive>>"
	}
	if c.SuperClass != "" {
		line += " -> " + c.SuperClass
	}
	line = pad(line, 40) + "  [" + c.Status + "]"
	if c.Concept != nil {
		line += fmt.Sprintf("  concept:%s:%s=%s", c.Concept.Namespace, c.Concept.Property, c.Concept.Value)
		if len(c.Concept.ValueSet) > 0 {
			line += fmt.Sprintf(" (%d values)", len(c.Concept.ValueSet))
		}
	}
	return line
}

func formatMemberLine(m ExportMember) string {
	line := fmt.Sprintf("      . %s", m.Name)
	if m.Type != "" {
		line += ": " + m.Type
	}
	if m.ResolvedType != "" && m.ResolvedType != m.Type {
		line += " -> " + m.ResolvedType
	}
	return pad(line, 40) + "  [" + m.Status + "]"
}

func pad(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}

// Package export turns a loaded model into a serializable snapshot: the package
// tree with statuses, resolved references, relationships and load messages.
package export

import "umlreg/internal/diag"

// ModelExport is the main export structure
type ModelExport struct {
	Metadata      ExportMetadata       `json:"metadata" yaml:"metadata"`
	Packages      []ExportPackage      `json:"packages" yaml:"packages"`
	Relationships []ExportRelationship `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	Messages      []diag.Message       `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// ExportMetadata describes the exported model and its load
type ExportMetadata struct {
	Model        string       `json:"model" yaml:"model"`
	XMIID        string       `json:"xmiId" yaml:"xmiId"`
	Source       string       `json:"source,omitempty" yaml:"source,omitempty"`
	Version      string       `json:"parserVersion,omitempty" yaml:"parserVersion,omitempty"`
	Fingerprint  string       `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Generated    string       `json:"generated" yaml:"generated"` // ISO 8601 timestamp
	ElementCount int          `json:"elementCount" yaml:"elementCount"`
	PackageCount int          `json:"packageCount" yaml:"packageCount"`
	ClassCount   int          `json:"classCount" yaml:"classCount"`
	Summary      diag.Summary `json:"summary" yaml:"summary"`
}

// ExportPackage is a package with the classes it directly owns
type ExportPackage struct {
	Name          string        `json:"name" yaml:"name"`
	QualifiedName string        `json:"qualifiedName" yaml:"qualifiedName"`
	XMIID         string        `json:"xmiId" yaml:"xmiId"`
	Status        string        `json:"status" yaml:"status"`
	Classes       []ExportClass `json:"classes,omitempty" yaml:"classes,omitempty"`
}

// ExportClass is a class or local value domain
type ExportClass struct {
	Kind       string         `json:"kind" yaml:"kind"` // "Class" | "LocalValueDomain"
	Name       string         `json:"name" yaml:"name"`
	XMIID      string         `json:"xmiId" yaml:"xmiId"`
	Status     string         `json:"status" yaml:"status"`
	Primitive  bool           `json:"primitive,omitempty" yaml:"primitive,omitempty"`
	Stereotype string         `json:"stereotype,omitempty" yaml:"stereotype,omitempty"`
	SuperClass string         `json:"superClass,omitempty" yaml:"superClass,omitempty"`
	Concept    *ExportConcept `json:"concept,omitempty" yaml:"concept,omitempty"`
	Members    []ExportMember `json:"members,omitempty" yaml:"members,omitempty"`
}

// ExportConcept is the terminology binding of a local value domain
type ExportConcept struct {
	Namespace string   `json:"namespace" yaml:"namespace"`
	Property  string   `json:"property" yaml:"property"`
	Value     string   `json:"value" yaml:"value"`
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	ValueSet  []string `json:"valueSet,omitempty" yaml:"valueSet,omitempty"`
}

// ExportMember is an attribute of a class
type ExportMember struct {
	Name         string `json:"name" yaml:"name"`
	XMIID        string `json:"xmiId" yaml:"xmiId"`
	Type         string `json:"type,omitempty" yaml:"type,omitempty"`
	ResolvedType string `json:"resolvedType,omitempty" yaml:"resolvedType,omitempty"` // qualified name
	Status       string `json:"status" yaml:"status"`
}

// ExportRelationship is a relationship between two classes
type ExportRelationship struct {
	XMIID  string `json:"xmiId" yaml:"xmiId"`
	Type   string `json:"type" yaml:"type"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Status string `json:"status" yaml:"status"`
}

// ExportOptions configures the export
type ExportOptions struct {
	IncludeMembers  bool   // Include class members (default: true)
	IncludeMessages bool   // Include load messages (default: true)
	ProblemsOnly    bool   // Only include classes that are not Active
	Format          string // Output format: "text" | "json" | "yaml"
}

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DefaultOptions returns the options used by the CLI and the API.
func DefaultOptions() ExportOptions {
	return ExportOptions{
		IncludeMembers:  true,
		IncludeMessages: true,
		Format:          FormatText,
	}
}

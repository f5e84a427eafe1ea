package main

import (
	"time"

	"umlreg/internal/diag"
	"umlreg/internal/registry"
	"umlreg/internal/storage"
	"umlreg/internal/uml"
)

// ModelResponseCLI describes one load of a model.
type ModelResponseCLI struct {
	Name          string         `json:"name"`
	Resource      string         `json:"resource"`
	ParserVersion string         `json:"parserVersion"`
	Description   string         `json:"description,omitempty"`
	Origin        string         `json:"origin,omitempty"`
	Loaded        bool           `json:"loaded"`
	ModelName     string         `json:"modelName,omitempty"`
	Elements      int            `json:"elements"`
	Packages      int            `json:"packages"`
	Classes       int            `json:"classes"`
	Relationships int            `json:"relationships"`
	Fingerprint   string         `json:"fingerprint,omitempty"`
	DurationMs    int64          `json:"durationMs"`
	LoadedAt      time.Time      `json:"loadedAt"`
	Declared      string         `json:"declared,omitempty"`
	Summary       diag.Summary   `json:"summary"`
	Messages      []diag.Message `json:"messages,omitempty"`
}

// ModelsResponseCLI lists declared models.
type ModelsResponseCLI struct {
	Manifest string            `json:"manifest"`
	Models   []ModelSummaryCLI `json:"models"`
}

// ModelSummaryCLI is one line of the model list.
type ModelSummaryCLI struct {
	Name          string        `json:"name"`
	Resource      string        `json:"resource"`
	ParserVersion string        `json:"parserVersion"`
	Origin        string        `json:"origin"`
	State         string        `json:"state"` // declared | loaded | failed
	Summary       *diag.Summary `json:"summary,omitempty"`
}

// ElementResponseCLI describes an element found by XMI id.
type ElementResponseCLI struct {
	Model         string   `json:"model"`
	XMIID         string   `json:"xmiId"`
	Kind          string   `json:"kind"`
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualifiedName"`
	Status        string   `json:"status"`
	Parent        string   `json:"parent,omitempty"`
	TypeName      string   `json:"typeName,omitempty"`
	SuperClass    string   `json:"superClass,omitempty"`
	Concept       string   `json:"concept,omitempty"`
	Children      []string `json:"children,omitempty"`
}

// HistoryResponseCLI lists the recorded load attempts of a model.
type HistoryResponseCLI struct {
	Model    string                 `json:"model"`
	Attempts []*storage.LoadAttempt `json:"attempts"`
}

// TokenResponseCLI carries a freshly generated API token.
type TokenResponseCLI struct {
	Token string `json:"token"`
	Hash  string `json:"hash"`
	Saved bool   `json:"saved"`
}

// newModelResponse converts a registry entry.
func newModelResponse(info *registry.ModelInfo) *ModelResponseCLI {
	resp := &ModelResponseCLI{
		Name:          info.Meta.Name,
		Resource:      info.Meta.Resource,
		ParserVersion: info.Meta.ParserVersion,
		Description:   info.Meta.Description,
		Origin:        string(info.Meta.Origin),
		Loaded:        info.Loaded(),
		Fingerprint:   info.Attempt.Fingerprint,
		DurationMs:    info.Attempt.Duration.Milliseconds(),
		LoadedAt:      info.LoadedAt,
		Summary:       info.Summary,
		Messages:      info.Messages,
	}
	if info.Loaded() {
		m := info.Model
		resp.ModelName = m.Name()
		resp.Elements = m.Len()
		resp.Packages = len(m.Packages())
		resp.Classes = len(m.Classes())
		resp.Relationships = len(m.Relationships())
	}
	return resp
}

// newElementResponse converts a lookup result.
func newElementResponse(ref *registry.ElementRef) *ElementResponseCLI {
	el := ref.Element
	resp := &ElementResponseCLI{
		Model:         ref.ModelName,
		XMIID:         el.XMIID,
		Kind:          el.Kind.String(),
		Name:          el.Name,
		QualifiedName: ref.QualifiedName,
		Status:        el.Status.String(),
		TypeName:      el.TypeName,
		SuperClass:    el.SuperClassName,
	}
	if el.Parent != uml.NoElement {
		resp.Parent = ref.Model.Get(el.Parent).XMIID
	}
	if !el.Concept.IsZero() {
		resp.Concept = el.Concept.String()
	}
	for _, id := range el.Children {
		resp.Children = append(resp.Children, ref.Model.Get(id).XMIID)
	}
	return resp
}

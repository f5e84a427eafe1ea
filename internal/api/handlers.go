package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"umlreg/internal/diag"
	"umlreg/internal/errors"
	"umlreg/internal/export"
	"umlreg/internal/registry"
	"umlreg/internal/storage"
	"umlreg/internal/uml"
)

// ModelResponse summarizes one declared model and its latest load
type ModelResponse struct {
	Name          string         `json:"name"`
	Resource      string         `json:"resource"`
	ParserVersion string         `json:"parserVersion"`
	Description   string         `json:"description,omitempty"`
	Origin        storage.Origin `json:"origin"`
	Published     bool           `json:"published"`
	Loaded        bool           `json:"loaded"`
	LoadedAt      *time.Time     `json:"loadedAt,omitempty"`
	XMIID         string         `json:"xmiId,omitempty"`
	Elements      int            `json:"elements"`
	Classes       int            `json:"classes"`
	Packages      int            `json:"packages"`
	Fingerprint   string         `json:"fingerprint,omitempty"`
	Summary       diag.Summary   `json:"summary"`
	Failure       string         `json:"failure,omitempty"`
}

// MessagesResponse lists the messages of a model's latest load
type MessagesResponse struct {
	Model    string         `json:"model"`
	Summary  diag.Summary   `json:"summary"`
	Messages []diag.Message `json:"messages"`
}

// HistoryResponse lists load attempts, newest first
type HistoryResponse struct {
	Model    string                 `json:"model"`
	Attempts []*storage.LoadAttempt `json:"attempts"`
}

// ElementResponse describes an element found by XMI ID
type ElementResponse struct {
	Model         string   `json:"model"`
	XMIID         string   `json:"xmiId"`
	Kind          string   `json:"kind"`
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualifiedName"`
	Status        string   `json:"status"`
	Stereotype    string   `json:"stereotype,omitempty"`
	SuperClass    string   `json:"superClass,omitempty"`
	Type          string   `json:"type,omitempty"`
	ResolvedType  string   `json:"resolvedType,omitempty"`
	Concept       string   `json:"concept,omitempty"`
	Children      []string `json:"children,omitempty"`
}

func newModelResponse(meta storage.ModelMetaData, info *registry.ModelInfo) ModelResponse {
	resp := ModelResponse{
		Name:          meta.Name,
		Resource:      meta.Resource,
		ParserVersion: meta.ParserVersion,
		Description:   meta.Description,
		Origin:        meta.Origin,
	}
	if info == nil {
		return resp
	}
	resp.Published = true
	resp.Loaded = info.Loaded()
	loadedAt := info.LoadedAt
	resp.LoadedAt = &loadedAt
	resp.Fingerprint = info.Attempt.Fingerprint
	resp.Summary = info.Summary
	resp.Failure = info.Attempt.Failure
	if info.Loaded() {
		resp.XMIID = info.Model.Root().XMIID
		resp.Elements = info.Model.Len()
		resp.Classes = len(info.Model.Classes())
		resp.Packages = len(info.Model.Packages())
	}
	return resp
}

// handleListModels lists every declared model. Models not loaded yet are
// reported with published=false; listing never triggers a load.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	declared, err := s.registry.Declared(r.Context())
	if err != nil {
		InternalError(w, "failed to list models", err)
		return
	}

	published := make(map[string]*registry.ModelInfo)
	for _, info := range s.registry.Models() {
		published[info.Meta.Name] = info
	}

	resp := make([]ModelResponse, 0, len(declared))
	for _, meta := range declared {
		resp = append(resp, newModelResponse(*meta, published[meta.Name]))
	}
	WriteJSON(w, map[string]interface{}{"models": resp, "count": len(resp)}, http.StatusOK)
}

// model resolves the {name} path variable, loading the model on first use
func (s *Server) model(w http.ResponseWriter, r *http.Request) (*registry.ModelInfo, bool) {
	name := mux.Vars(r)["name"]
	info, ok := s.registry.GetModel(r.Context(), name)
	if !ok {
		WriteRegistryError(w, errors.Newf(errors.ModelNotFound, "no model named %q", name))
		return nil, false
	}
	return info, true
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	info, ok := s.model(w, r)
	if !ok {
		return
	}
	WriteJSON(w, newModelResponse(info.Meta, info), http.StatusOK)
}

func (s *Server) handleModelMessages(w http.ResponseWriter, r *http.Request) {
	minSeverity, err := parseMinSeverity(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	info, ok := s.model(w, r)
	if !ok {
		return
	}

	msgs := make([]diag.Message, 0, len(info.Messages))
	for _, m := range info.Messages {
		if m.Severity.Rank() >= minSeverity.Rank() {
			msgs = append(msgs, m)
		}
	}
	WriteJSON(w, MessagesResponse{Model: info.Meta.Name, Summary: info.Summary, Messages: msgs}, http.StatusOK)
}

func (s *Server) handleModelHistory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	limit, err := QueryParamInt(r, "limit", 20)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	meta, err := s.registry.Declaration(r.Context(), name)
	if err != nil {
		InternalError(w, "failed to read model", err)
		return
	}
	if meta == nil {
		WriteRegistryError(w, errors.Newf(errors.ModelNotFound, "no model named %q", name))
		return
	}

	attempts, err := s.registry.History(r.Context(), name, limit)
	if err != nil {
		InternalError(w, "failed to read load history", err)
		return
	}
	if attempts == nil {
		attempts = []*storage.LoadAttempt{}
	}
	WriteJSON(w, HistoryResponse{Model: name, Attempts: attempts}, http.StatusOK)
}

func (s *Server) handleExportModel(w http.ResponseWriter, r *http.Request) {
	opts, err := parseExportOptions(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	info, ok := s.model(w, r)
	if !ok {
		return
	}
	if !info.Loaded() {
		WriteRegistryError(w, errors.Newf(errors.NoResult, "model %q has no tree: %s", info.Meta.Name, info.Attempt.Failure))
		return
	}

	snapshot, err := s.exporter.Export(info.Model, info.Messages, export.Source{
		Name:        info.Meta.Resource,
		Version:     info.Meta.ParserVersion,
		Fingerprint: info.Attempt.Fingerprint,
	}, opts)
	if err != nil {
		InternalError(w, "export failed", err)
		return
	}

	var buf bytes.Buffer
	if err := s.exporter.Write(&buf, snapshot, opts); err != nil {
		InternalError(w, "export failed", err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[opts.Format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleReloadModel rebuilds a model. A load that fails fatally is still
// published; the response carries its failure with the mapped status.
func (s *Server) handleReloadModel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	info, err := s.registry.Reload(r.Context(), name)
	if err != nil {
		s.logger.Warn("Reload failed", "model", name, "error", err.Error())
		WriteRegistryError(w, err)
		return
	}
	s.logger.Info("Model reloaded", "model", name, "elements", info.Attempt.Elements)
	WriteJSON(w, newModelResponse(info.Meta, info), http.StatusOK)
}

func (s *Server) handleGetElement(w http.ResponseWriter, r *http.Request) {
	xmiID := mux.Vars(r)["xmiId"]
	ref, ok := s.registry.FindElementByID(xmiID)
	if !ok {
		WriteRegistryError(w, errors.Newf(errors.ElementNotFound, "no element with XMI ID %q", xmiID))
		return
	}
	WriteJSON(w, newElementResponse(ref), http.StatusOK)
}

func newElementResponse(ref *registry.ElementRef) ElementResponse {
	e, m := ref.Element, ref.Model
	resp := ElementResponse{
		Model:         ref.ModelName,
		XMIID:         e.XMIID,
		Kind:          e.Kind.String(),
		Name:          e.Name,
		QualifiedName: ref.QualifiedName,
		Status:        e.Status.String(),
		Stereotype:    e.Stereotype,
		SuperClass:    e.SuperClassName,
		Type:          e.TypeName,
	}
	if e.SuperClass != uml.NoElement {
		resp.SuperClass = m.QualifiedName(e.SuperClass)
	}
	if e.ResolvedClass != uml.NoElement {
		resp.ResolvedType = m.QualifiedName(e.ResolvedClass)
	}
	if !e.Concept.IsZero() {
		resp.Concept = e.Concept.String()
	}
	for _, child := range e.Children {
		resp.Children = append(resp.Children, m.Get(child).XMIID)
	}
	return resp
}

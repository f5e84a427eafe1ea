package api

import (
	"net/http"

	"umlreg/internal/version"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Models
	s.router.HandleFunc("/models", s.handleListModels).Methods(http.MethodGet)
	s.router.HandleFunc("/models/{name}", s.handleGetModel).Methods(http.MethodGet)
	s.router.HandleFunc("/models/{name}/messages", s.handleModelMessages).Methods(http.MethodGet)
	s.router.HandleFunc("/models/{name}/history", s.handleModelHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/models/{name}/export", s.handleExportModel).Methods(http.MethodGet)
	s.router.HandleFunc("/models/{name}/reload", s.requireGuard(s.handleReloadModel)).Methods(http.MethodPost)

	// Elements
	s.router.HandleFunc("/elements/{xmiId}", s.handleGetElement).Methods(http.MethodGet)

	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "no route for "+r.URL.Path)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, errMethodNotAllowed(r.Method), http.StatusMethodNotAllowed)
	})
}

// handleRoot handles requests to the root path
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"name":    "umlreg HTTP API",
		"version": version.Version,
		"endpoints": []string{
			"GET /health - Health check",
			"GET /models - List models with load summaries",
			"GET /models/:name - Model summary",
			"GET /models/:name/messages?severity=... - Load messages",
			"GET /models/:name/history?limit=... - Load attempts, newest first",
			"GET /models/:name/export?format=json|yaml|text - Model snapshot",
			"POST /models/:name/reload - Rebuild a model",
			"GET /elements/:xmiId - Find an element in any loaded model",
		},
	}

	WriteJSON(w, response, http.StatusOK)
}

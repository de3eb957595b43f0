package handlers

import "net/http"

// PropertiesHandler returns build and runtime metadata about the server.
type PropertiesHandler struct {
	provider PropertiesProvider
}

// NewPropertiesHandler creates a new PropertiesHandler.
func NewPropertiesHandler(provider PropertiesProvider) *PropertiesHandler {
	return &PropertiesHandler{provider: provider}
}

// ServeHTTP implements http.Handler.
func (h *PropertiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.Properties())
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ctrlplane/internal/apperr"
	"ctrlplane/internal/model"
	"ctrlplane/internal/registry"
)

// handlePublishRegistryEntry implements publishing a new (namespace, name,
// version) catalog entry (§3).
func (s *Server) handlePublishRegistryEntry(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Namespace    string                        `json:"namespace"`
		Name         string                        `json:"name"`
		Description  string                        `json:"description"`
		Tags         []string                      `json:"tags"`
		Categories   []string                      `json:"categories"`
		Metadata     []model.RegistryEntryMetadata `json:"metadata"`
		ArtifactID   string                        `json:"artifact_id"`
		Version      string                        `json:"version"`
		Dependencies []model.WasmDependency        `json:"dependencies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.NewValidation("malformed request body"))
		return
	}
	value := model.WasmModule{ArtifactID: body.ArtifactID, Version: body.Version, Dependencies: body.Dependencies}
	entry, err := s.registry.Publish(body.Namespace, body.Name, body.Description, body.Tags, body.Categories, body.Metadata, value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// handleListRegistryVersions returns every published version of
// (namespace, name), ordered by semver (§4.5).
func (s *Server) handleListRegistryVersions(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	name := chi.URLParam(r, "name")
	direction := registry.Ascending
	if r.URL.Query().Get("sort_direction") == "desc" {
		direction = registry.Descending
	}
	versions, err := s.registry.ListVersions(namespace, name, direction)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

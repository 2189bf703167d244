package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"

	"github.com/ontologymarket/catalog/pkg/server"
	"github.com/ontologymarket/catalog/pkg/server/commands"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ready, err := h.server.IsReady(r.Context())
	if err != nil || !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) testAuth(w http.ResponseWriter, r *http.Request) {
	res, err := h.server.WhoAmI(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "authenticated",
		"user":   res.Data.Email,
		"uid":    res.Data.Subject,
	})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := intParam(query.Get("limit"), storage.MaxSearchLimit, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offset, err := intParam(query.Get("offset"), 0, "offset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.server.Search(r.Context(), server.SearchRequest{
		Term:   query.Get("search_term"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(res); err != nil {
		h.writeError(w, r, serverErrors.StoreError("", err))
		return
	}

	etag := `"` + strconv.FormatUint(xxhash.Sum64(body.Bytes()), 16) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Authorization")
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body.Bytes())
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func intParam(raw string, fallback int, name string) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, serverErrors.ValidationErrorf("%s must be an integer", name)
	}
	return v, nil
}

type addRequestBody struct {
	Ontologies []commands.NewRecord `json:"ontologies"`
	CreatedAt  *time.Time           `json:"created_at,omitempty"`
}

// UnmarshalJSON accepts a bare array of records as well as the object form.
func (b *addRequestBody) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &b.Ontologies)
	}

	type object addRequestBody
	return json.Unmarshal(data, (*object)(b))
}

func (h *Handler) addRecords(w http.ResponseWriter, r *http.Request) {
	var body addRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.server.AddRecords(r.Context(), server.AddRequest{
		Records:   body.Ontologies,
		CreatedAt: body.CreatedAt,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	var body commands.UpdateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.server.UpdateRecord(r.Context(), chi.URLParam(r, "ontology_id"), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) deleteRecords(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := decodeJSON(w, r, &ids); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.server.DeleteRecords(r.Context(), ids)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) grantCapability(w http.ResponseWriter, r *http.Request) {
	var body commands.CapabilityRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.server.GrantCapability(r.Context(), chi.URLParam(r, "ontology_id"), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) revokeCapability(w http.ResponseWriter, r *http.Request) {
	var body commands.CapabilityRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.server.RevokeCapability(r.Context(), chi.URLParam(r, "ontology_id"), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) userProfile(w http.ResponseWriter, r *http.Request) {
	res, err := h.server.GetUserProfile(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) updateUserProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsPublic *bool `json:"is_public"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.IsPublic == nil {
		h.writeError(w, r, serverErrors.ValidationError("is_public is required"))
		return
	}

	res, err := h.server.UpdateUserVisibility(r.Context(), *body.IsPublic)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

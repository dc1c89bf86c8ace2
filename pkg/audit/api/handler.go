// Package api exposes the read-only security-review listing of
// impersonation audit entries. Mount behind identity.RequireAdmin.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/macrominded/coach-admin/pkg/audit"
)

// Handler handles HTTP requests for the audit review listing
type Handler struct {
	service *audit.AuditService
}

// NewHandler creates a new audit handler
func NewHandler(service *audit.AuditService) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the audit routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/impersonations", h.ListImpersonations)
}

// EntryResponse is one audit entry in the listing
type EntryResponse struct {
	ID           string `json:"id"`
	Action       string `json:"action"`
	AdminID      string `json:"admin_id"`
	TargetUserID string `json:"target_user_id"`
	Timestamp    string `json:"timestamp"`
}

// ListImpersonations handles GET /audit/impersonations
func (h *Handler) ListImpersonations(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.FindEntries(r.Context())
	if err != nil {
		slog.Error("Failed to list audit entries", "err", err)
		http.Error(w, "Failed to list audit entries", http.StatusInternalServerError)
		return
	}

	response := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, EntryResponse{
			ID:           e.ID.String(),
			Action:       e.Action,
			AdminID:      e.AdminID.String(),
			TargetUserID: e.TargetUserID.String(),
			Timestamp:    e.Timestamp.Format(time.RFC3339),
		})
	}

	render.JSON(w, r, response)
}

// Package api exposes the impersonation HTTP surface: start, exchange,
// status, and exit. Start requires a verified admin bearer; exchange turns
// a one-shot token into the session cookie; status only reflects channel
// state for the UI banner and decides nothing itself.
package api

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/macrominded/coach-admin/pkg/errors"
	"github.com/macrominded/coach-admin/pkg/identity"
	"github.com/macrominded/coach-admin/pkg/impersonate"
	"github.com/macrominded/coach-admin/pkg/session"
)

// Handler handles HTTP requests for impersonation
type Handler struct {
	service *impersonate.Service
	channel *session.Channel
}

// NewHandler creates a new impersonation handler
func NewHandler(service *impersonate.Service, channel *session.Channel) *Handler {
	return &Handler{
		service: service,
		channel: channel,
	}
}

// RegisterRoutes registers the impersonation routes. Start must be mounted
// behind identity.Middleware + identity.RequireAdmin; exchange and exit are
// reachable by the redirected browser.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Start)
	r.Get("/exchange", h.Exchange)
	r.Get("/status", h.Status)
	r.Post("/exit", h.Exit)
}

// StartRequest is the body of POST /impersonate
type StartRequest struct {
	UserID string `json:"user_id"`
}

// StartResponse is returned on a successful grant
type StartResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	ExpiresAt   string `json:"expires_at"`
}

// StatusResponse reflects channel state for the UI banner
type StatusResponse struct {
	Active            bool   `json:"active"`
	TargetUserID      string `json:"target_user_id,omitempty"`
	TargetDisplayName string `json:"target_display_name,omitempty"`
	TargetEmail       string `json:"target_email,omitempty"`
	AdminUserID       string `json:"admin_user_id,omitempty"`
	ImpersonatedAt    string `json:"impersonated_at,omitempty"`
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Start handles POST /impersonate
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	caller := identity.FromContext(r.Context())
	if caller == nil {
		renderError(w, r, errors.Unauthenticated("no verified caller identity"))
		return
	}

	data := StartRequest{}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		renderError(w, r, errors.InvalidInput("body", "unable to parse request body"))
		return
	}

	targetID, err := uuid.Parse(data.UserID)
	if err != nil {
		renderError(w, r, errors.InvalidInput("user_id", "invalid user id format"))
		return
	}

	result, err := h.service.Start(r.Context(), caller, targetID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, StartResponse{
		Token:       result.Token,
		RedirectURL: result.RedirectURL,
		ExpiresAt:   result.Grant.ExpiresAt.Format(time.RFC3339),
	})
}

// Exchange handles GET /impersonate/exchange?token=...
// It exchanges the one-shot token for the session cookie and redirects the
// browser into the impersonated view.
func (h *Handler) Exchange(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		renderError(w, r, errors.InvalidInput("token", "missing token"))
		return
	}

	sessionCtx, err := h.channel.GrantSession(w, r, tokenStr)
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("impersonation session exchanged",
		"adminId", sessionCtx.AdminUserID,
		"targetUserId", sessionCtx.TargetUserID)

	redirectURL := r.URL.Query().Get("redirect")
	if !isLocalRedirect(redirectURL) {
		redirectURL = "/"
	}
	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}

// isLocalRedirect accepts only same-origin paths. Scheme-qualified and
// protocol-relative targets ("//host", and the "/\host" form browsers
// normalize to it) are rejected.
func isLocalRedirect(target string) bool {
	if target == "" || target[0] != '/' {
		return false
	}
	if len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return false
	}
	return true
}

// Status handles GET /impersonate/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	sessionCtx := h.channel.ReadSession(r)
	if sessionCtx == nil {
		render.JSON(w, r, StatusResponse{Active: false})
		return
	}

	render.JSON(w, r, StatusResponse{
		Active:            true,
		TargetUserID:      sessionCtx.TargetUserID.String(),
		TargetDisplayName: sessionCtx.TargetDisplayName,
		TargetEmail:       sessionCtx.TargetEmail,
		AdminUserID:       sessionCtx.AdminUserID.String(),
		ImpersonatedAt:    sessionCtx.ImpersonatedAt.Format(time.RFC3339),
	})
}

// Exit handles POST /impersonate/exit. Always succeeds, active session or
// not.
func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	h.channel.Exit(w)
	render.JSON(w, r, map[string]string{"status": "success"})
}

// renderError maps a typed error to its HTTP status and JSON body.
// Authorization and verification failures always surface explicitly; they
// are never downgraded to an empty session.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := errors.MapErrorCodeToHTTPStatus(code)

	var structured *errors.Error
	message := http.StatusText(status)
	if stderrors.As(err, &structured) {
		message = structured.Message
	}

	if status >= http.StatusInternalServerError {
		slog.Error("impersonation request failed", "code", code, "err", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Error: message,
		Code:  string(code),
	})
}

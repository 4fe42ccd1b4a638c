package notifications

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tutoria-app/tutoria/internal/platform/httpx"
	"github.com/tutoria-app/tutoria/internal/rbac"
	"github.com/tutoria-app/tutoria/internal/shared"
)

// Handler manages notification endpoints. Reading is scoped to the
// session user; sending requires the dedicated permission.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/unread-count", h.unreadCount)
	r.Post("/{id}/read", h.markRead)
	r.Post("/read-all", h.markAllRead)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermNotificationsSend))
		r.Post("/", h.send)
	})
}

type sendRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Title  string `json:"title" validate:"required"`
	Body   string `json:"body" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.rbac.CurrentPrincipal(r)
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.service.ListForUser(r.Context(), principal.ID, limit)
	if err != nil {
		h.logger.Error("list notifications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notifications": items})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.rbac.CurrentPrincipal(r)
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}
	count, err := h.service.UnreadCount(r.Context(), principal.ID)
	if err != nil {
		h.logger.Error("unread count", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"unread": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.rbac.CurrentPrincipal(r)
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	if err := h.service.MarkRead(r.Context(), principal.ID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.rbac.CurrentPrincipal(r)
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}
	if err := h.service.MarkAllRead(r.Context(), principal.ID); err != nil {
		h.logger.Error("mark all read", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user_id, title and body required")
		return
	}
	created, err := h.service.Send(r.Context(), req.UserID, req.Title, req.Body)
	if err != nil {
		h.logger.Error("send notification", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

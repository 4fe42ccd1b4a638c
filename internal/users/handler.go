package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tutoria-app/tutoria/internal/platform/httpx"
	"github.com/tutoria-app/tutoria/internal/rbac"
	"github.com/tutoria-app/tutoria/internal/shared"
)

// Handler manages user management endpoints, including the role
// assignment surface bounded by the delegation guard.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	engine   *rbac.Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, engine *rbac.Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, engine: engine, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersEdit))
		r.Post("/", h.create)
		r.Post("/{id}/roles/{roleID}", h.assignRole)
		r.Delete("/{id}/roles/{roleID}", h.removeRole)
	})
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Type     string `json:"type" validate:"omitempty,oneof=standard administrator"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	user, err := h.service.Create(r.Context(), CreateInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Type:     rbac.UserType(req.Type),
	})
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	h.mutateRole(w, r, h.engine.AssignRole)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	h.mutateRole(w, r, h.engine.RemoveRole)
}

type roleMutation func(ctx context.Context, actor rbac.Principal, targetUserID, roleID int64) (rbac.Principal, error)

func (h *Handler) mutateRole(w http.ResponseWriter, r *http.Request, mutate roleMutation) {
	targetID, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}
	roleID, ok := h.urlID(w, r, "roleID")
	if !ok {
		return
	}
	actor, ok := h.rbac.CurrentPrincipal(r)
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}
	if _, err := mutate(r.Context(), actor, targetID, roleID); err != nil {
		h.logger.Error("mutate user role",
			slog.Int64("actor_id", actor.ID),
			slog.Int64("target_id", targetID),
			slog.Int64("role_id", roleID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Get(r.Context(), targetID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) urlID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return "missing or invalid fields: " + strings.Join(fields, ", ")
}

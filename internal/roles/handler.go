package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/tutoria-app/tutoria/internal/platform/httpx"
	"github.com/tutoria-app/tutoria/internal/rbac"
	"github.com/tutoria-app/tutoria/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validate  *validator.Validate
	treeGroup singleflight.Group
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView))
		r.Get("/", h.list)
		r.Get("/tree", h.tree)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRolesEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Put("/{id}/parent", h.updateParent)
		r.Delete("/{id}", h.delete)
	})
}

type roleRequest struct {
	Name        string   `json:"name" validate:"required"`
	Color       string   `json:"color"`
	ParentID    int64    `json:"parent_id"`
	Permissions []string `json:"permissions" validate:"required,min=1"`
}

type reparentRequest struct {
	ParentID int64 `json:"parent_id" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	// Tree assembly reads every role; collapse concurrent builds.
	result, err, _ := h.treeGroup.Do("tree", func() (any, error) {
		return h.service.Tree(r.Context())
	})
	if err != nil {
		h.logger.Error("build role tree", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tree": result})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRole(w, r)
	if !ok {
		return
	}
	actor, _ := h.rbac.CurrentPrincipal(r)
	role, err := h.service.Create(r.Context(), actor.ID, RoleInput{
		Name:        req.Name,
		Color:       req.Color,
		ParentID:    req.ParentID,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.logger.Error("create role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}
	req, ok := h.decodeRole(w, r)
	if !ok {
		return
	}
	actor, _ := h.rbac.CurrentPrincipal(r)
	role, err := h.service.Update(r.Context(), actor.ID, id, RoleInput{
		Name:        req.Name,
		Color:       req.Color,
		ParentID:    req.ParentID,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.logger.Error("update role", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) updateParent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}
	var req reparentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	actor, _ := h.rbac.CurrentPrincipal(r)
	role, err := h.service.UpdateParent(r.Context(), actor.ID, id, req.ParentID)
	if err != nil {
		h.logger.Error("reparent role", slog.Int64("id", id), slog.Int64("parent_id", req.ParentID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := h.rbac.CurrentPrincipal(r)
	if err := h.service.Delete(r.Context(), actor.ID, id); err != nil {
		h.logger.Error("delete role", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeRole(w http.ResponseWriter, r *http.Request) (roleRequest, bool) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return roleRequest{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return roleRequest{}, false
	}
	return req, true
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

package bundles

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

// Handler manages bundle endpoints.
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

// MountRoutes registers bundle routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermBundlesView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermBundlesEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/consume", h.consume)
		r.Post("/{id}/archive", h.archive)
		r.Delete("/{id}", h.delete)
	})
}

type bundleRequest struct {
	Title      string `json:"title" validate:"required"`
	ClientName string `json:"client_name" validate:"required"`
	Hours      int    `json:"hours" validate:"required,gt=0"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

type consumeRequest struct {
	Hours int `json:"hours" validate:"required,gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	items, pagination, err := h.service.List(r.Context(), ListFilter{
		Search:  q.Get("q"),
		Status:  Status(q.Get("status")),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.logger.Error("list bundles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bundles": items, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	bundle, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bundle)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBundle(w, r)
	if !ok {
		return
	}
	actor, _ := h.rbac.CurrentPrincipal(r)
	bundle, err := h.service.Create(r.Context(), actor.ID, BundleInput{
		Title:      req.Title,
		ClientName: req.ClientName,
		Hours:      req.Hours,
		PriceCents: req.PriceCents,
	})
	if err != nil {
		h.logger.Error("create bundle", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bundle)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeBundle(w, r)
	if !ok {
		return
	}
	actor, _ := h.rbac.CurrentPrincipal(r)
	bundle, err := h.service.Update(r.Context(), actor.ID, id, BundleInput{
		Title:      req.Title,
		ClientName: req.ClientName,
		Hours:      req.Hours,
		PriceCents: req.PriceCents,
	})
	if err != nil {
		h.logger.Error("update bundle", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bundle)
}

func (h *Handler) consume(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	var req consumeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "hours must be positive")
		return
	}
	actor, _ := h.rbac.CurrentPrincipal(r)
	bundle, err := h.service.Consume(r.Context(), actor.ID, id, req.Hours)
	if err != nil {
		h.logger.Error("consume bundle", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bundle)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	actor, _ := h.rbac.CurrentPrincipal(r)
	bundle, err := h.service.Archive(r.Context(), actor.ID, id)
	if err != nil {
		h.logger.Error("archive bundle", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bundle)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	actor, _ := h.rbac.CurrentPrincipal(r)
	if err := h.service.Delete(r.Context(), actor.ID, id); err != nil {
		h.logger.Error("delete bundle", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeBundle(w http.ResponseWriter, r *http.Request) (bundleRequest, bool) {
	var req bundleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return bundleRequest{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing or invalid bundle fields")
		return bundleRequest{}, false
	}
	return req, true
}

func (h *Handler) urlID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

package bundles

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tutoria-app/tutoria/internal/rbac"
	"github.com/tutoria-app/tutoria/internal/shared"
)

// RepositoryPort abstracts bundle persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context, search string, status Status, limit, offset int) ([]Bundle, int, error)
	Get(ctx context.Context, id int64) (Bundle, error)
	Create(ctx context.Context, b Bundle) (Bundle, error)
	Update(ctx context.Context, b Bundle) (Bundle, error)
	ConsumeHours(ctx context.Context, id int64, hours int) (Bundle, error)
	Delete(ctx context.Context, id int64) error
}

// BundleInput carries the writable bundle fields.
type BundleInput struct {
	Title      string
	ClientName string
	Hours      int
	PriceCents int64
}

// ListFilter narrows a bundle listing.
type ListFilter struct {
	Search  string
	Status  Status
	Page    int
	PerPage int
}

// Service wraps bundle business rules.
type Service struct {
	repo   RepositoryPort
	audit  rbac.AuditPort
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort, audit rbac.AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns a page of bundles with pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Bundle, shared.Pagination, error) {
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.PerPage
	items, total, err := s.repo.List(ctx, strings.TrimSpace(filter.Search), filter.Status, filter.PerPage, offset)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Get fetches a bundle by id.
func (s *Service) Get(ctx context.Context, id int64) (Bundle, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new bundle. Codes are generated, not
// client supplied.
func (s *Service) Create(ctx context.Context, actorID int64, input BundleInput) (Bundle, error) {
	if err := validate(input); err != nil {
		return Bundle{}, err
	}
	created, err := s.repo.Create(ctx, Bundle{
		Code:       uuid.NewString(),
		Title:      strings.TrimSpace(input.Title),
		ClientName: strings.TrimSpace(input.ClientName),
		Hours:      input.Hours,
		PriceCents: input.PriceCents,
		Status:     StatusActive,
	})
	if err != nil {
		return Bundle{}, err
	}
	s.recordAudit(ctx, actorID, "BUNDLE_CREATE", created.ID)
	return created, nil
}

// Update rewrites an existing bundle. Shrinking the allowance below
// what is already consumed is refused.
func (s *Service) Update(ctx context.Context, actorID, id int64, input BundleInput) (Bundle, error) {
	if err := validate(input); err != nil {
		return Bundle{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Bundle{}, err
	}
	if input.Hours < current.HoursUsed {
		return Bundle{}, fmt.Errorf("hours cannot drop below %d already consumed: %w", current.HoursUsed, shared.ErrValidation)
	}
	current.Title = strings.TrimSpace(input.Title)
	current.ClientName = strings.TrimSpace(input.ClientName)
	current.Hours = input.Hours
	current.PriceCents = input.PriceCents
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return Bundle{}, err
	}
	s.recordAudit(ctx, actorID, "BUNDLE_UPDATE", updated.ID)
	return updated, nil
}

// Consume books hours against the bundle.
func (s *Service) Consume(ctx context.Context, actorID, id int64, hours int) (Bundle, error) {
	if hours <= 0 {
		return Bundle{}, fmt.Errorf("hours must be positive: %w", shared.ErrValidation)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Bundle{}, err
	}
	updated, err := s.repo.ConsumeHours(ctx, id, hours)
	if err != nil {
		return Bundle{}, err
	}
	s.recordAudit(ctx, actorID, "BUNDLE_CONSUME", updated.ID)
	return updated, nil
}

// Archive parks a bundle without deleting its history.
func (s *Service) Archive(ctx context.Context, actorID, id int64) (Bundle, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Bundle{}, err
	}
	current.Status = StatusArchived
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return Bundle{}, err
	}
	s.recordAudit(ctx, actorID, "BUNDLE_ARCHIVE", updated.ID)
	return updated, nil
}

// Delete removes a bundle. Bundles with consumed hours must be
// archived instead so billing history stays intact.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.HoursUsed > 0 {
		return fmt.Errorf("bundle %d has consumed hours, archive it instead: %w", id, shared.ErrConflict)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "BUNDLE_DELETE", id)
	return nil
}

func validate(input BundleInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("title is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(input.ClientName) == "" {
		return fmt.Errorf("client name is required: %w", shared.ErrValidation)
	}
	if input.Hours <= 0 {
		return fmt.Errorf("hours must be positive: %w", shared.ErrValidation)
	}
	if input.PriceCents < 0 {
		return fmt.Errorf("price cannot be negative: %w", shared.ErrValidation)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, bundleID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "bundles",
		EntityID: strconv.FormatInt(bundleID, 10),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tutoria-app/tutoria/internal/rbac"
	"github.com/tutoria-app/tutoria/internal/shared"
)

// TxRepository serves the reads and writes of one reparent-bearing
// mutation under a single store snapshot.
type TxRepository interface {
	Get(ctx context.Context, id int64) (Role, error)
	ListEdges(ctx context.Context) ([]rbac.RoleEdge, error)
	SetParent(ctx context.Context, roleID, parentID int64) (Role, error)
	Update(ctx context.Context, role Role) (Role, error)
}

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	Create(ctx context.Context, role Role) (Role, error)
	Delete(ctx context.Context, id int64) error
	HasChildren(ctx context.Context, id int64) (bool, error)
	AssignedToUsers(ctx context.Context, id int64) (bool, error)
}

// RoleInput carries the writable role fields. ParentID zero means no
// parent.
type RoleInput struct {
	Name        string
	Color       string
	ParentID    int64
	Permissions []string
}

// Service handles role business logic. It is the sole writer of role
// documents; every code path that changes a parent pointer runs the
// cycle check inside the same transaction as the write.
type Service struct {
	repo   RepositoryPort
	audit  rbac.AuditPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit rbac.AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get returns a single role.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	return s.repo.Get(ctx, id)
}

// Tree returns the role forest for presentation.
func (s *Service) Tree(ctx context.Context) ([]*RoleNode, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(roles), nil
}

// Create validates and inserts a new role. The optional parent must
// reference an existing role.
func (s *Service) Create(ctx context.Context, actorID int64, input RoleInput) (Role, error) {
	role, err := s.validate(input)
	if err != nil {
		return Role{}, err
	}
	if role.ParentID != 0 {
		if _, err := s.repo.Get(ctx, role.ParentID); err != nil {
			return Role{}, err
		}
	}
	created, err := s.repo.Create(ctx, role)
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "ROLE_CREATE", created)
	return created, nil
}

// Update replaces name/color/permissions outright. A changed parent is
// a reparent and goes through the same transactional cycle check as
// UpdateParent.
func (s *Service) Update(ctx context.Context, actorID, id int64, input RoleInput) (Role, error) {
	role, err := s.validate(input)
	if err != nil {
		return Role{}, err
	}
	role.ID = id

	var updated Role
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if role.ParentID != current.ParentID && role.ParentID != 0 {
			if _, err := tx.Get(ctx, role.ParentID); err != nil {
				return err
			}
			if err := checkNoCycle(ctx, tx, id, role.ParentID); err != nil {
				return err
			}
		}
		updated, err = tx.Update(ctx, role)
		return err
	})
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "ROLE_UPDATE", updated)
	return updated, nil
}

// UpdateParent reassigns a role's parent. The cycle predicate runs
// against the transaction snapshot; on a cycle the tree is left
// unmodified.
func (s *Service) UpdateParent(ctx context.Context, actorID, roleID, newParentID int64) (Role, error) {
	var updated Role
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.Get(ctx, roleID); err != nil {
			return err
		}
		if _, err := tx.Get(ctx, newParentID); err != nil {
			return err
		}
		if err := checkNoCycle(ctx, tx, roleID, newParentID); err != nil {
			return err
		}
		var err error
		updated, err = tx.SetParent(ctx, roleID, newParentID)
		return err
	})
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "ROLE_REPARENT", updated)
	return updated, nil
}

// Delete removes a role. Deletion is refused while the role has child
// roles or user assignments.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	hasChildren, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return fmt.Errorf("roles: role has child roles: %w", shared.ErrConflict)
	}
	assigned, err := s.repo.AssignedToUsers(ctx, id)
	if err != nil {
		return err
	}
	if assigned {
		return fmt.Errorf("roles: role is assigned to users: %w", shared.ErrConflict)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "ROLE_DELETE", role)
	return nil
}

func checkNoCycle(ctx context.Context, tx TxRepository, roleID, parentID int64) error {
	edges, err := tx.ListEdges(ctx)
	if err != nil {
		return err
	}
	if rbac.WouldCreateCycle(edges, roleID, parentID) {
		return fmt.Errorf("roles: parent %d is in role %d's subtree: %w", parentID, roleID, shared.ErrCircularDependency)
	}
	return nil
}

func (s *Service) validate(input RoleInput) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, fmt.Errorf("roles: name required: %w", shared.ErrValidation)
	}
	if len(input.Permissions) == 0 {
		return Role{}, fmt.Errorf("roles: permissions required: %w", shared.ErrValidation)
	}
	seen := make(map[string]struct{}, len(input.Permissions))
	perms := make([]string, 0, len(input.Permissions))
	for _, p := range input.Permissions {
		p = strings.TrimSpace(strings.ToLower(p))
		if !shared.ValidPermission(p) {
			return Role{}, fmt.Errorf("roles: unknown permission %q: %w", p, shared.ErrValidation)
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		perms = append(perms, p)
	}
	return Role{
		Name:        name,
		Color:       strings.TrimSpace(input.Color),
		ParentID:    input.ParentID,
		Permissions: perms,
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, role Role) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "roles",
		EntityID: fmt.Sprintf("%d", role.ID),
		Meta:     map[string]any{"name": role.Name, "parent_id": role.ParentID},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

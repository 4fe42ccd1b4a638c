package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tutoria-app/tutoria/internal/shared"
)

// Store abstracts the role/user store consumed by the engine. All
// reads are snapshots; the engine never writes role documents itself.
type Store interface {
	FindPrincipal(ctx context.Context, userID int64) (Principal, error)
	RolePermissions(ctx context.Context, roleIDs []int64) ([]string, error)
	ListRoleEdges(ctx context.Context) ([]RoleEdge, error)
	RoleExists(ctx context.Context, roleID int64) (bool, error)
	AddRoleToUser(ctx context.Context, userID, roleID int64) error
	RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error
}

// Notifier is invoked after a successful role grant.
type Notifier interface {
	RoleGranted(ctx context.Context, userID, roleID int64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the authorization engine: permission resolution, the
// allow/deny gate and the delegation guard.
type Service struct {
	store    Store
	notifier Notifier
	audit    AuditPort
	logger   *slog.Logger
}

// NewService constructs a Service. Notifier and audit are optional.
func NewService(store Store, notifier Notifier, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, audit: audit, logger: logger}
}

// Principal loads the engine's view of a user.
func (s *Service) Principal(ctx context.Context, userID int64) (Principal, error) {
	return s.store.FindPrincipal(ctx, userID)
}

// EffectivePermissions returns the deduplicated union of permission
// sets over the user's directly assigned roles. Hierarchy edges do not
// contribute: they bound delegation only. Administrators are not
// special-cased here; the bypass lives in Authorize.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	principal, err := s.store.FindPrincipal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(principal.RoleIDs) == 0 {
		return nil, nil
	}
	perms, err := s.store.RolePermissions(ctx, principal.RoleIDs)
	if err != nil {
		return nil, err
	}
	unique := make(map[string]struct{}, len(perms))
	result := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := unique[p]; ok {
			continue
		}
		unique[p] = struct{}{}
		result = append(result, p)
	}
	return result, nil
}

// Authorize decides whether the principal may proceed. Administrators
// are allowed unconditionally. With requireAll the principal needs
// every required permission, otherwise at least one. A user with no
// resolvable roles is a valid state and simply denies.
func (s *Service) Authorize(ctx context.Context, principal Principal, required []string, requireAll bool) (bool, error) {
	if principal.IsAdministrator() {
		return true, nil
	}
	normalized := normalizePermissions(required)
	if len(normalized) == 0 {
		return true, nil
	}
	granted, err := s.EffectivePermissions(ctx, principal.ID)
	if err != nil {
		return false, err
	}
	if requireAll {
		return hasAllPermissions(granted, normalized), nil
	}
	return hasAnyPermission(granted, normalized), nil
}

// CanDelegate reports whether the acting user may grant or revoke the
// given role: administrators always, everyone else only within the
// descendant set of their own directly assigned roles.
func (s *Service) CanDelegate(ctx context.Context, actor Principal, roleID int64) (bool, error) {
	if actor.IsAdministrator() {
		return true, nil
	}
	edges, err := s.store.ListRoleEdges(ctx)
	if err != nil {
		return false, err
	}
	_, ok := DescendantIDs(edges, actor.RoleIDs)[roleID]
	return ok, nil
}

// AssignRole idempotently adds roleID to the target user's assigned
// set after the delegation boundary check, then returns the refreshed
// principal. A successful grant notifies the target and is audited.
func (s *Service) AssignRole(ctx context.Context, actor Principal, targetUserID, roleID int64) (Principal, error) {
	if err := s.guardDelegation(ctx, actor, targetUserID, roleID); err != nil {
		return Principal{}, err
	}
	if err := s.store.AddRoleToUser(ctx, targetUserID, roleID); err != nil {
		return Principal{}, fmt.Errorf("rbac: assign role: %w", err)
	}
	if s.notifier != nil {
		if err := s.notifier.RoleGranted(ctx, targetUserID, roleID); err != nil && s.logger != nil {
			s.logger.Warn("role granted notification", slog.Any("error", err))
		}
	}
	s.recordAudit(ctx, actor.ID, "ROLE_ASSIGN", targetUserID, roleID)
	return s.store.FindPrincipal(ctx, targetUserID)
}

// RemoveRole idempotently removes roleID from the target user's
// assigned set, symmetric to AssignRole.
func (s *Service) RemoveRole(ctx context.Context, actor Principal, targetUserID, roleID int64) (Principal, error) {
	if err := s.guardDelegation(ctx, actor, targetUserID, roleID); err != nil {
		return Principal{}, err
	}
	if err := s.store.RemoveRoleFromUser(ctx, targetUserID, roleID); err != nil {
		return Principal{}, fmt.Errorf("rbac: remove role: %w", err)
	}
	s.recordAudit(ctx, actor.ID, "ROLE_REMOVE", targetUserID, roleID)
	return s.store.FindPrincipal(ctx, targetUserID)
}

func (s *Service) guardDelegation(ctx context.Context, actor Principal, targetUserID, roleID int64) error {
	if _, err := s.store.FindPrincipal(ctx, targetUserID); err != nil {
		return err
	}
	exists, err := s.store.RoleExists(ctx, roleID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("rbac: role %d: %w", roleID, shared.ErrNotFound)
	}
	allowed, err := s.CanDelegate(ctx, actor, roleID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("rbac: role %d is outside the acting user's subtree: %w", roleID, shared.ErrForbidden)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, targetUserID, roleID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user_roles",
		EntityID: fmt.Sprintf("%d:%d", targetUserID, roleID),
		Meta:     map[string]any{"user_id": targetUserID, "role_id": roleID},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}

package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RepositoryPort abstracts notification persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	Get(ctx context.Context, id int64) (Notification, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) error
	MarkDelivered(ctx context.Context, id int64) error
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Enqueuer submits delivery jobs to the background queue.
type Enqueuer interface {
	EnqueueNotifyDeliver(ctx context.Context, notificationID int64) error
}

// RoleNamer resolves role names for notification text.
type RoleNamer interface {
	RoleName(ctx context.Context, roleID int64) (string, error)
}

// Service creates, lists and delivers notifications. It also feeds the
// role-grant hook of the authorization engine.
type Service struct {
	repo    RepositoryPort
	queue   Enqueuer
	roles   RoleNamer
	printer *message.Printer
	logger  *slog.Logger
}

// NewService constructs a Service. Queue and role namer are optional;
// without a queue notifications stay in-app only.
func NewService(repo RepositoryPort, queue Enqueuer, roles RoleNamer, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		queue:   queue,
		roles:   roles,
		printer: message.NewPrinter(language.English),
		logger:  logger,
	}
}

// RoleGranted notifies a user that a role was added to their account.
func (s *Service) RoleGranted(ctx context.Context, userID, roleID int64) error {
	roleName := fmt.Sprintf("#%d", roleID)
	if s.roles != nil {
		if name, err := s.roles.RoleName(ctx, roleID); err == nil {
			roleName = name
		}
	}
	_, err := s.create(ctx, Notification{
		UserID: userID,
		Kind:   KindRoleGranted,
		Title:  "New role granted",
		Body:   fmt.Sprintf("The role %s has been added to your account.", roleName),
	})
	return err
}

// PayslipReady notifies a tutor that a payslip is available. Amounts
// are stored in cents and rendered with locale-aware separators.
func (s *Service) PayslipReady(ctx context.Context, userID int64, period string, amountCents int64) error {
	amount := s.printer.Sprintf("%.2f", float64(amountCents)/100)
	_, err := s.create(ctx, Notification{
		UserID: userID,
		Kind:   KindPayslipReady,
		Title:  "Payslip available",
		Body:   fmt.Sprintf("Your payslip for %s is ready (%s EUR).", period, amount),
	})
	return err
}

// Send creates a free-form message notification.
func (s *Service) Send(ctx context.Context, userID int64, title, body string) (Notification, error) {
	return s.create(ctx, Notification{
		UserID: userID,
		Kind:   KindMessage,
		Title:  title,
		Body:   body,
	})
}

func (s *Service) create(ctx context.Context, n Notification) (Notification, error) {
	n.Code = uuid.NewString()
	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return Notification{}, fmt.Errorf("create notification: %w", err)
	}
	if s.queue != nil {
		if err := s.queue.EnqueueNotifyDeliver(ctx, created.ID); err != nil && s.logger != nil {
			// Delivery is best effort; the in-app copy already exists.
			s.logger.Warn("enqueue delivery", slog.Int64("notification_id", created.ID), slog.Any("error", err))
		}
	}
	return created, nil
}

// ListForUser returns the newest notifications for userID.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListForUser(ctx, userID, limit)
}

// UnreadCount returns the unread badge count for userID.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead marks one owned notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead marks every notification of userID as read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// Deliver performs the out-of-band delivery for one notification. It
// runs inside the background worker.
func (s *Service) Deliver(ctx context.Context, id int64) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.Status == StatusDelivered {
		return nil
	}
	// Delivery channel integration (mail, push) hangs off here; the
	// status flip keeps retries idempotent either way.
	if err := s.repo.MarkDelivered(ctx, n.ID); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("notification delivered", slog.Int64("id", n.ID), slog.String("kind", string(n.Kind)))
	}
	return nil
}

// PruneRead deletes read notifications older than retention.
func (s *Service) PruneRead(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteReadBefore(ctx, time.Now().Add(-retention))
}

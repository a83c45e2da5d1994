package services

import (
	"chat-pulse/contract"
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/errors"
	"chat-pulse/runtime"
	"context"
	"fmt"
	"log/slog"
)

type INotificationService interface {
	Notify(ctx context.Context, recipient, actor domain.UserID, kind domain.NotificationKind,
		entityID string, entityType domain.EntityType) (domain.Notification, error)
	MarkAllRead(ctx context.Context, recipient domain.UserID) (int, error)
	List(ctx context.Context, recipient domain.UserID) ([]domain.Notification, error)
}

type NotificationService struct {
	log      *slog.Logger
	registry *runtime.Registry
	store    contract.NotificationStore
	users    contract.UserStore
}

func NewNotificationService(log *slog.Logger, registry *runtime.Registry,
	store contract.NotificationStore, users contract.UserStore) *NotificationService {
	return &NotificationService{log: log, registry: registry, store: store, users: users}
}

// Notify persists one notification for recipient, whether online or not, and
// pushes it live when possible. An actor is never notified of its own action.
func (s *NotificationService) Notify(ctx context.Context, recipient, actor domain.UserID,
	kind domain.NotificationKind, entityID string, entityType domain.EntityType) (domain.Notification, error) {
	if recipient == actor {
		return domain.Notification{}, nil
	}

	notification, err := s.store.CreateNotification(ctx, domain.NotificationDraft{
		Recipient:  recipient,
		Actor:      actor,
		Kind:       kind,
		EntityID:   entityID,
		EntityType: entityType,
	})
	if err != nil {
		return domain.Notification{}, fmt.Errorf("%w: notification for %s: %v", errors.ErrPersistenceFailure, recipient, err)
	}

	conn, ok := s.registry.Lookup(recipient)
	if !ok || !conn.IsLive() {
		return notification, nil
	}
	if err := conn.Send(ctx, s.toEvent(ctx, notification)); err != nil {
		s.log.Warn("Failed to push notification", "recipient", recipient, "kind", kind, "error", err)
	}
	return notification, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipient domain.UserID) (int, error) {
	count, err := s.store.MarkNotificationsRead(ctx, recipient)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrPersistenceFailure, err)
	}
	return count, nil
}

func (s *NotificationService) List(ctx context.Context, recipient domain.UserID) ([]domain.Notification, error) {
	return s.store.ListNotifications(ctx, recipient)
}

func (s *NotificationService) toEvent(ctx context.Context, n domain.Notification) event.NewNotificationEvent {
	actorName := runtime.DisplayName(ctx, s.users, n.Actor)
	evt := event.NewNotificationEvent{
		ID:         n.ID.String(),
		Actor:      event.ActorView{Identity: n.Actor, DisplayName: actorName},
		Kind:       n.Kind,
		EntityID:   n.EntityID,
		EntityType: n.EntityType,
		Message:    describe(n.Kind, actorName),
		CreatedAt:  n.CreatedAt,
	}
	if n.EntityType == domain.EntityRoom {
		evt.RoomID = domain.RoomID(n.EntityID)
	}
	return evt
}

func describe(kind domain.NotificationKind, actorName string) string {
	switch kind {
	case domain.NotificationMessageSent:
		return actorName + " sent you a message"
	default:
		return actorName + " " + string(kind)
	}
}

package repositories

import (
	"chat-pulse/domain"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type NotificationRepository struct {
	db *badger.DB
}

func NewNotificationRepository(db *badger.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

type DiskNotification struct {
	ID         string
	Recipient  string
	Actor      string
	Kind       string
	EntityID   string
	EntityType string
	Read       bool
	At         int64
}

func notificationPrefix(recipient domain.UserID) string {
	return scopeKey("notif", string(recipient))
}

// CreateNotification always writes a new row, repeated events are not merged.
func (n NotificationRepository) CreateNotification(_ context.Context, draft domain.NotificationDraft) (domain.Notification, error) {
	createdAt := draft.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	notification := domain.Notification{
		ID:         uuid.New(),
		Recipient:  draft.Recipient,
		Actor:      draft.Actor,
		Kind:       draft.Kind,
		EntityID:   draft.EntityID,
		EntityType: draft.EntityType,
		CreatedAt:  createdAt,
	}
	key := notificationPrefix(draft.Recipient) + timeKey(createdAt.UnixNano()) + ":" + notification.ID.String()
	err := n.db.Update(func(txn *badger.Txn) error {
		return set(txn, key, fromNotification(notification))
	})
	if err != nil {
		return domain.Notification{}, err
	}
	return notification, nil
}

// ListNotifications returns the notifications of recipient, oldest first.
func (n NotificationRepository) ListNotifications(_ context.Context, recipient domain.UserID) ([]domain.Notification, error) {
	var notifications []domain.Notification
	err := n.db.View(func(txn *badger.Txn) error {
		return scan(txn, notificationPrefix(recipient), func(_ string, disk DiskNotification) error {
			notification, err := toNotification(disk)
			if err != nil {
				return err
			}
			notifications = append(notifications, notification)
			return nil
		})
	})
	return notifications, err
}

// MarkNotificationsRead flips every unread notification of recipient and
// returns how many changed.
func (n NotificationRepository) MarkNotificationsRead(_ context.Context, recipient domain.UserID) (int, error) {
	count := 0
	err := n.db.Update(func(txn *badger.Txn) error {
		unread := make(map[string]DiskNotification)
		err := scan(txn, notificationPrefix(recipient), func(key string, disk DiskNotification) error {
			if !disk.Read {
				disk.Read = true
				unread[key] = disk
			}
			return nil
		})
		if err != nil {
			return err
		}
		for key, disk := range unread {
			if err := set(txn, key, disk); err != nil {
				return err
			}
		}
		count = len(unread)
		return nil
	})
	return count, err
}

func fromNotification(notification domain.Notification) DiskNotification {
	return DiskNotification{
		ID:         notification.ID.String(),
		Recipient:  string(notification.Recipient),
		Actor:      string(notification.Actor),
		Kind:       string(notification.Kind),
		EntityID:   notification.EntityID,
		EntityType: string(notification.EntityType),
		Read:       notification.Read,
		At:         notification.CreatedAt.UnixNano(),
	}
}

func toNotification(disk DiskNotification) (domain.Notification, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Notification{}, err
	}
	return domain.Notification{
		ID:         parsedID,
		Recipient:  domain.UserID(disk.Recipient),
		Actor:      domain.UserID(disk.Actor),
		Kind:       domain.NotificationKind(disk.Kind),
		EntityID:   disk.EntityID,
		EntityType: domain.EntityType(disk.EntityType),
		Read:       disk.Read,
		CreatedAt:  time.Unix(0, disk.At).UTC(),
	}, nil
}

package services

import (
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/errors"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestNotificationService_Notify(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	service := NewNotificationService(f.log, f.registry, f.notifications, f.users)
	_, bob := f.connect(t, "bob")

	f.notifications.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).DoAndReturn(createdNotification).Times(2)

	// When bob is live, the notification is stored and pushed
	n, err := service.Notify(ctx, "bob", "alice", domain.NotificationMessageSent, "r1", domain.EntityRoom)
	req.NoError(err)
	req.Equal(domain.UserID("bob"), n.Recipient)
	pushed := bob.received(event.NewNotification)
	req.Len(pushed, 1)
	req.Equal(n.ID.String(), decodeAs[event.NewNotificationEvent](t, pushed[0]).ID)

	// When carol is offline, it is only stored
	n, err = service.Notify(ctx, "carol", "alice", domain.NotificationMessageSent, "r1", domain.EntityRoom)
	req.NoError(err)
	req.Equal(domain.UserID("carol"), n.Recipient)
}

func TestNotificationService_Notify_NeverNotifiesActor(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	service := NewNotificationService(f.log, f.registry, f.notifications, f.users)
	f.notifications.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).Times(0)

	_, err := service.Notify(context.Background(), "alice", "alice", domain.NotificationMessageSent, "r1", domain.EntityRoom)
	req.NoError(err)
}

func TestNotificationService_Notify_StoreFailure(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	service := NewNotificationService(f.log, f.registry, f.notifications, f.users)
	_, bob := f.connect(t, "bob")
	f.notifications.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).Return(domain.Notification{}, fmt.Errorf("disk full"))

	_, err := service.Notify(context.Background(), "bob", "alice", domain.NotificationMessageSent, "r1", domain.EntityRoom)
	req.ErrorIs(err, errors.ErrPersistenceFailure)
	req.Empty(bob.frames)
}

func TestNotificationService_MarkAllReadAndList(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	service := NewNotificationService(f.log, f.registry, f.notifications, f.users)

	f.notifications.EXPECT().MarkNotificationsRead(gomock.Any(), domain.UserID("bob")).Return(3, nil)
	f.notifications.EXPECT().ListNotifications(gomock.Any(), domain.UserID("bob")).
		Return([]domain.Notification{{Recipient: "bob", Read: true}}, nil)

	count, err := service.MarkAllRead(ctx, "bob")
	req.NoError(err)
	req.Equal(3, count)

	list, err := service.List(ctx, "bob")
	req.NoError(err)
	req.Len(list, 1)
	req.True(list[0].Read)
}

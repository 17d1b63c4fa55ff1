package services

import (
	"context"

	"github.com/google/uuid"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

type NotificationsService struct {
	mylog         mylogger.Logger
	notifications ports.INotificationRepo
}

func NewNotificationsService(log mylogger.Logger, notifications ports.INotificationRepo) ports.INotificationService {
	return &NotificationsService{
		mylog:         log,
		notifications: notifications,
	}
}

func (ns *NotificationsService) ListNotifications(ctx context.Context, actor model.Principal) ([]model.Notification, error) {
	return ns.notifications.ListByUser(ctx, actor.ID)
}

// MarkRead flips is_read, the only mutable field on a notification.
func (ns *NotificationsService) MarkRead(ctx context.Context, actor model.Principal, id uuid.UUID) error {
	return ns.notifications.MarkRead(ctx, id, actor.ID)
}

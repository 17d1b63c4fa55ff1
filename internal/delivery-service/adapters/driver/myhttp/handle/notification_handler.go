package handle

import (
	"net/http"

	"dropx/internal/delivery-service/core/domain/dto"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

type NotificationHandler struct {
	notificationService ports.INotificationService
	log                 mylogger.Logger
}

func NewNotificationHandler(ns ports.INotificationService, log mylogger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: ns,
		log:                 log,
	}
}

func (nh *NotificationHandler) ListNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		notifications, err := nh.notificationService.ListNotifications(r.Context(), principal)
		if err != nil {
			serviceError(w, err)
			return
		}

		res := make([]dto.NotificationResponseDto, 0, len(notifications))
		for _, n := range notifications {
			res = append(res, dto.NotificationResponseDto{
				NotificationID: n.ID,
				DeliveryID:     n.DeliveryID,
				Type:           n.Type,
				Message:        n.Message,
				IsRead:         n.IsRead,
			})
		}
		jsonResponse(w, http.StatusOK, res)
	}
}

func (nh *NotificationHandler) MarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		id, err := pathUUID(r, "notification_id")
		if err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		if err := nh.notificationService.MarkRead(r.Context(), principal, id); err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]string{"status": "read"})
	}
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

// Dispatcher turns the explicit event list a transition emitted into side
// effects: deduplicated notification rows plus a broker publish. Failures
// here are logged and dropped; the transition that produced the events has
// already committed and never rolls back for a side effect.
type Dispatcher struct {
	mylog         mylogger.Logger
	notifications ports.INotificationRepo
	broker        ports.IEventBroker
}

func NewDispatcher(log mylogger.Logger, notifications ports.INotificationRepo, broker ports.IEventBroker) ports.IDispatcher {
	return &Dispatcher{
		mylog:         log,
		notifications: notifications,
		broker:        broker,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, events []model.Event) {
	log := d.mylog.Action("Dispatch")

	for _, ev := range events {
		for _, r := range ev.Recipients {
			created, err := d.notifications.CreateIfAbsent(ctx, model.Notification{
				ID:         uuid.New(),
				UserID:     r.UserID,
				DeliveryID: ev.DeliveryID,
				Type:       r.Type,
				Message:    r.Message,
				CreatedAt:  time.Now(),
			})
			if err != nil {
				log.Error("cannot create notification", err, "kind", string(ev.Kind), "user-id", r.UserID)
				continue
			}
			if !created {
				log.Debug("notification already exists, skipped", "kind", string(ev.Kind), "user-id", r.UserID, "type", r.Type)
			}
		}

		if d.broker == nil {
			continue
		}
		if err := d.broker.Publish(ctx, ev); err != nil {
			log.Error("cannot publish event", err, "kind", string(ev.Kind))
		}
	}
}

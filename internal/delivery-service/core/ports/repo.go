package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dropx/internal/delivery-service/core/domain/model"
)

type ICityRepo interface {
	// GetOrCreate is idempotent on (name, state, country). The first writer's
	// coordinates win unless supplied again on a later backfill.
	GetOrCreate(ctx context.Context, city model.City) (model.City, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.City, error)
}

type IPostRepo interface {
	Create(ctx context.Context, post *model.DriverPost) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.DriverPost, error)
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.DriverPost, error)
	// ListOpen returns Active/Booked posts, optionally filtered by city pair.
	ListOpen(ctx context.Context, startCity, endCity string) ([]model.DriverPost, error)
	Update(ctx context.Context, post *model.DriverPost) error
	// CommittedWeight is the display-path (lock-free, eventually consistent)
	// sum of weights committed to the post.
	CommittedWeight(ctx context.Context, postID uuid.UUID) (float64, error)
	// ExpireDeparted flips Active posts whose departure date has passed to
	// Expired and returns how many it touched.
	ExpireDeparted(ctx context.Context, now time.Time) (int64, error)
	AppendLog(ctx context.Context, log model.PostLog) error
	Logs(ctx context.Context, postID uuid.UUID) ([]model.PostLog, error)
}

type IDeliveryRepo interface {
	// Create persists the delivery, its packages and its computed route as
	// one atomic write.
	Create(ctx context.Context, d *model.Delivery, route *model.Route) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
	ListBySender(ctx context.Context, senderID uuid.UUID) ([]model.Delivery, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]model.Delivery, error)
	// UpdateStatus is a compare-and-swap on (status, status_version); a false
	// return means a concurrent transition won.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.DeliveryStatus, version int) (bool, error)
	// Assign moves a post-free delivery straight to Assigned under the given
	// driver (direct driver assignment, no capacity involved).
	Assign(ctx context.Context, id, driverID uuid.UUID, from model.DeliveryStatus, version int) (bool, error)
	SetReviewEligible(ctx context.Context, id uuid.UUID) error
	AppendLog(ctx context.Context, log model.DeliveryLog) error
	Logs(ctx context.Context, deliveryID uuid.UUID) ([]model.DeliveryLog, error)
}

type IPaymentRepo interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByDelivery(ctx context.Context, deliveryID uuid.UUID) (*model.Payment, error)
	// MarkCompleted records the confirmation. It only moves a Pending payment
	// (a lost race surfaces as a conflict); a duplicate transaction id
	// surfaces as myerrors.ErrDuplicateTxn.
	MarkCompleted(ctx context.Context, id uuid.UUID, transactionID string) error
	// MarkRefunded only moves a Completed payment.
	MarkRefunded(ctx context.Context, id uuid.UUID, amount float64) error
}

type INotificationRepo interface {
	// CreateIfAbsent inserts unless a row with the same
	// (user, delivery, type) triple exists. Returns whether it inserted.
	CreateIfAbsent(ctx context.Context, n model.Notification) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type IProfileRepo interface {
	// DriverProfile reads the verification subsystem's view of a driver.
	DriverProfile(ctx context.Context, userID uuid.UUID) (model.DriverProfile, error)
}

// IMatchTx is the unit of work the matching engine and the cancel path run
// while holding the lock on one driver post. Everything done through it
// commits or rolls back as a whole.
type IMatchTx interface {
	Post() *model.DriverPost
	// CommittedWeight sums package weights of deliveries bound to the locked
	// post with status in {Assigned, InTransit}.
	CommittedWeight(ctx context.Context) (float64, error)
	// BindDelivery assigns the delivery to the given driver and moves it to
	// Assigned, compare-and-swapped against (from, version).
	BindDelivery(ctx context.Context, deliveryID uuid.UUID, driverID uuid.UUID, from model.DeliveryStatus, version int) (bool, error)
	SetDeliveryStatus(ctx context.Context, deliveryID uuid.UUID, from, to model.DeliveryStatus, version int) (bool, error)
	SetPostStatus(ctx context.Context, status model.PostStatus) error
	IncrementMatchRequests(ctx context.Context) (int, error)
	AppendDeliveryLog(ctx context.Context, log model.DeliveryLog) error
	AppendPostLog(ctx context.Context, log model.PostLog) error
}

// ITxRunner opens the per-post critical section. The SQL adapter implements
// it with a row lock; in-memory implementations use a per-post mutex.
type ITxRunner interface {
	WithPost(ctx context.Context, postID uuid.UUID, fn func(tx IMatchTx) error) error
}

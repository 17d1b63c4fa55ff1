package ports

import (
	"context"

	"github.com/google/uuid"

	"dropx/internal/delivery-service/core/domain/dto"
	"dropx/internal/delivery-service/core/domain/model"
)

type ICatalogService interface {
	GetOrCreateCity(ctx context.Context, req dto.CityDto) (model.City, error)
	// ComputeRoute degrades to a zero-distance route when the provider is
	// unreachable; the second return reports the degradation.
	ComputeRoute(ctx context.Context, origin, dest model.Address) (RouteResult, error)
}

type IPostsService interface {
	CreatePost(ctx context.Context, driver model.Principal, req dto.CreatePostDto) (*model.DriverPost, error)
	UpdatePost(ctx context.Context, driver model.Principal, postID uuid.UUID, req dto.UpdatePostDto) (*model.DriverPost, error)
	ListOpenPosts(ctx context.Context, startCity, endCity string) ([]model.DriverPost, error)
	ListOwnPosts(ctx context.Context, driver model.Principal) ([]model.DriverPost, error)
	// MatchPost is the coarse multi-sender matching mode: counted match
	// requests up to a cap, then the post flips to Booked.
	MatchPost(ctx context.Context, sender model.Principal, postID uuid.UUID) (dto.MatchResultDto, error)
}

type IDeliveryService interface {
	CreateDelivery(ctx context.Context, sender model.Principal, req dto.CreateDeliveryDto) (*model.Delivery, error)
	GetDelivery(ctx context.Context, actor model.Principal, id uuid.UUID) (*model.Delivery, error)
	ListDeliveries(ctx context.Context, actor model.Principal) ([]model.Delivery, error)
	// AcceptDelivery is the weight-checked matching mode: route + capacity
	// validated and bound in one atomic unit.
	AcceptDelivery(ctx context.Context, driver model.Principal, deliveryID uuid.UUID) (*model.Delivery, error)
	// TransitionDelivery drives the remaining lifecycle: InTransit (payment
	// gated), Delivered, Cancelled.
	TransitionDelivery(ctx context.Context, actor model.Principal, deliveryID uuid.UUID, target model.DeliveryStatus) (*model.Delivery, error)
}

type IPaymentService interface {
	GetPayment(ctx context.Context, actor model.Principal, id uuid.UUID) (*model.Payment, error)
	// ConfirmPayment: confirmed by the delivery's resolved driver; EasyPaisa
	// additionally carries the wallet transaction id.
	ConfirmPayment(ctx context.Context, actor model.Principal, paymentID uuid.UUID, transactionID string) (*model.Payment, error)
	RefundPayment(ctx context.Context, actor model.Principal, paymentID uuid.UUID, amount float64) (*model.Payment, error)
}

type INotificationService interface {
	ListNotifications(ctx context.Context, actor model.Principal) ([]model.Notification, error)
	MarkRead(ctx context.Context, actor model.Principal, id uuid.UUID) error
}

// IDispatcher consumes the events a transition emitted: notification rows
// (deduplicated) plus the broker publish. Dispatch never returns an error to
// the transition; side-effect failures are logged and dropped.
type IDispatcher interface {
	Dispatch(ctx context.Context, events []model.Event)
}

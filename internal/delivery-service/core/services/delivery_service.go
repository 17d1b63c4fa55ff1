package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dropx/internal/config"
	"dropx/internal/delivery-service/core/domain/dto"
	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/myerrors"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

type DeliveryService struct {
	mylog      mylogger.Logger
	deliveries ports.IDeliveryRepo
	posts      ports.IPostRepo
	payments   ports.IPaymentRepo
	profiles   ports.IProfileRepo
	catalog    ports.ICatalogService
	runner     ports.ITxRunner
	dispatcher ports.IDispatcher
	pricing    *config.Pricingconfig
	matchCfg   *config.Matchingconfig
}

func NewDeliveryService(
	log mylogger.Logger,
	deliveries ports.IDeliveryRepo,
	posts ports.IPostRepo,
	payments ports.IPaymentRepo,
	profiles ports.IProfileRepo,
	catalog ports.ICatalogService,
	runner ports.ITxRunner,
	dispatcher ports.IDispatcher,
	pricing *config.Pricingconfig,
	matchCfg *config.Matchingconfig,
) ports.IDeliveryService {
	return &DeliveryService{
		mylog:      log,
		deliveries: deliveries,
		posts:      posts,
		payments:   payments,
		profiles:   profiles,
		catalog:    catalog,
		runner:     runner,
		dispatcher: dispatcher,
		pricing:    pricing,
		matchCfg:   matchCfg,
	}
}

// routeMatches compares delivery city strings against the post's route.
func routeMatches(d *model.Delivery, post *model.DriverPost) bool {
	return strings.EqualFold(strings.TrimSpace(d.Pickup.City), post.StartCity.Name) &&
		strings.EqualFold(strings.TrimSpace(d.Dropoff.City), post.EndCity.Name)
}

func (ds *DeliveryService) CreateDelivery(ctx context.Context, sender model.Principal, req dto.CreateDeliveryDto) (*model.Delivery, error) {
	log := ds.mylog.Action("CreateDelivery")

	if !sender.HasCapability(model.CapabilitySend) {
		return nil, myerrors.E(myerrors.KindPermission, "only senders can create deliveries")
	}
	if len(req.Packages) == 0 {
		return nil, myerrors.E(myerrors.KindValidation, "at least one package is required")
	}
	if req.Pickup == nil || req.Dropoff == nil ||
		strings.TrimSpace(req.Pickup.City) == "" || strings.TrimSpace(req.Dropoff.City) == "" {
		return nil, myerrors.E(myerrors.KindValidation, "pickup and dropoff addresses with a city are required")
	}
	if req.DeliveryDate == nil {
		return nil, myerrors.E(myerrors.KindValidation, "delivery_date is required")
	}
	deliveryDate, err := time.Parse("2006-01-02", *req.DeliveryDate)
	if err != nil {
		return nil, myerrors.E(myerrors.KindValidation, "delivery_date must be YYYY-MM-DD")
	}
	today := time.Now().Truncate(24 * time.Hour)
	if deliveryDate.Before(today) {
		return nil, myerrors.E(myerrors.KindValidation, "delivery_date cannot be in the past")
	}

	d := &model.Delivery{
		ID:           uuid.New(),
		SenderID:     sender.ID,
		ReceiverID:   req.ReceiverID,
		DriverPostID: req.DriverPostID,
		Pickup:       model.Address(*req.Pickup),
		Dropoff:      model.Address(*req.Dropoff),
		DeliveryDate: deliveryDate,
		Status:       model.DeliveryPending,
	}
	for _, p := range req.Packages {
		if p.Weight == nil || *p.Weight <= 0 {
			return nil, myerrors.E(myerrors.KindValidation, "every package needs a positive weight")
		}
		d.Packages = append(d.Packages, model.Package{
			ID:          uuid.New(),
			DeliveryID:  d.ID,
			Description: p.Description,
			Weight:      *p.Weight,
			Dimensions:  p.Dimensions,
			IsFragile:   p.IsFragile,
		})
	}

	// Route-bound deliveries must agree with the post's cities from day one.
	if req.DriverPostID != nil {
		post, err := ds.posts.GetByID(ctx, *req.DriverPostID)
		if err != nil {
			return nil, err
		}
		if !post.Open() {
			return nil, myerrors.ErrPostUnavailable
		}
		if !routeMatches(d, post) {
			return nil, myerrors.ErrRouteMismatch
		}
		d.PostOwnerID = &post.UserID
	}

	// Registers the city pair; failures here are real (catalog is local).
	if _, err := ds.catalog.GetOrCreateCity(ctx, dto.CityDto{Name: d.Pickup.City}); err != nil {
		return nil, err
	}
	if _, err := ds.catalog.GetOrCreateCity(ctx, dto.CityDto{Name: d.Dropoff.City}); err != nil {
		return nil, err
	}

	// External routing happens before any lock is taken and may degrade.
	routeRes, err := ds.catalog.ComputeRoute(ctx, d.Pickup, d.Dropoff)
	if err != nil {
		return nil, err
	}
	if routeRes.Degraded {
		log.Warn("route degraded, cost falls back to weight component", "delivery-id", d.ID)
	}

	d.TotalCost = routeRes.DistanceKm*ds.pricing.RatePerKm + d.TotalWeight()*ds.pricing.RatePerKg

	route := &model.Route{
		ID:         uuid.New(),
		DeliveryID: d.ID,
		DistanceKm: routeRes.DistanceKm,
		Path:       routeRes.Path,
	}
	if err := ds.deliveries.Create(ctx, d, route); err != nil {
		log.Error("cannot create delivery", err)
		return nil, err
	}

	if err := ds.deliveries.AppendLog(ctx, model.DeliveryLog{
		ID:         uuid.New(),
		DeliveryID: d.ID,
		Action:     "Delivery Created",
		Comments:   fmt.Sprintf("Delivery created by sender %s, %d package(s), %.2f kg, cost %.2f", sender.ID, len(d.Packages), d.TotalWeight(), d.TotalCost),
	}); err != nil {
		log.Error("cannot append delivery log", err)
	}

	events := []model.Event{deliveryEvent(model.EventDeliveryCreated, d, model.NotifDeliveryCreated,
		fmt.Sprintf("Delivery %s created.", d.ID),
		fmt.Sprintf("You have a new delivery %s to receive.", d.ID))}

	if d.TotalCost > 0 {
		payment, payEvents, err := ds.initiatePayment(ctx, d)
		if err != nil {
			log.Error("cannot initiate payment", err, "delivery-id", d.ID)
		} else {
			log.Info("payment initiated", "payment-id", payment.ID, "method", payment.Method)
			events = append(events, payEvents...)
		}
	}

	ds.dispatcher.Dispatch(ctx, events)

	log.Info("delivery created", "delivery-id", d.ID, "sender-id", sender.ID, "cost", d.TotalCost)
	return d, nil
}

// initiatePayment auto-creates the Pending payment for a costed delivery.
// EasyPaisa when the resolved driver's wallet number is on file, else Cash.
func (ds *DeliveryService) initiatePayment(ctx context.Context, d *model.Delivery) (*model.Payment, []model.Event, error) {
	method := model.PaymentCash
	driverPhone := ""
	if driverID, ok := d.ResolvedDriver(); ok {
		profile, err := ds.profiles.DriverProfile(ctx, driverID)
		if err == nil && profile.EasyPaisaPhone != "" {
			method = model.PaymentEasyPaisa
			driverPhone = profile.EasyPaisaPhone
		}
	}

	payment := &model.Payment{
		ID:                   uuid.New(),
		DeliveryID:           d.ID,
		UserID:               d.SenderID,
		Amount:               d.TotalCost,
		Method:               method,
		Status:               model.PaymentPending,
		RefundStatus:         model.RefundNone,
		DriverEasyPaisaPhone: driverPhone,
	}
	if err := ds.payments.Create(ctx, payment); err != nil {
		return nil, nil, err
	}

	if err := ds.deliveries.AppendLog(ctx, model.DeliveryLog{
		ID:         uuid.New(),
		DeliveryID: d.ID,
		Action:     "Payment Initiated",
		Comments:   fmt.Sprintf("Payment %s pending. Method: %s.", payment.ID, method),
	}); err != nil {
		ds.mylog.Action("initiatePayment").Error("cannot append delivery log", err)
	}

	events := []model.Event{{
		Kind:       model.EventPaymentInitiated,
		DeliveryID: &d.ID,
		OccurredAt: time.Now(),
		Recipients: []model.Recipient{{
			UserID:  d.SenderID,
			Type:    model.NotifPaymentInitiated,
			Message: fmt.Sprintf("Payment of %.2f initiated. Please pay via %s.", payment.Amount, method),
		}},
	}}

	// Opening the chat channel rides on payment initiation: the room seeds
	// with the payment instructions.
	chat := model.Event{
		Kind:       model.EventChatOpened,
		DeliveryID: &d.ID,
		OccurredAt: time.Now(),
	}
	seed := fmt.Sprintf("%s payment of %.2f pending for delivery %s.", method, payment.Amount, d.ID)
	if method == model.PaymentEasyPaisa {
		seed += fmt.Sprintf(" Sender: send to %s and confirm here.", driverPhone)
	} else {
		seed += " Please discuss terms."
	}
	chat.Recipients = append(chat.Recipients, model.Recipient{
		UserID:  d.SenderID,
		Type:    model.NotifChatOpened,
		Message: seed,
	})
	if driverID, ok := d.ResolvedDriver(); ok {
		chat.Recipients = append(chat.Recipients, model.Recipient{
			UserID:  driverID,
			Type:    model.NotifChatOpened,
			Message: seed,
		})
	}
	events = append(events, chat)

	return payment, events, nil
}

func (ds *DeliveryService) GetDelivery(ctx context.Context, actor model.Principal, id uuid.UUID) (*model.Delivery, error) {
	d, err := ds.deliveries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ds.mayView(actor, d) {
		return nil, myerrors.E(myerrors.KindPermission, "not a party to this delivery")
	}
	return d, nil
}

func (ds *DeliveryService) mayView(actor model.Principal, d *model.Delivery) bool {
	if actor.ID == d.SenderID {
		return true
	}
	if d.ReceiverID != nil && actor.ID == *d.ReceiverID {
		return true
	}
	if driverID, ok := d.ResolvedDriver(); ok && actor.ID == driverID {
		return true
	}
	return false
}

func (ds *DeliveryService) ListDeliveries(ctx context.Context, actor model.Principal) ([]model.Delivery, error) {
	if actor.HasCapability(model.CapabilityDrive) && !actor.HasCapability(model.CapabilitySend) {
		return ds.deliveries.ListByDriver(ctx, actor.ID)
	}
	return ds.deliveries.ListBySender(ctx, actor.ID)
}

// AcceptDelivery is the weight-checked matching mode. All checks and the
// resulting mutation run while the post row is locked, so two drivers (or
// two deliveries) can never over-commit the same post.
func (ds *DeliveryService) AcceptDelivery(ctx context.Context, driver model.Principal, deliveryID uuid.UUID) (*model.Delivery, error) {
	log := ds.mylog.Action("AcceptDelivery")

	if !driver.HasCapability(model.CapabilityDrive) {
		return nil, myerrors.E(myerrors.KindPermission, "only drivers can accept deliveries")
	}
	if !driver.Verified {
		return nil, myerrors.E(myerrors.KindPermission, "only verified drivers can accept deliveries")
	}

	d, err := ds.deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if d.Status != model.DeliveryPending {
		return nil, myerrors.E(myerrors.KindConflict, "delivery is no longer pending")
	}

	// Direct driver assignment: no post, no capacity involved.
	if d.DriverPostID == nil {
		ok, err := ds.deliveries.Assign(ctx, d.ID, driver.ID, model.DeliveryPending, d.StatusVersion)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, myerrors.E(myerrors.KindConflict, "delivery was modified concurrently")
		}
		if err := ds.deliveries.AppendLog(ctx, model.DeliveryLog{
			ID:         uuid.New(),
			DeliveryID: d.ID,
			Action:     "Delivery Accepted",
			Comments:   fmt.Sprintf("Delivery accepted directly by driver %s", driver.ID),
		}); err != nil {
			log.Error("cannot append delivery log", err)
		}
		d.DriverID = &driver.ID
		d.Status = model.DeliveryAssigned
		ds.dispatcher.Dispatch(ctx, []model.Event{deliveryEvent(model.EventDeliveryAssigned, d, model.NotifDeliveryAccepted,
			fmt.Sprintf("Delivery %s accepted by driver %s.", d.ID, driver.ID),
			fmt.Sprintf("Delivery %s has been accepted by a driver.", d.ID))})
		return d, nil
	}

	err = ds.runner.WithPost(ctx, *d.DriverPostID, func(tx ports.IMatchTx) error {
		post := tx.Post()

		if !post.Open() {
			return myerrors.ErrPostUnavailable
		}
		if post.UserID != driver.ID {
			return myerrors.ErrNotOwner
		}
		if !routeMatches(d, post) {
			return myerrors.ErrRouteMismatch
		}

		committed, err := tx.CommittedWeight(ctx)
		if err != nil {
			return err
		}
		if WouldExceed(d.TotalWeight(), Remaining(post.MaxWeight, committed)) {
			return myerrors.ErrCapacityExceeded
		}

		ok, err := tx.BindDelivery(ctx, d.ID, driver.ID, model.DeliveryPending, d.StatusVersion)
		if err != nil {
			return err
		}
		if !ok {
			return myerrors.E(myerrors.KindConflict, "delivery was modified concurrently")
		}

		if err := tx.SetPostStatus(ctx, model.PostBooked); err != nil {
			return err
		}

		if err := tx.AppendDeliveryLog(ctx, model.DeliveryLog{
			ID:         uuid.New(),
			DeliveryID: d.ID,
			Action:     "Delivery Accepted",
			Comments:   fmt.Sprintf("Delivery accepted by driver %s on post %s", driver.ID, post.ID),
		}); err != nil {
			return err
		}
		return tx.AppendPostLog(ctx, model.PostLog{
			ID:       uuid.New(),
			PostID:   post.ID,
			Action:   "Post Booked",
			Comments: fmt.Sprintf("Post booked by delivery %s (%.2f kg of %.2f kg)", d.ID, d.TotalWeight(), post.MaxWeight),
		})
	})
	if err != nil {
		return nil, err
	}

	d.DriverID = &driver.ID
	d.Status = model.DeliveryAssigned
	ds.dispatcher.Dispatch(ctx, []model.Event{deliveryEvent(model.EventDeliveryAssigned, d, model.NotifDeliveryAccepted,
		fmt.Sprintf("Delivery %s accepted by driver %s.", d.ID, driver.ID),
		fmt.Sprintf("Delivery %s has been accepted by a driver.", d.ID))})

	log.Info("delivery accepted", "delivery-id", d.ID, "driver-id", driver.ID, "post-id", *d.DriverPostID)
	return d, nil
}

// TransitionDelivery drives the rest of the lifecycle. Assigned is reachable
// only through the matching engine, never through here.
func (ds *DeliveryService) TransitionDelivery(ctx context.Context, actor model.Principal, deliveryID uuid.UUID, target model.DeliveryStatus) (*model.Delivery, error) {
	log := ds.mylog.Action("TransitionDelivery")

	d, err := ds.deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if target == model.DeliveryAssigned {
		return nil, myerrors.ErrInvalidTransition
	}
	if !model.CanTransition(d.Status, target) {
		return nil, myerrors.ErrInvalidTransition
	}

	switch target {
	case model.DeliveryInTransit:
		return ds.startTransit(ctx, actor, d, log)
	case model.DeliveryDelivered:
		return ds.markDelivered(ctx, actor, d, log)
	case model.DeliveryCancelled:
		return ds.cancel(ctx, actor, d, log)
	}
	return nil, myerrors.ErrInvalidTransition
}

// startTransit enforces the payment gate: a delivery never departs before
// its payment is Completed.
func (ds *DeliveryService) startTransit(ctx context.Context, actor model.Principal, d *model.Delivery, log mylogger.Logger) (*model.Delivery, error) {
	driverID, ok := d.ResolvedDriver()
	if !ok || actor.ID != driverID {
		return nil, myerrors.E(myerrors.KindPermission, "only the assigned driver can start transit")
	}

	payment, err := ds.payments.GetByDelivery(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentCompleted {
		return nil, myerrors.ErrPaymentNotCompleted
	}

	okSwap, err := ds.deliveries.UpdateStatus(ctx, d.ID, d.Status, model.DeliveryInTransit, d.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !okSwap {
		return nil, myerrors.E(myerrors.KindConflict, "delivery was modified concurrently")
	}

	if err := ds.deliveries.AppendLog(ctx, model.DeliveryLog{
		ID:         uuid.New(),
		DeliveryID: d.ID,
		Action:     "Delivery In Transit",
		Comments:   fmt.Sprintf("Driver %s started transit", actor.ID),
	}); err != nil {
		log.Error("cannot append delivery log", err)
	}

	d.Status = model.DeliveryInTransit
	ds.dispatcher.Dispatch(ctx, []model.Event{deliveryEvent(model.EventDeliveryInTransit, d, model.NotifDeliveryInTransit,
		fmt.Sprintf("Delivery %s is in transit.", d.ID),
		fmt.Sprintf("Delivery %s is on its way.", d.ID))})

	log.Info("delivery in transit", "delivery-id", d.ID)
	return d, nil
}

func (ds *DeliveryService) markDelivered(ctx context.Context, actor model.Principal, d *model.Delivery, log mylogger.Logger) (*model.Delivery, error) {
	driverID, ok := d.ResolvedDriver()
	if !ok || actor.ID != driverID {
		return nil, myerrors.E(myerrors.KindPermission, "only the assigned driver can confirm delivery")
	}

	okSwap, err := ds.deliveries.UpdateStatus(ctx, d.ID, d.Status, model.DeliveryDelivered, d.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !okSwap {
		return nil, myerrors.E(myerrors.KindConflict, "delivery was modified concurrently")
	}

	// Delivered is terminal; the review subsystem may now accept reviews
	// referencing this delivery.
	if err := ds.deliveries.SetReviewEligible(ctx, d.ID); err != nil {
		log.Error("cannot mark review eligibility", err)
	}

	if err := ds.deliveries.AppendLog(ctx, model.DeliveryLog{
		ID:         uuid.New(),
		DeliveryID: d.ID,
		Action:     "Delivery Completed",
		Comments:   fmt.Sprintf("Driver %s confirmed delivery", actor.ID),
	}); err != nil {
		log.Error("cannot append delivery log", err)
	}

	d.Status = model.DeliveryDelivered
	d.ReviewEligible = true
	ds.dispatcher.Dispatch(ctx, []model.Event{deliveryEvent(model.EventDeliveryDelivered, d, model.NotifDeliveryCompleted,
		fmt.Sprintf("Delivery %s has been delivered.", d.ID),
		fmt.Sprintf("Delivery %s has been delivered to you.", d.ID))})

	log.Info("delivery completed", "delivery-id", d.ID)
	return d, nil
}

// cancel is sender-initiated and allowed until the driver marks InTransit.
// Cancelling an Assigned delivery releases its capacity and reverts a post
// that was Booked solely because of it back to Active.
func (ds *DeliveryService) cancel(ctx context.Context, actor model.Principal, d *model.Delivery, log mylogger.Logger) (*model.Delivery, error) {
	if actor.ID != d.SenderID {
		return nil, myerrors.E(myerrors.KindPermission, "only the sender can cancel a delivery")
	}

	if d.DriverPostID != nil && d.Committed() {
		err := ds.runner.WithPost(ctx, *d.DriverPostID, func(tx ports.IMatchTx) error {
			ok, err := tx.SetDeliveryStatus(ctx, d.ID, d.Status, model.DeliveryCancelled, d.StatusVersion)
			if err != nil {
				return err
			}
			if !ok {
				return myerrors.E(myerrors.KindConflict, "delivery was modified concurrently")
			}

			post := tx.Post()
			committed, err := tx.CommittedWeight(ctx)
			if err != nil {
				return err
			}
			// The cancelled delivery no longer counts; if nothing else holds
			// the post and the match-request cap isn't the reason it is
			// Booked, reopen it.
			if committed == 0 && post.Status == model.PostBooked && post.MatchRequests < ds.matchCfg.MaxMatchRequests {
				if err := tx.SetPostStatus(ctx, model.PostActive); err != nil {
					return err
				}
				if err := tx.AppendPostLog(ctx, model.PostLog{
					ID:       uuid.New(),
					PostID:   post.ID,
					Action:   "Post Reopened",
					Comments: fmt.Sprintf("Post reopened after delivery %s was cancelled", d.ID),
				}); err != nil {
					return err
				}
			}

			return tx.AppendDeliveryLog(ctx, model.DeliveryLog{
				ID:         uuid.New(),
				DeliveryID: d.ID,
				Action:     "Delivery Cancelled",
				Comments:   fmt.Sprintf("Delivery cancelled by sender %s", actor.ID),
			})
		})
		if err != nil {
			return nil, err
		}
	} else {
		ok, err := ds.deliveries.UpdateStatus(ctx, d.ID, d.Status, model.DeliveryCancelled, d.StatusVersion)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, myerrors.E(myerrors.KindConflict, "delivery was modified concurrently")
		}
		if err := ds.deliveries.AppendLog(ctx, model.DeliveryLog{
			ID:         uuid.New(),
			DeliveryID: d.ID,
			Action:     "Delivery Cancelled",
			Comments:   fmt.Sprintf("Delivery cancelled by sender %s", actor.ID),
		}); err != nil {
			log.Error("cannot append delivery log", err)
		}
	}

	d.Status = model.DeliveryCancelled
	ds.dispatcher.Dispatch(ctx, []model.Event{deliveryEvent(model.EventDeliveryCancelled, d, model.NotifDeliveryCancelled,
		fmt.Sprintf("Delivery %s has been cancelled.", d.ID),
		fmt.Sprintf("Delivery %s has been cancelled.", d.ID))})

	log.Info("delivery cancelled", "delivery-id", d.ID)
	return d, nil
}

// deliveryEvent builds a lifecycle event notifying every interested party:
// sender, receiver when present, resolved driver when present.
func deliveryEvent(kind model.EventKind, d *model.Delivery, notifType, senderMsg, otherMsg string) model.Event {
	ev := model.Event{
		Kind:       kind,
		DeliveryID: &d.ID,
		PostID:     d.DriverPostID,
		OccurredAt: time.Now(),
		Recipients: []model.Recipient{{
			UserID:  d.SenderID,
			Type:    notifType,
			Message: senderMsg,
		}},
	}
	if d.ReceiverID != nil {
		ev.Recipients = append(ev.Recipients, model.Recipient{
			UserID:  *d.ReceiverID,
			Type:    notifType,
			Message: otherMsg,
		})
	}
	if driverID, ok := d.ResolvedDriver(); ok && driverID != d.SenderID {
		ev.Recipients = append(ev.Recipients, model.Recipient{
			UserID:  driverID,
			Type:    notifType,
			Message: otherMsg,
		})
	}
	return ev
}

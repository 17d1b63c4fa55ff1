package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropx/internal/config"
	"dropx/internal/delivery-service/core/domain/dto"
	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/myerrors"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

type env struct {
	cities        *fakeCityRepo
	posts         *fakePostRepo
	deliveries    *fakeDeliveryRepo
	payments      *fakePaymentRepo
	notifications *fakeNotificationRepo
	profiles      *fakeProfileRepo
	runner        *fakeRunner
	route         *fakeRouteProvider

	catalogSvc  ports.ICatalogService
	deliverySvc ports.IDeliveryService
	postsSvc    ports.IPostsService
	paymentSvc  ports.IPaymentService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log, err := mylogger.New(mylogger.LevelError)
	require.NoError(t, err)

	e := &env{
		cities:        newFakeCityRepo(),
		deliveries:    newFakeDeliveryRepo(),
		payments:      newFakePaymentRepo(),
		notifications: newFakeNotificationRepo(),
		profiles:      newFakeProfileRepo(),
		route:         &fakeRouteProvider{},
	}
	e.posts = newFakePostRepo(e.deliveries)
	e.runner = newFakeRunner(e.posts, e.deliveries)

	pricing := &config.Pricingconfig{RatePerKm: 1.0, RatePerKg: 0.5}
	matching := &config.Matchingconfig{MaxMatchRequests: 3}

	dispatcher := NewDispatcher(log, e.notifications, nil)
	e.catalogSvc = NewCatalogService(log, e.cities, e.route)
	e.postsSvc = NewPostsService(log, e.posts, e.profiles, e.catalogSvc, e.runner, dispatcher, matching)
	e.deliverySvc = NewDeliveryService(log, e.deliveries, e.posts, e.payments, e.profiles, e.catalogSvc, e.runner, dispatcher, pricing, matching)
	e.paymentSvc = NewPaymentService(log, e.payments, e.deliveries, dispatcher)
	return e
}

func (e *env) verifiedDriver(phone string) model.Principal {
	driver := model.Principal{ID: uuid.New(), Role: model.RoleDriver, Verified: true}
	e.profiles.put(model.DriverProfile{
		UserID:             driver.ID,
		IsDriverVerified:   true,
		EasyPaisaPhone:     phone,
		HasApprovedVehicle: true,
	})
	return driver
}

func (e *env) seedPost(owner model.Principal, start, end string, maxWeight float64) *model.DriverPost {
	post := &model.DriverPost{
		ID:            uuid.New(),
		UserID:        owner.ID,
		VehicleID:     uuid.New(),
		StartCity:     model.City{ID: uuid.New(), Name: start},
		EndCity:       model.City{ID: uuid.New(), Name: end},
		DepartureDate: time.Now().AddDate(0, 0, 7),
		DepartureTime: "09:00",
		MaxWeight:     maxWeight,
		Status:        model.PostActive,
	}
	if err := e.posts.Create(context.Background(), post); err != nil {
		panic(err)
	}
	return post
}

func futureDate() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func weights(ws ...float64) []dto.PackageDto {
	out := make([]dto.PackageDto, 0, len(ws))
	for i := range ws {
		out = append(out, dto.PackageDto{Description: "box", Weight: &ws[i]})
	}
	return out
}

func createRequest(start, end string, postID *uuid.UUID, packages []dto.PackageDto) dto.CreateDeliveryDto {
	date := futureDate()
	return dto.CreateDeliveryDto{
		DriverPostID: postID,
		Pickup:       &dto.AddressDto{City: start},
		Dropoff:      &dto.AddressDto{City: end},
		DeliveryDate: &date,
		Packages:     packages,
	}
}

func TestCreateDeliveryComputesCost(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	e.route.result = ports.RouteResult{DistanceKm: 120}

	date := futureDate()
	req := dto.CreateDeliveryDto{
		Pickup:       &dto.AddressDto{City: "Peshawar", Lat: 34.0151, Lng: 71.5249},
		Dropoff:      &dto.AddressDto{City: "Lahore", Lat: 31.5204, Lng: 74.3587},
		DeliveryDate: &date,
		Packages:     weights(10, 20),
	}

	d, err := e.deliverySvc.CreateDelivery(context.Background(), sender, req)
	require.NoError(t, err)

	// 120 km * 1.0 + 30 kg * 0.5
	assert.InDelta(t, 135.0, d.TotalCost, 1e-9)
	assert.Equal(t, model.DeliveryPending, d.Status)

	payment, err := e.payments.GetByDelivery(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, payment.Status)
	assert.Equal(t, model.PaymentCash, payment.Method)
	assert.InDelta(t, d.TotalCost, payment.Amount, 1e-9)

	assert.Equal(t, 1, e.notifications.countByType(sender.ID, model.NotifDeliveryCreated))
	assert.Equal(t, 1, e.notifications.countByType(sender.ID, model.NotifPaymentInitiated))
}

func TestCreateDeliveryDegradedRouteFallsBackToWeight(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}

	// Addresses without coordinates never reach the provider.
	d, err := e.deliverySvc.CreateDelivery(context.Background(), sender,
		createRequest("Peshawar", "Lahore", nil, weights(40)))
	require.NoError(t, err)

	assert.InDelta(t, 20.0, d.TotalCost, 1e-9)
}

func TestCreateDeliveryValidation(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	ctx := context.Background()

	_, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", nil, nil))
	assert.True(t, myerrors.IsKind(err, myerrors.KindValidation))

	_, err = e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", nil, weights(0)))
	assert.True(t, myerrors.IsKind(err, myerrors.KindValidation))

	past := "2020-01-01"
	req := createRequest("Peshawar", "Lahore", nil, weights(5))
	req.DeliveryDate = &past
	_, err = e.deliverySvc.CreateDelivery(ctx, sender, req)
	assert.True(t, myerrors.IsKind(err, myerrors.KindValidation))

	driver := model.Principal{ID: uuid.New(), Role: model.RoleDriver}
	_, err = e.deliverySvc.CreateDelivery(ctx, driver, createRequest("Peshawar", "Lahore", nil, weights(5)))
	assert.True(t, myerrors.IsKind(err, myerrors.KindPermission))
}

func TestCreateDeliveryRouteMismatch(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	owner := e.verifiedDriver("")
	post := e.seedPost(owner, "Peshawar", "Lahore", 2000)

	_, err := e.deliverySvc.CreateDelivery(context.Background(), sender,
		createRequest("Peshawar", "Islamabad", &post.ID, weights(10)))
	assert.ErrorIs(t, err, myerrors.ErrRouteMismatch)

	// Same cities in a different case still match.
	d, err := e.deliverySvc.CreateDelivery(context.Background(), sender,
		createRequest("peshawar", "LAHORE", &post.ID, weights(10)))
	require.NoError(t, err)
	require.NotNil(t, d.PostOwnerID)
	assert.Equal(t, owner.ID, *d.PostOwnerID)
}

func TestAcceptDeliveryCapacity(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	owner := e.verifiedDriver("")
	post := e.seedPost(owner, "Peshawar", "Lahore", 2000)
	ctx := context.Background()

	d1, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", &post.ID, weights(1800)))
	require.NoError(t, err)
	d2, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", &post.ID, weights(300)))
	require.NoError(t, err)

	accepted, err := e.deliverySvc.AcceptDelivery(ctx, owner, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryAssigned, accepted.Status)

	got, err := e.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostBooked, got.Status)

	// 300 kg does not fit in the remaining 200 kg.
	_, err = e.deliverySvc.AcceptDelivery(ctx, owner, d2.ID)
	assert.ErrorIs(t, err, myerrors.ErrCapacityExceeded)

	unchanged, err := e.deliveries.GetByID(ctx, d2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryPending, unchanged.Status)

	logs, err := e.deliveries.Logs(ctx, d2.ID)
	require.NoError(t, err)
	for _, l := range logs {
		assert.NotEqual(t, "Delivery Accepted", l.Action)
	}
}

func TestAcceptDeliveryChecks(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	owner := e.verifiedDriver("")
	post := e.seedPost(owner, "Peshawar", "Lahore", 2000)
	ctx := context.Background()

	d, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", &post.ID, weights(100)))
	require.NoError(t, err)

	stranger := e.verifiedDriver("")
	_, err = e.deliverySvc.AcceptDelivery(ctx, stranger, d.ID)
	assert.ErrorIs(t, err, myerrors.ErrNotOwner)

	unverified := model.Principal{ID: owner.ID, Role: model.RoleDriver, Verified: false}
	_, err = e.deliverySvc.AcceptDelivery(ctx, unverified, d.ID)
	assert.True(t, myerrors.IsKind(err, myerrors.KindPermission))

	notDriver := model.Principal{ID: uuid.New(), Role: model.RoleSender, Verified: true}
	_, err = e.deliverySvc.AcceptDelivery(ctx, notDriver, d.ID)
	assert.True(t, myerrors.IsKind(err, myerrors.KindPermission))
}

func TestAcceptDeliveryDirectAssignment(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	driver := e.verifiedDriver("")
	ctx := context.Background()

	d, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", nil, weights(100)))
	require.NoError(t, err)

	accepted, err := e.deliverySvc.AcceptDelivery(ctx, driver, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryAssigned, accepted.Status)
	require.NotNil(t, accepted.DriverID)
	assert.Equal(t, driver.ID, *accepted.DriverID)
}

func TestAcceptDeliveryConcurrentOverCapacity(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	owner := e.verifiedDriver("")
	post := e.seedPost(owner, "Peshawar", "Lahore", 2000)
	ctx := context.Background()

	d1, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", &post.ID, weights(1800)))
	require.NoError(t, err)
	d2, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", &post.ID, weights(1800)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{d1.ID, d2.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = e.deliverySvc.AcceptDelivery(ctx, owner, id)
		}(i, id)
	}
	wg.Wait()

	var ok, overCapacity int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case myerrors.IsKind(err, myerrors.KindConflict):
			overCapacity++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one accept must win")
	assert.Equal(t, 1, overCapacity)

	committed := e.deliveries.committedWeight(post.ID)
	assert.InDelta(t, 1800.0, committed, 1e-9)
}

func TestTransitionPaymentGate(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	owner := e.verifiedDriver("")
	post := e.seedPost(owner, "Peshawar", "Lahore", 2000)
	ctx := context.Background()

	d, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", &post.ID, weights(100)))
	require.NoError(t, err)
	_, err = e.deliverySvc.AcceptDelivery(ctx, owner, d.ID)
	require.NoError(t, err)

	// Departure is gated on the completed payment.
	_, err = e.deliverySvc.TransitionDelivery(ctx, owner, d.ID, model.DeliveryInTransit)
	assert.ErrorIs(t, err, myerrors.ErrPaymentNotCompleted)

	payment, err := e.payments.GetByDelivery(ctx, d.ID)
	require.NoError(t, err)
	_, err = e.paymentSvc.ConfirmPayment(ctx, owner, payment.ID, "")
	require.NoError(t, err)

	moved, err := e.deliverySvc.TransitionDelivery(ctx, owner, d.ID, model.DeliveryInTransit)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryInTransit, moved.Status)

	// The accept event and the payment nudge share a type; dedup keeps one.
	assert.Equal(t, 1, e.notifications.countByType(owner.ID, model.NotifDeliveryAccepted))
}

func TestTransitionDeliveredMarksReviewEligible(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	driver := e.verifiedDriver("")
	ctx := context.Background()

	d, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", nil, weights(100)))
	require.NoError(t, err)
	_, err = e.deliverySvc.AcceptDelivery(ctx, driver, d.ID)
	require.NoError(t, err)

	payment, err := e.payments.GetByDelivery(ctx, d.ID)
	require.NoError(t, err)
	_, err = e.paymentSvc.ConfirmPayment(ctx, driver, payment.ID, "")
	require.NoError(t, err)
	_, err = e.deliverySvc.TransitionDelivery(ctx, driver, d.ID, model.DeliveryInTransit)
	require.NoError(t, err)

	// Only the driver confirms arrival.
	_, err = e.deliverySvc.TransitionDelivery(ctx, sender, d.ID, model.DeliveryDelivered)
	assert.True(t, myerrors.IsKind(err, myerrors.KindPermission))

	done, err := e.deliverySvc.TransitionDelivery(ctx, driver, d.ID, model.DeliveryDelivered)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryDelivered, done.Status)

	stored, err := e.deliveries.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, stored.ReviewEligible)
}

func TestTransitionRejectsInvalidTargets(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	ctx := context.Background()

	d, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", nil, weights(10)))
	require.NoError(t, err)

	_, err = e.deliverySvc.TransitionDelivery(ctx, sender, d.ID, model.DeliveryAssigned)
	assert.ErrorIs(t, err, myerrors.ErrInvalidTransition)

	_, err = e.deliverySvc.TransitionDelivery(ctx, sender, d.ID, model.DeliveryDelivered)
	assert.ErrorIs(t, err, myerrors.ErrInvalidTransition)
}

func TestCancelReopensSolelyBookedPost(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	owner := e.verifiedDriver("")
	post := e.seedPost(owner, "Peshawar", "Lahore", 2000)
	ctx := context.Background()

	d, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", &post.ID, weights(1800)))
	require.NoError(t, err)
	_, err = e.deliverySvc.AcceptDelivery(ctx, owner, d.ID)
	require.NoError(t, err)

	driver := e.verifiedDriver("")
	_, err = e.deliverySvc.TransitionDelivery(ctx, driver, d.ID, model.DeliveryCancelled)
	assert.True(t, myerrors.IsKind(err, myerrors.KindPermission), "only the sender cancels")

	cancelled, err := e.deliverySvc.TransitionDelivery(ctx, sender, d.ID, model.DeliveryCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryCancelled, cancelled.Status)

	got, err := e.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostActive, got.Status)
	assert.InDelta(t, 0.0, e.deliveries.committedWeight(post.ID), 1e-9)
}

func TestGetDeliveryParticipantsOnly(t *testing.T) {
	e := newEnv(t)
	sender := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	ctx := context.Background()

	d, err := e.deliverySvc.CreateDelivery(ctx, sender, createRequest("Peshawar", "Lahore", nil, weights(10)))
	require.NoError(t, err)

	_, err = e.deliverySvc.GetDelivery(ctx, sender, d.ID)
	assert.NoError(t, err)

	stranger := model.Principal{ID: uuid.New(), Role: model.RoleSender}
	_, err = e.deliverySvc.GetDelivery(ctx, stranger, d.ID)
	assert.True(t, myerrors.IsKind(err, myerrors.KindPermission))
}

package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/myerrors"
	"dropx/internal/delivery-service/core/ports"
)

// In-memory adapters backing the service tests. The runner reproduces the
// SQL adapter's contract with a per-post mutex instead of a row lock.

type fakeCityRepo struct {
	mu     sync.Mutex
	cities map[string]model.City
}

func newFakeCityRepo() *fakeCityRepo {
	return &fakeCityRepo{cities: make(map[string]model.City)}
}

func (f *fakeCityRepo) GetOrCreate(ctx context.Context, city model.City) (model.City, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := city.Name + "|" + city.State + "|" + city.Country
	if existing, ok := f.cities[key]; ok {
		return existing, nil
	}
	city.ID = uuid.New()
	city.CreatedAt = time.Now()
	f.cities[key] = city
	return city, nil
}

func (f *fakeCityRepo) GetByID(ctx context.Context, id uuid.UUID) (model.City, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.cities {
		if c.ID == id {
			return c, nil
		}
	}
	return model.City{}, myerrors.E(myerrors.KindNotFound, "city not found")
}

type fakeDeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[uuid.UUID]*model.Delivery
	routes     map[uuid.UUID]*model.Route
	logs       map[uuid.UUID][]model.DeliveryLog
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{
		deliveries: make(map[uuid.UUID]*model.Delivery),
		routes:     make(map[uuid.UUID]*model.Route),
		logs:       make(map[uuid.UUID][]model.DeliveryLog),
	}
}

func (f *fakeDeliveryRepo) Create(ctx context.Context, d *model.Delivery, route *model.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *d
	f.deliveries[d.ID] = &cp
	if route != nil {
		r := *route
		f.routes[d.ID] = &r
	}
	return nil
}

func (f *fakeDeliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.deliveries[id]
	if !ok {
		return nil, myerrors.E(myerrors.KindNotFound, "delivery not found")
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDeliveryRepo) ListBySender(ctx context.Context, senderID uuid.UUID) ([]model.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Delivery
	for _, d := range f.deliveries {
		if d.SenderID == senderID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDeliveryRepo) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]model.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Delivery
	for _, d := range f.deliveries {
		if id, ok := d.ResolvedDriver(); ok && id == driverID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDeliveryRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.DeliveryStatus, version int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.deliveries[id]
	if !ok || d.Status != from || d.StatusVersion != version {
		return false, nil
	}
	d.Status = to
	d.StatusVersion++
	return true, nil
}

func (f *fakeDeliveryRepo) Assign(ctx context.Context, id, driverID uuid.UUID, from model.DeliveryStatus, version int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.deliveries[id]
	if !ok || d.Status != from || d.StatusVersion != version {
		return false, nil
	}
	d.Status = model.DeliveryAssigned
	d.StatusVersion++
	d.DriverID = &driverID
	return true, nil
}

func (f *fakeDeliveryRepo) SetReviewEligible(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if d, ok := f.deliveries[id]; ok {
		d.ReviewEligible = true
	}
	return nil
}

func (f *fakeDeliveryRepo) AppendLog(ctx context.Context, log model.DeliveryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logs[log.DeliveryID] = append(f.logs[log.DeliveryID], log)
	return nil
}

func (f *fakeDeliveryRepo) Logs(ctx context.Context, deliveryID uuid.UUID) ([]model.DeliveryLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]model.DeliveryLog(nil), f.logs[deliveryID]...), nil
}

func (f *fakeDeliveryRepo) committedWeight(postID uuid.UUID) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	var w float64
	for _, d := range f.deliveries {
		if d.DriverPostID != nil && *d.DriverPostID == postID && d.Committed() {
			w += d.TotalWeight()
		}
	}
	return w
}

type fakePostRepo struct {
	mu         sync.Mutex
	posts      map[uuid.UUID]*model.DriverPost
	logs       map[uuid.UUID][]model.PostLog
	deliveries *fakeDeliveryRepo
}

func newFakePostRepo(deliveries *fakeDeliveryRepo) *fakePostRepo {
	return &fakePostRepo{
		posts:      make(map[uuid.UUID]*model.DriverPost),
		logs:       make(map[uuid.UUID][]model.PostLog),
		deliveries: deliveries,
	}
}

func (f *fakePostRepo) Create(ctx context.Context, post *model.DriverPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *post
	f.posts[post.ID] = &cp
	return nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.DriverPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.posts[id]
	if !ok {
		return nil, myerrors.E(myerrors.KindNotFound, "driver post not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePostRepo) ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.DriverPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.DriverPost
	for _, p := range f.posts {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePostRepo) ListOpen(ctx context.Context, startCity, endCity string) ([]model.DriverPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.DriverPost
	for _, p := range f.posts {
		if !p.Open() {
			continue
		}
		if startCity != "" && p.StartCity.Name != startCity {
			continue
		}
		if endCity != "" && p.EndCity.Name != endCity {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePostRepo) Update(ctx context.Context, post *model.DriverPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.posts[post.ID]; !ok {
		return myerrors.E(myerrors.KindNotFound, "driver post not found")
	}
	cp := *post
	f.posts[post.ID] = &cp
	return nil
}

func (f *fakePostRepo) CommittedWeight(ctx context.Context, postID uuid.UUID) (float64, error) {
	return f.deliveries.committedWeight(postID), nil
}

func (f *fakePostRepo) ExpireDeparted(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, p := range f.posts {
		if p.Status == model.PostActive && p.Departed(now) {
			p.Status = model.PostExpired
			n++
		}
	}
	return n, nil
}

func (f *fakePostRepo) AppendLog(ctx context.Context, log model.PostLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logs[log.PostID] = append(f.logs[log.PostID], log)
	return nil
}

func (f *fakePostRepo) Logs(ctx context.Context, postID uuid.UUID) ([]model.PostLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]model.PostLog(nil), f.logs[postID]...), nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*model.Payment
	txns     map[string]bool
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		payments: make(map[uuid.UUID]*model.Payment),
		txns:     make(map[string]bool),
	}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[id]
	if !ok {
		return nil, myerrors.E(myerrors.KindNotFound, "payment not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) GetByDelivery(ctx context.Context, deliveryID uuid.UUID) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.payments {
		if p.DeliveryID == deliveryID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, myerrors.E(myerrors.KindNotFound, "payment not found")
}

func (f *fakePaymentRepo) MarkCompleted(ctx context.Context, id uuid.UUID, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if transactionID != "" && f.txns[transactionID] {
		return myerrors.ErrDuplicateTxn
	}
	p, ok := f.payments[id]
	if !ok {
		return myerrors.E(myerrors.KindNotFound, "payment not found")
	}
	if p.Status != model.PaymentPending {
		return myerrors.E(myerrors.KindConflict, "payment is not pending")
	}
	p.Status = model.PaymentCompleted
	p.TransactionID = transactionID
	if transactionID != "" {
		f.txns[transactionID] = true
	}
	return nil
}

func (f *fakePaymentRepo) MarkRefunded(ctx context.Context, id uuid.UUID, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[id]
	if !ok {
		return myerrors.E(myerrors.KindNotFound, "payment not found")
	}
	if p.Status != model.PaymentCompleted {
		return myerrors.E(myerrors.KindConflict, "payment is not completed")
	}
	p.Status = model.PaymentRefunded
	p.RefundStatus = model.RefundProcessed
	p.RefundAmount = amount
	return nil
}

type notifKey struct {
	user     uuid.UUID
	delivery uuid.UUID
	typ      string
}

type fakeNotificationRepo struct {
	mu   sync.Mutex
	rows map[notifKey]*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{rows: make(map[notifKey]*model.Notification)}
}

func (f *fakeNotificationRepo) CreateIfAbsent(ctx context.Context, n model.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := notifKey{user: n.UserID, typ: n.Type}
	if n.DeliveryID != nil {
		key.delivery = *n.DeliveryID
	} else {
		// Rows without a delivery never deduplicate against each other.
		key.delivery = n.ID
	}
	if _, ok := f.rows[key]; ok {
		return false, nil
	}
	cp := n
	f.rows[key] = &cp
	return true, nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Notification
	for _, n := range f.rows {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, n := range f.rows {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return myerrors.E(myerrors.KindNotFound, "notification not found")
}

func (f *fakeNotificationRepo) countByType(userID uuid.UUID, typ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	for _, row := range f.rows {
		if row.UserID == userID && row.Type == typ {
			n++
		}
	}
	return n
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]model.DriverProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[uuid.UUID]model.DriverProfile)}
}

func (f *fakeProfileRepo) put(p model.DriverProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.UserID] = p
}

func (f *fakeProfileRepo) DriverProfile(ctx context.Context, userID uuid.UUID) (model.DriverProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.profiles[userID]
	if !ok {
		return model.DriverProfile{}, myerrors.E(myerrors.KindNotFound, "driver profile not found")
	}
	return p, nil
}

// fakeRunner serializes work per post with a mutex, the in-memory equivalent
// of the SQL adapter's row lock.
type fakeRunner struct {
	mu         sync.Mutex
	locks      map[uuid.UUID]*sync.Mutex
	posts      *fakePostRepo
	deliveries *fakeDeliveryRepo
}

func newFakeRunner(posts *fakePostRepo, deliveries *fakeDeliveryRepo) *fakeRunner {
	return &fakeRunner{
		locks:      make(map[uuid.UUID]*sync.Mutex),
		posts:      posts,
		deliveries: deliveries,
	}
}

func (r *fakeRunner) lockFor(postID uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[postID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[postID] = l
	}
	return l
}

func (r *fakeRunner) WithPost(ctx context.Context, postID uuid.UUID, fn func(tx ports.IMatchTx) error) error {
	l := r.lockFor(postID)
	l.Lock()
	defer l.Unlock()

	post, err := r.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	return fn(&fakeMatchTx{runner: r, post: post})
}

type fakeMatchTx struct {
	runner *fakeRunner
	post   *model.DriverPost
}

func (t *fakeMatchTx) Post() *model.DriverPost {
	return t.post
}

func (t *fakeMatchTx) CommittedWeight(ctx context.Context) (float64, error) {
	return t.runner.deliveries.committedWeight(t.post.ID), nil
}

func (t *fakeMatchTx) BindDelivery(ctx context.Context, deliveryID, driverID uuid.UUID, from model.DeliveryStatus, version int) (bool, error) {
	f := t.runner.deliveries
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.deliveries[deliveryID]
	if !ok || d.Status != from || d.StatusVersion != version {
		return false, nil
	}
	d.Status = model.DeliveryAssigned
	d.StatusVersion++
	d.DriverID = &driverID
	postID := t.post.ID
	d.DriverPostID = &postID
	return true, nil
}

func (t *fakeMatchTx) SetDeliveryStatus(ctx context.Context, deliveryID uuid.UUID, from, to model.DeliveryStatus, version int) (bool, error) {
	return t.runner.deliveries.UpdateStatus(ctx, deliveryID, from, to, version)
}

func (t *fakeMatchTx) SetPostStatus(ctx context.Context, status model.PostStatus) error {
	f := t.runner.posts
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.posts[t.post.ID]; ok {
		p.Status = status
	}
	t.post.Status = status
	return nil
}

func (t *fakeMatchTx) IncrementMatchRequests(ctx context.Context) (int, error) {
	f := t.runner.posts
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.posts[t.post.ID]
	if !ok {
		return 0, myerrors.E(myerrors.KindNotFound, "driver post not found")
	}
	p.MatchRequests++
	t.post.MatchRequests = p.MatchRequests
	return p.MatchRequests, nil
}

func (t *fakeMatchTx) AppendDeliveryLog(ctx context.Context, log model.DeliveryLog) error {
	return t.runner.deliveries.AppendLog(ctx, log)
}

func (t *fakeMatchTx) AppendPostLog(ctx context.Context, log model.PostLog) error {
	return t.runner.posts.AppendLog(ctx, log)
}

type fakeRouteProvider struct {
	result ports.RouteResult
	err    error
}

func (f *fakeRouteProvider) ComputeRoute(ctx context.Context, originLat, originLng, destLat, destLng float64) (ports.RouteResult, error) {
	if f.err != nil {
		return ports.RouteResult{}, f.err
	}
	return f.result, nil
}

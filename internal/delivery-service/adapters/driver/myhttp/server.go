package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"dropx/internal/config"
	"dropx/internal/delivery-service/adapters/driven/bm"
	"dropx/internal/delivery-service/adapters/driven/cache"
	"dropx/internal/delivery-service/adapters/driven/db"
	"dropx/internal/delivery-service/adapters/driven/routing"
	"dropx/internal/delivery-service/adapters/driver/myhttp/handle"
	"dropx/internal/delivery-service/adapters/driver/myhttp/middleware"
	"dropx/internal/delivery-service/adapters/driver/myhttp/ws"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/delivery-service/core/services"
	"dropx/internal/mylogger"
)

var ErrServerClosed = errors.New("Server closed")

const WaitTime = 10

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	mylog  mylogger.Logger
	db     *db.DB
	mb     ports.IEventBroker
	routes *cache.RouteCache
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
	wg     sync.WaitGroup
}

func NewServer(ctx, appCtx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	s := &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
		mux:    http.NewServeMux(),
	}

	return s
}

// Run initializes routes and starts listening. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	// Initialize database connection
	db, err := db.New(s.ctx, s.cfg.DB, mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	mylog.Info("Successful database connection")

	// Initialize RabbitMQ connection
	mb, err := bm.New(s.appCtx, *s.cfg.RabbitMq, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	mylog.Info("Successful message broker connection")

	// Configure routes and handlers
	s.Configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.DeliveryServicePort),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.DeliveryServicePort)

	mylog.Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Info("Shutting down HTTP server...")

	s.wg.Wait()

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.routes != nil {
		if err := s.routes.Close(); err != nil {
			s.mylog.Error("Failed to close route cache", err)
		}
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Error("Failed to close message broker", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.mylog.Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Info("Database closed")
	}

	s.mylog.Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Configure wires the adapters into the services and registers the routes.
func (s *Server) Configure() {
	// Repositories
	cityRepo := db.NewCitiesRepo(s.db)
	postRepo := db.NewPostsRepo(s.db)
	deliveryRepo := db.NewDeliveriesRepo(s.db)
	paymentRepo := db.NewPaymentsRepo(s.db)
	notificationRepo := db.NewNotificationsRepo(s.db)
	profileRepo := db.NewProfilesRepo(s.db)
	txRunner := db.NewTxRunner(s.db)

	// Routing provider behind the Redis cache
	osrm := routing.NewOSRMProvider(s.cfg.Routing)
	s.routes = cache.NewRouteCache(s.cfg.Redis, osrm, s.mylog)

	// Services
	dispatcher := services.NewDispatcher(s.mylog, notificationRepo, s.mb)
	catalogService := services.NewCatalogService(s.mylog, cityRepo, s.routes)
	postsService := services.NewPostsService(s.mylog, postRepo, profileRepo, catalogService, txRunner, dispatcher, s.cfg.Matching)
	deliveryService := services.NewDeliveryService(s.mylog, deliveryRepo, postRepo, paymentRepo, profileRepo, catalogService, txRunner, dispatcher, s.cfg.Pricing, s.cfg.Matching)
	paymentService := services.NewPaymentService(s.mylog, paymentRepo, deliveryRepo, dispatcher)
	notificationService := services.NewNotificationsService(s.mylog, notificationRepo)
	capacity := services.NewCapacityLedger(postRepo)

	// Background post expiry sweep
	go postsService.(*services.PostsService).RunExpiryMonitor(s.appCtx)

	// Handlers
	deliveryHandler := handle.NewDeliveryHandler(deliveryService, s.mylog)
	postHandler := handle.NewPostHandler(postsService, capacity, s.mylog)
	paymentHandler := handle.NewPaymentHandler(paymentService, s.mylog)
	notificationHandler := handle.NewNotificationHandler(notificationService, s.mylog)
	chatDispatcher := ws.NewDispatcher(s.mylog, deliveryService)

	// Broker-side feed for the chat rooms: lifecycle and payment events reach
	// connected participants as system frames.
	chatEvents, err := s.mb.Consume(s.appCtx, "delivery_chat", "chat.*", "delivery.*", "payment.*")
	if err != nil {
		s.mylog.Error("cannot start chat event consumer", err)
	} else {
		go chatDispatcher.Relay(s.appCtx, chatEvents)
	}

	authMiddleware := middleware.NewAuthMiddleware(s.cfg.App.PublicJwtSecret)

	// Register routes
	s.mux.Handle("POST /posts", authMiddleware.Wrap(postHandler.CreatePost()))
	s.mux.Handle("PATCH /posts/{post_id}", authMiddleware.Wrap(postHandler.UpdatePost()))
	s.mux.Handle("GET /posts", authMiddleware.Wrap(postHandler.ListOpenPosts()))
	s.mux.Handle("GET /posts/mine", authMiddleware.Wrap(postHandler.ListOwnPosts()))
	s.mux.Handle("POST /posts/{post_id}/match", authMiddleware.Wrap(postHandler.MatchPost()))

	s.mux.Handle("POST /deliveries", authMiddleware.Wrap(deliveryHandler.CreateDelivery()))
	s.mux.Handle("GET /deliveries", authMiddleware.Wrap(deliveryHandler.ListDeliveries()))
	s.mux.Handle("GET /deliveries/{delivery_id}", authMiddleware.Wrap(deliveryHandler.GetDelivery()))
	s.mux.Handle("POST /deliveries/{delivery_id}/accept", authMiddleware.Wrap(deliveryHandler.AcceptDelivery()))
	s.mux.Handle("POST /deliveries/{delivery_id}/transition", authMiddleware.Wrap(deliveryHandler.TransitionDelivery()))

	s.mux.Handle("GET /payments/{payment_id}", authMiddleware.Wrap(paymentHandler.GetPayment()))
	s.mux.Handle("POST /payments/{payment_id}/confirm", authMiddleware.Wrap(paymentHandler.ConfirmPayment()))
	s.mux.Handle("POST /payments/{payment_id}/refund", authMiddleware.Wrap(paymentHandler.RefundPayment()))

	s.mux.Handle("GET /notifications", authMiddleware.Wrap(notificationHandler.ListNotifications()))
	s.mux.Handle("POST /notifications/{notification_id}/read", authMiddleware.Wrap(notificationHandler.MarkRead()))

	// websocket routes
	s.mux.Handle("/ws/deliveries/{delivery_id}/chat", authMiddleware.Wrap(chatDispatcher.ChatHandler()))

	s.mux.HandleFunc("GET /health", s.healthHandler())
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.IsAlive(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if !s.mb.IsAlive() {
			http.Error(w, "message broker unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

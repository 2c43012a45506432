package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/config"
	"github.com/samajportal/apiserver/internal/db"
	"github.com/samajportal/apiserver/internal/handlers"
	"github.com/samajportal/apiserver/internal/logging"
	"github.com/samajportal/apiserver/internal/metrics"
	"github.com/samajportal/apiserver/internal/mq"
	"github.com/samajportal/apiserver/internal/notify"
	"github.com/samajportal/apiserver/internal/services"
	"github.com/samajportal/apiserver/internal/session"
	"github.com/samajportal/apiserver/internal/storage"
	"github.com/samajportal/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	logger     *zap.Logger
}

// Deps is everything the router needs.
type Deps struct {
	Users         *services.UserService
	Verification  *services.VerificationService
	Roles         *services.RoleService
	Pandits       *services.PanditService
	Events        *services.EventService
	Donations     *services.DonationService
	Gallery       *services.GalleryService
	Notifications *services.NotificationService
	Admin         *services.AdminService
	Resolver      *session.Resolver
	Metrics       *metrics.Metrics
	JWTSecret     string
	Logger        *zap.Logger
}

// New connects the stores and brokers named in cfg and builds the server.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	m := metrics.New()

	accountRepo := store.NewAccountRepository(dbConn)
	profileRepo := store.NewProfileRepository(dbConn)
	roleRepo := store.NewRoleRepository(dbConn)
	notificationRepo := store.NewNotificationRepository(dbConn)

	var (
		dispatcher notify.Dispatcher
		queue      *mq.MQ
	)
	queue, err = mq.Open(ctx, cfg.MQ, logger)
	switch {
	case errors.Is(err, mq.ErrDisabled):
		logger.Info("no message queue configured; notifications are stored inline")
		dispatcher = notify.NewStoreDispatcher(notificationRepo, logger, m)
	case err != nil:
		_ = dbConn.Close()
		return nil, fmt.Errorf("open mq: %w", err)
	default:
		dispatcher = notify.NewMQDispatcher(queue, cfg.MQ.NotifyChannel, logger, m)
	}

	verification := services.NewVerificationService(profileRepo, accountRepo, dispatcher, m, logger)
	events := services.NewEventService(store.NewEventRepository(dbConn), logger)
	donations := services.NewDonationService(store.NewDonationRepository(dbConn), logger)

	router := NewRouter(Deps{
		Users:         services.NewUserService(accountRepo, cfg.Auth.TokenTTL, logger),
		Verification:  verification,
		Roles:         services.NewRoleService(roleRepo, logger),
		Pandits:       services.NewPanditService(store.NewPanditRepository(dbConn), logger),
		Events:        events,
		Donations:     donations,
		Gallery:       services.NewGalleryService(store.NewGalleryRepository(dbConn), objects, logger),
		Notifications: services.NewNotificationService(notificationRepo, dispatcher),
		Admin:         services.NewAdminService(verification, events, donations),
		Resolver:      session.NewResolver(profileRepo, roleRepo, logger),
		Metrics:       m,
		JWTSecret:     cfg.Auth.JWTSecret,
		Logger:        logger,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         queue,
		logger:     logger,
	}, nil
}

// NewRouter mounts every route on a fresh chi router.
func NewRouter(d Deps) *chi.Mux {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gate := handlers.NewGate(d.Metrics, logger)
	sessions := handlers.NewSessionMiddleware(d.Users, d.Resolver, d.JWTSecret, logger)
	pandits := handlers.NewPanditHandler(d.Pandits, gate, logger)
	gallery := handlers.NewGalleryHandler(d.Gallery, gate, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		d.Metrics.Middleware,
		logging.RequestLogger(logger),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	if d.Metrics != nil {
		router.Handle("/metrics", d.Metrics.Handler())
	}

	router.Group(func(r chi.Router) {
		r.Use(sessions.Handler)

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, handlers.NewAuthHandler(d.Users, d.JWTSecret, logger))
		})
		r.Route("/profile", func(r chi.Router) {
			handlers.ProfileRouter(r, handlers.NewProfileHandler(d.Verification, logger))
		})
		r.Route("/pandits", func(r chi.Router) {
			handlers.PanditRouter(r, pandits)
		})
		r.Route("/bookings", func(r chi.Router) {
			handlers.BookingRouter(r, pandits)
		})
		r.Route("/events", func(r chi.Router) {
			handlers.EventRouter(r, handlers.NewEventHandler(d.Events, gate, logger))
		})
		r.Route("/donations", func(r chi.Router) {
			handlers.DonationRouter(r, handlers.NewDonationHandler(d.Donations, logger), gate)
		})
		r.Route("/gallery", func(r chi.Router) {
			handlers.GalleryRouter(r, gallery)
		})
		r.Route("/live", func(r chi.Router) {
			handlers.LiveRouter(r, gallery)
		})
		r.Route("/notifications", func(r chi.Router) {
			handlers.NotificationRouter(r, handlers.NewNotificationHandler(d.Notifications, logger))
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, handlers.NewAdminHandler(handlers.AdminServices{
				Admin:         d.Admin,
				Verification:  d.Verification,
				Roles:         d.Roles,
				Events:        d.Events,
				Pandits:       d.Pandits,
				Donations:     d.Donations,
				Notifications: d.Notifications,
			}, logger), gate)
		})
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		if cerr := s.mq.Close(); cerr != nil {
			s.logger.Warn("close mq", zap.Error(cerr))
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

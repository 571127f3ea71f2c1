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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/storefront/apiserver/config"
	"github.com/storefront/apiserver/internal/db"
	"github.com/storefront/apiserver/internal/handlers"
	"github.com/storefront/apiserver/internal/logger"
	"github.com/storefront/apiserver/internal/mq"
	"github.com/storefront/apiserver/internal/orphans"
	"github.com/storefront/apiserver/internal/services"
	"github.com/storefront/apiserver/internal/storage"
	"github.com/storefront/apiserver/internal/store"
)

const shutdownTimeout = 15 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	blobs      *storage.BlobStore
	queue      *mq.MQ
	log        zerolog.Logger
}

// New connects to the database, blob store and (optionally) the message
// queue, and wires the HTTP routes.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	auth, err := services.NewAuthService(cfg.JWTSecret, cfg.TokenTTL, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		_ = blobs.Close()
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", blobs.Bucket(), err)
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = blobs.Close()
		_ = dbConn.Close()
		return nil, fmt.Errorf("init mq: %w", err)
	}
	if queue == nil {
		log.Warn().Msg("no mq backend configured, orphaned objects will only be logged")
	}

	userRepo := store.NewUserRepository(dbConn)
	productRepo := store.NewProductRepository(dbConn)

	userService := services.NewUserService(userRepo, auth)
	reporter := orphans.NewReporter(log, queue, cfg.MQ.OrphanChannel)
	productService := services.NewProductService(productRepo, blobs, reporter, log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logger.RequestLogger(log),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, auth, log)
	})
	router.Route("/products", func(r chi.Router) {
		handlers.ProductRouter(r, productService, auth, log)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		blobs:      blobs,
		queue:      queue,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases every connection.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.blobs != nil {
		_ = s.blobs.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

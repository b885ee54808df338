package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/userhub/apiserver/config"
	"github.com/userhub/apiserver/internal/db"
	"github.com/userhub/apiserver/internal/handlers"
	"github.com/userhub/apiserver/internal/mailer"
	"github.com/userhub/apiserver/internal/mq"
	"github.com/userhub/apiserver/internal/services"
	"github.com/userhub/apiserver/internal/storage"
	"github.com/userhub/apiserver/internal/store"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Server wraps the HTTP server and its backing connections.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	mongo      *mongo.Client
	mailQueue  *mq.MQ
}

// New connects the backing services and wires the full route table.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	mongoClient, database, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(database)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, err
	}
	userService := services.NewUserService(userRepo)

	mailQueue, mail, err := buildMailer(ctx, cfg, log)
	if err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, err
	}

	avatars, err := buildStorage(ctx, cfg)
	if err != nil {
		if mailQueue != nil {
			_ = mailQueue.Close()
		}
		_ = mongoClient.Disconnect(context.Background())
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(userService, mail, cfg, log)
	userHandler := handlers.NewUserHandler(userService, avatars, cfg.IsProduction(), log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/v1/users", func(r chi.Router) {
		handlers.UserRouter(r, authHandler, userHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		mongo:      mongoClient,
		mailQueue:  mailQueue,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown closes the server and its backing connections.
func (s *Server) Shutdown() error {
	if s.mailQueue != nil {
		_ = s.mailQueue.Close()
	}
	if s.mongo != nil {
		_ = s.mongo.Disconnect(context.Background())
	}
	return s.httpServer.Close()
}

// buildMailer selects the mail dispatch backend. The queue handle is
// returned separately so Shutdown can close it.
func buildMailer(ctx context.Context, cfg config.Config, log *slog.Logger) (*mq.MQ, mailer.Mailer, error) {
	switch cfg.Mail.Backend {
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, nil, err
		}
		queue := mq.New(client)
		return queue, mailer.NewQueueMailer(queue, cfg.Mail.Queue), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, nil, err
		}
		queue := mq.New(client)
		return queue, mailer.NewQueueMailer(queue, cfg.Mail.Queue), nil
	case "log":
		return nil, mailer.NewLogMailer(log), nil
	default:
		return nil, nil, fmt.Errorf("unknown mail backend %q", cfg.Mail.Backend)
	}
}

// buildStorage selects the avatar object store. Returns nil when no
// backend is configured; avatar uploads are then disabled.
func buildStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "minio":
		if strings.TrimSpace(cfg.Minio.Endpoint) == "" {
			return nil, nil
		}
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		s := storage.NewStorage(client)
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "gcs":
		if strings.TrimSpace(cfg.GCS.Bucket) == "" {
			return nil, nil
		}
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		s := storage.NewStorage(client)
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

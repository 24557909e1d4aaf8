package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"skillswap/internal/app/bootstrap"
	"skillswap/internal/app/middleware"
	"skillswap/internal/app/services/auth"
	"skillswap/internal/app/uow"
	meetingapp "skillswap/internal/app/handlers/meetings"
	"skillswap/internal/infra/broker/kafka"
	"skillswap/internal/infra/config"
	mongostore "skillswap/internal/infra/db/mongo"
	"skillswap/internal/infra/db/sqlite"
	ginserver "skillswap/internal/infra/http/gin"
	"skillswap/internal/infra/inbox"
	"skillswap/internal/infra/notify"
	"skillswap/internal/infra/obs"
	"skillswap/internal/infra/outbox"
	"skillswap/internal/infra/security"
	"skillswap/internal/infra/storage/memory"
)

const consumerName = "swap-commands"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger := obs.NewLogger("dev")
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer st.close()
	logger.Info("storage ready", "driver", cfg.StorageDriver)

	buses := bootstrap.Build(bootstrap.Deps{
		UoWFactory:  st.uow,
		Idempotency: st.idempotency,
		Notifier:    &notify.Sink{UoWFactory: st.uow},
		Rooms: meetingapp.TokenRooms{
			BaseURL: cfg.MeetingBaseURL,
			Tokens:  security.RandomTokens{Prefix: "skillswap-"},
		},
		Logger:        logger,
		ConflictRetry: cfg.ConflictRetries,
	})
	authService := &auth.Service{
		UoWFactory:     st.uow,
		Passwords:      security.BcryptHasher{},
		Tokens:         security.NewJWTIssuer([]byte(cfg.JWTSecret)),
		TokenTTL:       cfg.JWTTTL,
		AdminUsernames: cfg.AdminUsernames,
		Logger:         logger,
	}

	if cfg.FixturesPath != "" {
		if err := loadFixtures(ctx, cfg.FixturesPath, authService, buses, logger); err != nil {
			logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
		}
	}

	health := obs.HealthHandlers{Ready: st.ping}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, health, ginserver.Handlers{
		Auth:           ginserver.AuthHandler{Service: authService, Commands: buses.Commands, Logger: logger},
		Listings:       ginserver.ListingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Swaps:          ginserver.SwapHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Chats:          ginserver.ChatHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Meetings:       ginserver.MeetingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Notifications:  ginserver.NotificationHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Users:          ginserver.UserHandler{Queries: buses.Queries, Logger: logger},
		Admin:          ginserver.AdminHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
	})

	var wg sync.WaitGroup
	background := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task failed", "task", name, "error", err)
			}
		}()
	}

	producer, closeProducer, err := newProducer(cfg, logger)
	if err != nil {
		logger.Error("kafka producer init failed", "error", err)
		os.Exit(1)
	}
	defer closeProducer()
	relay := &outbox.Worker{
		Store:       st.claims,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger.With("component", "outbox"),
	}
	background("outbox", relay.Run)

	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, kafka.NewConfig("skillswap-consumer"), &kafka.SwapCommandHandler{
			Commands: buses.Commands,
			Inbox:    st.inbox,
			Logger:   logger.With("component", "swap-commands"),
			Backoff:  time.Second,
		}, logger)
		if err != nil {
			logger.Error("kafka consumer init failed", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		topic := cfg.KafkaTopicPrefix + kafka.SwapCommandsTopic
		background("swap-commands", func(ctx context.Context) error {
			return consumer.Run(ctx, []string{topic})
		})
	}

	if cfg.GRPCHealthAddr != "" {
		grpcHealth := &obs.HealthServer{Ready: st.ping, Logger: logger}
		background("grpc-health", func(ctx context.Context) error {
			return grpcHealth.ListenAndServe(ctx, cfg.GRPCHealthAddr)
		})
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
}

// storage bundles the ports one backend provides.
type storage struct {
	uow         uow.UoWFactory
	idempotency middleware.IdempotencyStore
	claims      outbox.ClaimStore
	inbox       kafka.Inbox
	ping        obs.ReadyFunc
	close       func()
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		return &storage{
			uow:         store,
			idempotency: memory.NewIdempotencyStore(),
			claims:      store,
			inbox:       memory.NewInbox(consumerName),
			ping:        func(context.Context) error { return nil },
			close:       func() {},
		}, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &storage{
			uow:         store,
			idempotency: store.Idempotency(),
			claims:      store,
			inbox:       store.Inbox(consumerName),
			ping:        store.Ping,
			close: func() {
				if err := store.Close(); err != nil {
					logger.Warn("sqlite close failed", "error", err)
				}
			},
		}, nil
	case config.DriverMongo:
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		events := outbox.NewStore(client.DB)
		consumed, err := inbox.NewStore(ctx, client.DB, consumerName, 0)
		if err != nil {
			return nil, err
		}
		replays, err := mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			return nil, err
		}
		return &storage{
			uow:         mongostore.Factory{DB: client.DB, Outbox: events},
			idempotency: replays,
			claims:      events,
			inbox:       consumed,
			ping:        client.Ping,
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Close(closeCtx); err != nil {
					logger.Warn("mongo disconnect failed", "error", err)
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// newProducer falls back to logging events when no brokers are configured.
func newProducer(cfg config.Config, logger *slog.Logger) (outbox.Producer, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no kafka brokers configured, events are logged only")
		return outbox.LogProducer{Logger: logger.With("component", "events")}, func() {}, nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("skillswap"))
	if err != nil {
		return nil, nil, err
	}
	return producer, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}, nil
}

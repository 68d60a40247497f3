package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kadod/mama-odekake-liff/internal/auth"
	"github.com/kadod/mama-odekake-liff/internal/config"
	"github.com/kadod/mama-odekake-liff/internal/db"
	"github.com/kadod/mama-odekake-liff/internal/events"
	"github.com/kadod/mama-odekake-liff/internal/handlers"
	"github.com/kadod/mama-odekake-liff/internal/line"
	"github.com/kadod/mama-odekake-liff/internal/middleware"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := cfg.Logger.Setup(); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

// run wires the server and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.WithError(err).Warn("Mongo disconnect failed")
		}
	}()
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	store := db.NewStore(client.Database(cfg.MongoDB))
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return err
	}
	verifier, err := line.NewClient(cfg.LineChannelID, cfg.LineAPIBaseURL)
	if err != nil {
		return err
	}

	publisher := newPublisher(cfg)
	defer publisher.Close()

	radius, err := cfg.SearchRadius()
	if err != nil {
		return err
	}
	tiePolicy, err := cfg.TiePolicy()
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimitMiddleware()
	go sweepRateLimiter(ctx, limiter, cfg.RateLimitWindow)

	router := handlers.NewRouter(handlers.RouterConfig{
		Spots:           store.Spots,
		Reviews:         store.Reviews,
		Submissions:     store.Submissions,
		Users:           store.Users,
		DB:              client,
		Auth:            authService,
		Verifier:        verifier,
		Events:          publisher,
		RateLimit:       limiter,
		DefaultRadius:   radius,
		TiePolicy:       tiePolicy,
		RateLimitMax:    cfg.RateLimitRequests,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	srv := newServer(cfg.Port, router)
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":          srv.Addr,
			"search_radius": radius.String(),
			"tie_policy":    tiePolicy.String(),
		}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// newPublisher connects to the MQTT broker when one is configured.
// A broker that cannot be reached is logged and replaced by a no-op publisher.
func newPublisher(cfg *config.Config) events.Publisher {
	if cfg.MQTTBroker == "" {
		log.Info("No MQTT broker configured; domain events are dropped")
		return events.NopPublisher{}
	}
	p, err := events.NewMQTTPublisher(events.MQTTConfig{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		TopicPrefix: cfg.MQTTTopicPrefix,
	})
	if err != nil {
		log.WithError(err).Error("MQTT unavailable; domain events are dropped")
		return events.NopPublisher{}
	}
	return p
}

func sweepRateLimiter(ctx context.Context, limiter *middleware.RateLimitMiddleware, window time.Duration) {
	tick := time.NewTicker(window)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if n := limiter.Sweep(window); n > 0 {
				log.WithField("clients", n).Debug("Rate limiter swept")
			}
		}
	}
}

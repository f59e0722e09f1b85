package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/config"
	"github.com/iliyamo/venue-booking/internal/database"
	"github.com/iliyamo/venue-booking/internal/handler"
	"github.com/iliyamo/venue-booking/internal/middleware"
	"github.com/iliyamo/venue-booking/internal/ordering"
	"github.com/iliyamo/venue-booking/internal/queue"
	"github.com/iliyamo/venue-booking/internal/repository"
	"github.com/iliyamo/venue-booking/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := config.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("migrate")
	}

	bookings := repository.NewBookingRepo(db)
	resources := repository.NewResourceRepo(db)
	venues := repository.NewVenueRepo(db)
	orders := repository.NewOrderRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	// Status changes go to RabbitMQ when it is configured. The notifier
	// interfaces stay nil otherwise so the services skip publishing.
	var (
		bookingNotifier booking.Notifier
		orderNotifier   ordering.Notifier
	)
	if cfg.Queue.URL != "" {
		pub := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name, log)
		defer pub.Close()
		bookingNotifier, orderNotifier = pub, pub

		if cfg.Queue.Consume {
			audit := queue.NewAuditLog(cfg.Queue.AuditLogPath)
			defer audit.Close()
			go func() {
				err := queue.StartNotificationConsumer(ctx, cfg.Queue.URL, cfg.Queue.Name, audit, log)
				if err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("notification consumer stopped")
				}
			}()
		}
	} else {
		log.Warn("RABBITMQ_URL not set, status change notifications disabled")
	}

	bookingSvc := booking.NewService(bookings, booking.Options{
		DefaultTableDuration: cfg.Booking.DefaultTableDuration,
		MaxTableDuration:     cfg.Booking.MaxTableDuration,
		NotifyTimeout:        cfg.Booking.NotifyTimeout,
		Notifier:             bookingNotifier,
		Logger:               log,
	})
	orderSvc := ordering.NewService(orders, orderNotifier, log)

	// Redis backs the response cache and the rate limiters. Both degrade
	// to no-ops when it is unreachable.
	var (
		cacheStore redis.Cmdable
		limitStore redis.Scripter
	)
	if rdb := config.NewRedisClient(config.LoadRedisConfig(), log); rdb != nil {
		defer rdb.Close()
		cacheStore, limitStore = rdb, rdb
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), limitStore, log))

	bookingH := handler.NewBookingHandler(bookingSvc, venues, resources, log, cfg.Booking.UpcomingHorizon)
	venueH := handler.NewVenueHandler(venues, resources, log)
	orderH := handler.NewOrderHandler(orderSvc, venues, log)
	authH := handler.NewAuthHandler(cfg, users, tokens, log)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, bookingH, venueH, middleware.NewRedisCache(config.LoadCacheConfig(), cacheStore))
	router.RegisterCustomer(e, bookingH, orderH, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadBookingRateLimitConfig(), limitStore, log))
	router.RegisterOwner(e, bookingH, venueH, orderH, cfg.JWTSecret)

	go purgeExpiredTokens(ctx, tokens, log)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

// purgeExpiredTokens deletes expired refresh tokens once an hour until ctx
// ends.
func purgeExpiredTokens(ctx context.Context, tokens *repository.TokenRepo, log logrus.FieldLogger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := tokens.DeleteExpired(ctx, now)
			if err != nil {
				log.WithError(err).Warn("purge expired refresh tokens")
				continue
			}
			if n > 0 {
				log.WithField("deleted", n).Info("purged expired refresh tokens")
			}
		}
	}
}

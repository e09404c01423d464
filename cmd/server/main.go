package main // service entry point

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/faylib/equipment-calendar/internal/availability"
	"github.com/faylib/equipment-calendar/internal/booking"
	"github.com/faylib/equipment-calendar/internal/communico"
	"github.com/faylib/equipment-calendar/internal/config"
	"github.com/faylib/equipment-calendar/internal/handler"
	"github.com/faylib/equipment-calendar/internal/middleware"
	"github.com/faylib/equipment-calendar/internal/queue"
	"github.com/faylib/equipment-calendar/internal/router"
	"github.com/faylib/equipment-calendar/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, "equipment-calendar")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient(config.RedisOptions(), logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	rl := config.LoadRateLimitConfig()

	client := communico.NewClient(cfg.Communico, logger)
	fetcher := availability.NewFetcher(client, logger)

	var store booking.Store
	if rdb != nil {
		store = booking.NewRedisStore(rdb, "", cfg.Session.TTL)
	} else {
		logger.Warn("using in-process booking session store")
		store = booking.NewMemoryStore(cfg.Session.TTL)
	}

	var publisher booking.OutcomePublisher
	if cfg.Queue.EventsEnabled {
		publisher = service.NewQueuePublisher(cfg.Queue.URL, logger.Named("publisher"))
	}
	if cfg.Queue.ConsumerEnabled {
		consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.LogDir, logger.Named("consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}
	machine := booking.NewMachine(client, client, cfg.Booking, publisher, logger.Named("booking"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger.Named("http")))
	e.Use(echomw.Recover())

	cal := &handler.CalendarHandler{Source: fetcher, Logger: logger}
	router.RegisterRoutes(e)
	router.RegisterProxy(e, &handler.ProxyHandler{Upstream: client, Logger: logger}, rl, rdb, logger)
	router.RegisterCalendar(e, cal, rl, rdb, logger)
	router.RegisterBooking(e, &handler.BookingHandler{
		Machine:  machine,
		Store:    store,
		Calendar: cal,
		Secret:   cfg.Session.Secret,
		TTL:      cfg.Session.TTL,
		Logger:   logger,
	}, cfg.Session.Secret, rl, rdb, logger)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

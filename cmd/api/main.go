package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kartify/storefront-core/internal/catalog"
	"github.com/kartify/storefront-core/internal/checkout"
	"github.com/kartify/storefront-core/internal/config"
	"github.com/kartify/storefront-core/internal/httpx"
	kafkax "github.com/kartify/storefront-core/internal/kafka"
	"github.com/kartify/storefront-core/internal/orders"
	"github.com/kartify/storefront-core/internal/postgres"
	"github.com/kartify/storefront-core/internal/redisx"
)

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The two stores are independently operated; one pool each.
	catalogDB, err := postgres.Connect(ctx, cfg.CatalogDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog db connect")
	}
	defer catalogDB.Close()

	ordersDB, err := postgres.Connect(ctx, cfg.OrdersDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("orders db connect")
	}
	defer ordersDB.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prodConfirmed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderConfirmed, 1024)
	prodConfirmed.Start(ctx)
	prodStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStatusChanged, 1024)
	prodStatus.Start(ctx)
	prodDecrFail := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicDecrementFailed, 1024)
	prodDecrFail.Start(ctx)

	catalogStore := &catalog.Store{DB: catalogDB}
	orderStore := &orders.Store{DB: ordersDB}

	coordinator := &checkout.Coordinator{
		Catalog:          catalogStore,
		Orders:           orderStore,
		ProducerOK:       prodConfirmed,
		ProducerDecrFail: prodDecrFail,
		Redis:            rdb,
		Service:          cfg.ServiceName,
	}

	router := httpx.NewRouter()
	(&httpx.CartHandler{
		Guard: &catalog.Guard{Store: catalogStore},
		Store: catalogStore,
	}).Register(router)
	(&httpx.CheckoutHandler{Coordinator: coordinator}).Register(router)
	(&httpx.OrdersHandler{
		Store:    orderStore,
		Redis:    rdb,
		Producer: prodStatus,
		Service:  cfg.ServiceName,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prodConfirmed.Close()
	prodStatus.Close()
	prodDecrFail.Close()
	cancel()
	prodConfirmed.WaitClosed()
	prodStatus.WaitClosed()
	prodDecrFail.WaitClosed()
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kartify/storefront-core/internal/catalog"
	"github.com/kartify/storefront-core/internal/config"
	"github.com/kartify/storefront-core/internal/inventory"
	kafkax "github.com/kartify/storefront-core/internal/kafka"
	"github.com/kartify/storefront-core/internal/orders"
	"github.com/kartify/storefront-core/internal/postgres"
	"github.com/kartify/storefront-core/internal/redisx"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalogDB, err := postgres.Connect(ctx, cfg.CatalogDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog db connect")
	}
	defer catalogDB.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	rec := &inventory.Reconciler{
		Catalog:     &catalog.Store{DB: catalogDB},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-reconciler",
	}

	group := getenv("RECONCILER_GROUP", "inventory-reconciler")
	workers := mustAtoi(os.Getenv("RECONCILER_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicDecrementFailed, workers)

	go func() {
		log.Info().Str("group", group).Str("topic", orders.TopicDecrementFailed).
			Int("workers", workers).Msg("reconciler consumer started")
		if err := cons.Start(ctx, rec.HandleDecrementFailed); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down reconciler...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

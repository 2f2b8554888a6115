// Command stabused runs the payment engine: the HTTP surface for
// building payments and submitting transaction hashes, plus the queue
// consumer that verifies and settles them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tosynthegeek/stabuse"
	"github.com/tosynthegeek/stabuse/config"
	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/metrics"
	"github.com/tosynthegeek/stabuse/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.NewZapLogger(cfg.LogLevel)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Error("database init failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Error("broker connection failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer conn.Close()

	opts := []stabuse.Option{stabuse.WithLogger(log)}
	if cfg.EnableMetrics {
		opts = append(opts, stabuse.WithMetrics(metrics.NewPrometheusRecorder()))
	}

	engine, err := stabuse.New(cfg, db, conn, opts...)
	if err != nil {
		log.Error("engine init failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	consumer, err := engine.NewConsumer(conn, cfg.QueueName)
	if err != nil {
		log.Error("consumer init failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(engine, log).Router(cfg.EnableMetrics),
	}

	go func() {
		log.Info("http server listening", map[string]any{"port": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", map[string]any{"error": err.Error()})
	}
}

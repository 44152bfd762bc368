package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodshare/internal/events"
	"foodshare/internal/lifecycle"
	"foodshare/internal/metrics"
	"foodshare/internal/notify"
	"foodshare/internal/onboarding"
	"foodshare/internal/server"
	"foodshare/internal/storage"
	"foodshare/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger, err := newLogger(config)
	if err != nil {
		return err
	}

	docs, closeStore, err := openStore(ctx, config)
	if err != nil {
		return err
	}
	defer closeStore()

	var images *storage.ImageStore
	if config.ImageBucket != "" {
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}
		images = storage.NewImageStore(s3.NewFromConfig(awsConfig), config.ImageBucket)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	bus := events.NewBus(logger)

	dispatcher := notify.NewDispatcher(
		store.NewNotificationRepository(docs),
		logger,
		notify.WithMetrics(m),
		notify.WithMaxRetries(config.NotifyMaxRetries),
		notify.WithTimeout(time.Duration(config.NotifyTimeoutSec)*time.Second),
	)

	engine := lifecycle.New(
		store.NewDonationRepository(docs),
		dispatcher,
		logger,
		lifecycle.WithPublisher(bus),
		lifecycle.WithMetrics(m),
	)

	workflow := onboarding.New(
		store.NewNGORequestRepository(docs),
		logger,
		onboarding.WithMetrics(m),
	)

	srv := server.New(config, logger, engine, dispatcher, workflow, bus, images, registry)

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = srv.Stop(shutdownCtx)

	// Notification writes already handed out are allowed to land.
	dispatcher.Wait()
	logger.Info("pending notifications drained")

	return err
}

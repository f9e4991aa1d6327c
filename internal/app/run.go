package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"weatherstation-server/internal/config"
	"weatherstation-server/internal/db"
	"weatherstation-server/internal/httpapi"
	"weatherstation-server/internal/metrics"
	"weatherstation-server/internal/modules/weather"
	"weatherstation-server/internal/mqtt"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"dbPath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"seedEnabled", cfg.SeedEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)
	metrics.Init()

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := db.InitializeSchema(ctx, dbConn); err != nil {
		return err
	}
	logger.Info("database ready")

	if cfg.SeedEnabled {
		if _, err := weather.Seed(ctx, dbConn, cfg, logger); err != nil {
			return err
		}
	}

	// The handler has to be attached before Connect: the broker may deliver
	// queued messages right after CONNACK.
	var subscriber *mqtt.Subscriber
	mux := httpapi.NewMux(dbConn, logger)
	if cfg.MQTTBroker != "" {
		subscriber = mqtt.NewSubscriber(cfg, logger)
		weather.RegisterFeature(mux, dbConn, subscriber, logger)
	} else {
		weather.RegisterFeature(mux, dbConn, nil, logger)
	}

	if subscriber != nil {
		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			// HTTP keeps serving without ingestion.
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
		defer func() {
			logger.Info("mqtt disconnecting")
			subscriber.Disconnect()
		}()
	}

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

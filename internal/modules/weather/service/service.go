// Package service ingests weather measurements published over MQTT.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"weatherstation-server/internal/metrics"
	"weatherstation-server/internal/modules/weather/repository"
	"weatherstation-server/internal/modules/weather/types"
	"weatherstation-server/internal/mqtt"
)

const storeTimeout = 5 * time.Second

type Service struct {
	repository repository.WeatherRepository
	logger     *slog.Logger
}

func NewService(repository repository.WeatherRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repository: repository, logger: logger}
}

// Register must run before the subscriber connects so retained and queued
// messages delivered right after CONNACK are not dropped.
func (s *Service) Register(subscriber mqtt.MQTTSubscriber) {
	subscriber.SetMessageHandler(s.HandleMessage)
}

// HandleMessage validates payload with the same rules as POST /weather and
// stores it. Invalid payloads and duplicates are reported as errors and
// counted; they are never retried.
func (s *Service) HandleMessage(payload []byte) error {
	w, err := types.DecodeNewWeather(payload)
	if err != nil {
		metrics.ObserveMQTTMessage(metrics.ResultInvalid)
		return fmt.Errorf("invalid measurement: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	id, err := s.repository.AddWeather(ctx, w)
	switch {
	case errors.Is(err, repository.ErrConflict):
		metrics.ObserveMQTTMessage(metrics.ResultSkipped)
		return fmt.Errorf("measurement at %s: %w", w.Timestamp, err)
	case err != nil:
		metrics.ObserveMQTTMessage(metrics.ResultFailed)
		s.logger.Error("failed to store measurement",
			"timestamp", w.Timestamp,
			"location", w.LocationName,
			"error", err,
		)
		return err
	}

	metrics.ObserveMQTTMessage(metrics.ResultStored)
	s.logger.Debug("stored measurement",
		"id", id,
		"timestamp", w.Timestamp,
		"location", w.LocationName,
	)
	return nil
}

package weather

import (
	"context"
	"log/slog"
	"net/http"

	"weatherstation-server/internal/config"
	"weatherstation-server/internal/db"
	"weatherstation-server/internal/modules/weather/controller"
	"weatherstation-server/internal/modules/weather/repository"
	"weatherstation-server/internal/modules/weather/seed"
	"weatherstation-server/internal/modules/weather/service"
	"weatherstation-server/internal/mqtt"
)

// RegisterFeature wires the weather HTTP routes and, when subscriber is
// non-nil, the MQTT ingestion handler.
func RegisterFeature(mux *http.ServeMux, store *db.DB, subscriber mqtt.MQTTSubscriber, logger *slog.Logger) {
	weatherRepository := repository.NewRepository(store)
	weatherController := controller.NewWeatherController(weatherRepository, logger)
	weatherController.RegisterRoutes(mux)

	if subscriber != nil {
		service.NewService(weatherRepository, logger).Register(subscriber)
	}
}

// Seed imports the configured CSV files when the store is empty.
func Seed(ctx context.Context, store *db.DB, cfg config.Config, logger *slog.Logger) (seed.Report, error) {
	loader := seed.NewLoader(repository.NewRepository(store), cfg.SeedLocationsCSV, cfg.SeedWeatherCSV, logger)
	return loader.Load(ctx)
}

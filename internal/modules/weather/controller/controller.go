package controller

import (
	"log/slog"
	"net/http"

	"weatherstation-server/internal/modules/weather/repository"
)

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type weatherControllerImpl struct {
	repository repository.WeatherRepository
	logger     *slog.Logger
}

func NewWeatherController(repository repository.WeatherRepository, logger *slog.Logger) WeatherController {
	if logger == nil {
		logger = slog.Default()
	}
	return &weatherControllerImpl{repository: repository, logger: logger}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET /weather", c.handleListWeather)
	mux.HandleFunc("GET /weather/{timestamp}", c.handleGetWeather)
	mux.HandleFunc("POST /weather", c.handleAddWeather)
	mux.HandleFunc("GET /locations", c.handleListLocations)
	mux.HandleFunc("POST /locations", c.handleAddLocation)
}

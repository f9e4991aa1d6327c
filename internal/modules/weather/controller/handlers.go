package controller

import (
	"fmt"
	"net/http"

	"weatherstation-server/internal/modules/weather/types"
	"weatherstation-server/internal/utils"
)

const indexBanner = "Weather Web Service with Locations is running! Try /weather or /locations"

func (c *weatherControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	utils.WriteText(w, http.StatusOK, indexBanner)
}

func (c *weatherControllerImpl) handleListWeather(w http.ResponseWriter, r *http.Request) {
	weather, err := c.repository.ListWeather(r.Context(), parseLimit(r))
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, weather)
}

func (c *weatherControllerImpl) handleGetWeather(w http.ResponseWriter, r *http.Request) {
	timestamp := r.PathValue("timestamp")
	if timestamp == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing timestamp")
		return
	}

	weather, err := c.repository.GetWeatherByTimestamp(r.Context(), timestamp)
	if isNotFound(err) {
		utils.WriteError(w, http.StatusNotFound, "No data found for timestamp: "+timestamp)
		return
	}
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, weather)
}

func (c *weatherControllerImpl) handleAddWeather(w http.ResponseWriter, r *http.Request) {
	body, ok := c.readBody(w, r)
	if !ok {
		return
	}
	payload, err := types.DecodeNewWeather(body)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	id, err := c.repository.AddWeather(r.Context(), payload)
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	c.logger.Info("weather data added",
		"id", id,
		"timestamp", payload.Timestamp,
		"location", payload.LocationName,
	)
	utils.WriteJSON(w, http.StatusCreated, createdResponse{
		Message: fmt.Sprintf("Weather data added successfully, id: %d", id),
		ID:      id,
	})
}

func (c *weatherControllerImpl) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := c.repository.ListLocations(r.Context())
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, locations)
}

func (c *weatherControllerImpl) handleAddLocation(w http.ResponseWriter, r *http.Request) {
	body, ok := c.readBody(w, r)
	if !ok {
		return
	}
	payload, err := types.DecodeNewLocation(body)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	id, err := c.repository.AddLocation(r.Context(), payload)
	if err != nil {
		c.writeStoreError(w, r, err)
		return
	}
	c.logger.Info("location added", "id", id, "name", payload.Name)
	utils.WriteJSON(w, http.StatusCreated, createdResponse{
		Message: fmt.Sprintf("Location added successfully, id: %d", id),
		ID:      id,
	})
}

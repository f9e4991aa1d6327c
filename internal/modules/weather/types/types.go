package types

// Location is a named place that measurements refer to.
type Location struct {
	ID        int64    `json:"id" db:"id"`
	Name      string   `json:"name" db:"name"`
	Latitude  *float64 `json:"latitude" db:"latitude"`
	Longitude *float64 `json:"longitude" db:"longitude"`
}

// Weather is one measurement with its location's fields inlined.
// Location fields are nil when the measurement has no matching location row.
type Weather struct {
	ID                int64    `json:"id" db:"id"`
	Timestamp         string   `json:"timestamp" db:"timestamp"`
	Temperature       *float64 `json:"temperature" db:"temperature"`
	Humidity          *float64 `json:"humidity" db:"humidity"`
	WindSpeed         *float64 `json:"wind_speed" db:"wind_speed"`
	WindDirection     *float64 `json:"wind_direction" db:"wind_direction"`
	LocationName      *string  `json:"location_name" db:"location_name"`
	LocationLatitude  *float64 `json:"location_latitude" db:"location_latitude"`
	LocationLongitude *float64 `json:"location_longitude" db:"location_longitude"`
}

type NewLocation struct {
	Name      string
	Latitude  *float64
	Longitude *float64
}

// NewWeather is a measurement to store. The location is referenced by name;
// LocationLatitude and LocationLongitude are only used if the name is new.
type NewWeather struct {
	Timestamp         string
	Temperature       *float64
	Humidity          *float64
	WindSpeed         *float64
	WindDirection     *float64
	LocationName      string
	LocationLatitude  *float64
	LocationLongitude *float64
}

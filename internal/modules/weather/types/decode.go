package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes a client payload that cannot be stored.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var errInvalidJSON = &ValidationError{Message: "Invalid JSON data provided."}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// float accepts a JSON number or a numeric string with a finite value.
	if err := v.RegisterValidation("float", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		_, ok := parseNumber(fl.Field().String())
		return ok
	}); err != nil {
		panic(err)
	}
	return v
}

// Numeric fields are held as any so that the decoder keeps json.Number for
// literals and the raw string for quoted values.
type weatherRequest struct {
	Timestamp         *string `json:"timestamp" validate:"required,notblank"`
	Temperature       any     `json:"temperature" validate:"required,float"`
	Humidity          any     `json:"humidity" validate:"required,float"`
	WindSpeed         any     `json:"wind_speed" validate:"required,float"`
	WindDirection     any     `json:"wind_direction" validate:"required,float"`
	LocationName      *string `json:"location_name" validate:"required,notblank"`
	LocationLatitude  any     `json:"location_latitude" validate:"omitempty,float"`
	LocationLongitude any     `json:"location_longitude" validate:"omitempty,float"`
}

type locationRequest struct {
	Name      *string `json:"name" validate:"required,notblank"`
	Latitude  any     `json:"latitude" validate:"required,float"`
	Longitude any     `json:"longitude" validate:"required,float"`
}

// DecodeNewWeather parses a weather submission. timestamp and location_name
// must be non-empty strings; temperature, humidity, wind_speed and
// wind_direction are required numbers; location_latitude and
// location_longitude are optional. Numbers may also be sent as numeric strings.
// Strings are stored trimmed.
func DecodeNewWeather(data []byte) (NewWeather, error) {
	var req weatherRequest
	if err := decodeRequest(data, &req); err != nil {
		return NewWeather{}, err
	}
	return NewWeather{
		Timestamp:         strings.TrimSpace(*req.Timestamp),
		Temperature:       toFloat(req.Temperature),
		Humidity:          toFloat(req.Humidity),
		WindSpeed:         toFloat(req.WindSpeed),
		WindDirection:     toFloat(req.WindDirection),
		LocationName:      strings.TrimSpace(*req.LocationName),
		LocationLatitude:  toFloat(req.LocationLatitude),
		LocationLongitude: toFloat(req.LocationLongitude),
	}, nil
}

// DecodeNewLocation parses a location submission; name, latitude and
// longitude are all required. The name is stored trimmed.
func DecodeNewLocation(data []byte) (NewLocation, error) {
	var req locationRequest
	if err := decodeRequest(data, &req); err != nil {
		return NewLocation{}, err
	}
	return NewLocation{
		Name:      strings.TrimSpace(*req.Name),
		Latitude:  toFloat(req.Latitude),
		Longitude: toFloat(req.Longitude),
	}, nil
}

// decodeRequest fills req from a single non-empty JSON object and validates
// it. Absent keys are reported before type mismatches; a key sent as null
// is present but fails its type rule.
func decodeRequest(data []byte, req any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || len(fields) == 0 {
		return errInvalidJSON
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var typeErr *json.UnmarshalTypeError
	if err := dec.Decode(req); err != nil {
		if !errors.As(err, &typeErr) || typeErr.Field == "" {
			return errInvalidJSON
		}
	}

	err := validate.Struct(req)
	var verrs validator.ValidationErrors
	if err != nil && !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if _, sent := fields[fe.Field()]; fe.Tag() == "required" && !sent {
			return invalidf("Missing required field: %s", fe.Field())
		}
	}
	if typeErr != nil {
		return invalidf("%s must be a non-empty string", typeErr.Field)
	}
	if len(verrs) == 0 {
		return nil
	}
	return fieldError(req, verrs[0])
}

func fieldError(req any, fe validator.FieldError) error {
	sf, ok := reflect.TypeOf(req).Elem().FieldByName(fe.StructField())
	if ok && strings.Contains(sf.Tag.Get("validate"), "notblank") {
		return invalidf("%s must be a non-empty string", fe.Field())
	}
	return invalidf("%s must be a number", fe.Field())
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toFloat converts a value accepted by the float rule. An optional field sent
// as "" passes omitempty and comes back nil.
func toFloat(v any) *float64 {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = n
	default:
		return nil
	}
	f, ok := parseNumber(s)
	if !ok {
		return nil
	}
	return &f
}

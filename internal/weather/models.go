package weather

import (
	"time"
)

// Metric identifiers a query may ask for.
const (
	MetricTemperature = "temperature"
	MetricHumidity    = "humidity"
	MetricPressure    = "pressure"
	MetricWindSpeed   = "wind_speed"
	MetricAirQuality  = "air_quality"
)

// KnownMetrics is the closed set of metric identifiers; anything else is dropped.
var KnownMetrics = map[string]bool{
	MetricTemperature: true,
	MetricHumidity:    true,
	MetricPressure:    true,
	MetricWindSpeed:   true,
	MetricAirQuality:  true,
}

// Time-of-day buckets a query may restrict to.
const (
	TimeMorning   = "morning"
	TimeAfternoon = "afternoon"
	TimeEvening   = "evening"
	TimeNight     = "night"
)

// MissingOutOfContext is the sentinel placed in MissingParameters when the
// utterance is not a weather request at all.
const MissingOutOfContext = "out_of_context"

// MissingCity is placed in MissingParameters when no place could be extracted.
const MissingCity = "city"

// DateRange is a closed calendar interval; both bounds are ISO dates (YYYY-MM-DD).
type DateRange struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to"`
}

// WeatherQuery is the structured result of parsing a free-text utterance.
// Valid is true iff City is set and MissingParameters does not contain the
// out_of_context sentinel; Metrics is never empty.
type WeatherQuery struct {
	City              *string    `json:"city"`
	Metrics           []string   `json:"metrics"`
	DateRange         *DateRange `json:"date_range"`
	TimeOfDay         *string    `json:"time_of_day"`
	Valid             bool       `json:"valid"`
	MissingParameters []string   `json:"missing_parameters"`
}

// CityName returns the extracted city or the empty string.
func (q *WeatherQuery) CityName() string {
	if q.City == nil {
		return ""
	}
	return *q.City
}

// WantsMetric reports whether the query asked for the given metric.
func (q *WeatherQuery) WantsMetric(name string) bool {
	for _, m := range q.Metrics {
		if m == name {
			return true
		}
	}
	return false
}

// OutOfContext reports whether the utterance was judged not weather-related.
func (q *WeatherQuery) OutOfContext() bool {
	for _, m := range q.MissingParameters {
		if m == MissingOutOfContext {
			return true
		}
	}
	return false
}

// AirQuality is the normalized air-pollution sample from OpenWeatherMap.
type AirQuality struct {
	AQI  int     `json:"aqi"`
	CO   float64 `json:"co"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
}

// CurrentConditions is the flat normalized record of OpenWeatherMap's
// current-weather response. AirQuality is nil when the pollution call failed.
type CurrentConditions struct {
	Temperature   float64     `json:"temperature"`
	FeelsLike     float64     `json:"feels_like"`
	Humidity      float64     `json:"humidity"`
	Pressure      float64     `json:"pressure"`
	WindSpeed     float64     `json:"wind_speed"`
	WindDirection float64     `json:"wind_direction"`
	Description   string      `json:"description"`
	AirQuality    *AirQuality `json:"air_quality,omitempty"`
}

// ForecastEntry is one 3-hourly slot of OpenWeatherMap's 5-day forecast.
type ForecastEntry struct {
	Datetime    string  `json:"datetime"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	Description string  `json:"description"`
}

// OpenMeteoCurrent is the normalized Open-Meteo current-weather record.
type OpenMeteoCurrent struct {
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windspeed"`
	WindDirection float64 `json:"winddirection"`
	Time          string  `json:"time"`
	WeatherCode   int     `json:"weathercode"`
}

// AggregatedWeatherData is a read-only, per-request snapshot keyed by provider.
// Any provider field may be nil; the snapshot as a whole exists only when
// geocoding succeeded. It is never mutated after FetchAll returns.
type AggregatedWeatherData struct {
	City            string             `json:"city"`
	OpenWeatherMap  *CurrentConditions `json:"openweathermap_current"`
	ForecastFiveDay []ForecastEntry    `json:"openweathermap_forecast_5d"`
	OpenMeteo       *OpenMeteoCurrent  `json:"openmeteo_current"`
	Timestamp       time.Time          `json:"timestamp"` // always UTC
}

// HasAnyData reports whether at least one provider returned a usable record.
func (d *AggregatedWeatherData) HasAnyData() bool {
	return d.OpenWeatherMap != nil || len(d.ForecastFiveDay) > 0 || d.OpenMeteo != nil
}

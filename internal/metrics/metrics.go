package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "weather_"

	ResultLoaded  = "loaded"
	ResultSkipped = "skipped"
	ResultStored  = "stored"
	ResultInvalid = "invalid"
	ResultFailed  = "failed"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	seedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "seed_rows_total",
			Help: "Seed CSV rows by file and result",
		},
		[]string{"file", "result"},
	)
	mqttMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "mqtt_messages_total",
			Help: "MQTT weather messages by result",
		},
		[]string{"result"},
	)
)

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpLatency, seedRows, mqttMessages)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func ObserveSeedRow(file, result string) {
	seedRows.WithLabelValues(file, result).Inc()
}

func ObserveMQTTMessage(result string) {
	mqttMessages.WithLabelValues(result).Inc()
}

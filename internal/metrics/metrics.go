// metrics — клиентские метрики Prometheus для вызовов API MyData.
// Коллекторы регистрируются в переданном реестре; CLI по завершении
// команды отправляет их в Pushgateway (см. Push).
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "mydata_client"

// Client — набор коллекторов исходящих HTTP-вызовов.
type Client struct {
	InFlight prometheus.Gauge
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewClient создаёт коллекторы и регистрирует их в reg (если reg != nil).
func NewClient(reg prometheus.Registerer) *Client {
	m := &Client{
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_requests",
			Help:      "In-flight requests to the MyData API.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests to the MyData API.",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "MyData API request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	if reg != nil {
		reg.MustRegister(m.InFlight, m.Requests, m.Duration)
	}

	return m
}

// Push отправляет все метрики из g в Pushgateway под именем job.
// Пустой url — no-op.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	const op = "metrics/Push"

	if url == "" {
		return nil
	}

	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mydata-ng/privacy-client/internal/metrics"
)

// Metrics считает запросы, их длительность и число запросов в полёте.
// Сетевая ошибка учитывается со статусом "error".
func Metrics(m *metrics.Client) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if m == nil {
			return next
		}

		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			route := Route(r.URL.Path)

			m.InFlight.Inc()
			defer m.InFlight.Dec()

			start := time.Now()
			resp, err := next.RoundTrip(r)

			status := "error"
			if err == nil {
				status = strconv.Itoa(resp.StatusCode)
			}

			m.Duration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
			m.Requests.WithLabelValues(r.Method, route, status).Inc()

			return resp, err
		})
	}
}

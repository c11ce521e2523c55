// transport — цепочка http.RoundTripper для исходящих вызовов API MyData:
// metadata (User-Agent, X-Request-Id) -> bearer -> logging -> metrics.
//
// Мидлвары не меняют исходный *http.Request: перед правкой заголовков
// запрос клонируется (контракт http.RoundTripper).
package transport

import (
	"context"
	"net/http"
	"strings"
)

// Middleware — обёртка над http.RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain оборачивает base мидлварами; первый в списке — внешний.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}

	return base
}

type CtxKey string

const CtxRequestID CtxKey = "request_id"

// HeaderRequestID — заголовок корреляции запросов.
const HeaderRequestID = "X-Request-Id"

// Route нормализует путь для меток метрик: идентификатор после
// alerts/consents заменяется на {id}.
func Route(path string) string {
	segs := strings.Split(path, "/")
	for i := 1; i < len(segs); i++ {
		switch segs[i-1] {
		case "alerts", "consents":
			if segs[i] != "" {
				segs[i] = "{id}"
			}
		}
	}

	return strings.Join(segs, "/")
}

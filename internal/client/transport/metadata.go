package transport

import (
	"net/http"

	"github.com/google/uuid"
)

// Metadata добавляет в исходящий запрос:
//   - X-Request-Id: из заголовка запроса, из контекста (CtxRequestID)
//     или новый uuid;
//   - User-Agent, если передан.
func Metadata(userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			r = r.Clone(r.Context())

			if r.Header.Get(HeaderRequestID) == "" {
				rid, _ := r.Context().Value(CtxRequestID).(string)
				if rid == "" {
					rid = uuid.NewString()
				}
				r.Header.Set(HeaderRequestID, rid)
			}

			if userAgent != "" {
				r.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(r)
		})
	}
}

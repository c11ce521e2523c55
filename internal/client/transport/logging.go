package transport

import (
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	logctx "github.com/mydata-ng/privacy-client/internal/pkg/log"

	"google.golang.org/grpc/codes"
)

// Logging — логирование исходящих запросов.
// Поведение:
//   - обогащает логгер полями request_id/method/path и кладёт его в контекст;
//   - пишет одну итоговую запись "http": status, code, dur;
//   - при сетевой ошибке пишет Warn с текстом ошибки.
//
// Тела запросов/ответов и заголовок Authorization не логируются.
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			l := base.With(
				slog.String("request_id", r.Header.Get(HeaderRequestID)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			r = r.WithContext(logctx.Into(r.Context(), l))

			resp, err := next.RoundTrip(r)
			if err != nil {
				l.Warn("http",
					slog.String("code", codes.Unavailable.String()),
					slog.Duration("dur", time.Since(start)),
					slog.String("err", err.Error()),
				)
				return nil, err
			}

			l.Info("http",
				slog.Int("status", resp.StatusCode),
				slog.String("code", apierrors.CodeFromHTTP(resp.StatusCode).String()),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}

package transport

import (
	"context"
	"fmt"
	"net/http"
)

// TokenSource отдаёт текущий access-токен; пустая строка — токена нет.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc — адаптер функции к TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }

// Bearer перед каждым запросом читает токен из src и, если он есть,
// ставит Authorization: Bearer <token>. Без токена заголовок не ставится,
// запрос уходит как есть и бэкенд сам отвечает 401.
func Bearer(src TokenSource) Middleware {
	const op = "transport/Bearer"

	return func(next http.RoundTripper) http.RoundTripper {
		if src == nil {
			return next
		}

		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			tok, err := src.AccessToken(r.Context())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}

			if tok != "" {
				r = r.Clone(r.Context())
				r.Header.Set("Authorization", "Bearer "+tok)
			}

			return next.RoundTrip(r)
		})
	}
}

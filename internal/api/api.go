// api — типизированные клиенты ресурсов MyData поверх исполнителя запросов.
//
// Каждый метод: один HTTP-вызов на фиксированный эндпойнт, тело — JSON,
// ответ — обёртка {success, message, data} как есть. Ошибки не
// подавляются: отказ бэкенда приходит как *apierrors.APIError, локальная
// валидация — как сентинел из internal/errors без сетевого вызова.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mydata-ng/privacy-client/internal/client"
	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
)

// Caller — исполнитель запросов (обычно *client.Client).
type Caller interface {
	Call(ctx context.Context, endpoint string, opts client.RequestOptions) (json.RawMessage, error)
}

// Clients агрегирует клиенты всех ресурсов.
type Clients struct {
	Auth      *AuthAPI
	Users     *UsersAPI
	Dashboard *DashboardAPI
	Policy    *PolicyAPI
	Alerts    *AlertsAPI
	Consent   *ConsentAPI
}

// New собирает клиенты ресурсов над одним исполнителем.
func New(c Caller) *Clients {
	return &Clients{
		Auth:      &AuthAPI{c: c},
		Users:     &UsersAPI{c: c},
		Dashboard: &DashboardAPI{c: c},
		Policy:    &PolicyAPI{c: c},
		Alerts:    &AlertsAPI{c: c},
		Consent:   &ConsentAPI{c: c},
	}
}

// send сериализует in (nil — без тела), выполняет вызов и разбирает обёртку.
func send[T any](ctx context.Context, c Caller, method, endpoint string, in any) (models.Envelope[T], error) {
	const op = "api/send"

	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return models.Envelope[T]{}, fmt.Errorf("%s: encode %s: %w", op, endpoint, err)
		}
		body = b
	}

	raw, err := c.Call(ctx, endpoint, client.RequestOptions{Method: method, Body: body})
	if err != nil {
		return models.Envelope[T]{}, err
	}

	return decodeEnvelope[T](endpoint, raw)
}

// decodeEnvelope разбирает обёртку. Явный success=false на 2xx
// превращается в APIError с сообщением обёртки.
func decodeEnvelope[T any](endpoint string, raw json.RawMessage) (models.Envelope[T], error) {
	const op = "api/decodeEnvelope"

	var env models.Envelope[T]
	if len(raw) == 0 {
		return env, nil
	}

	var probe struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return env, fmt.Errorf("%s: %s: %w", op, endpoint, err)
	}

	if probe.Success != nil && !*probe.Success {
		msg := probe.Message
		if msg == "" {
			msg = apierrors.FallbackMessage
		}
		return env, &apierrors.APIError{Status: http.StatusOK, Message: msg}
	}

	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%s: %s: %w", op, endpoint, err)
	}

	return env, nil
}

// client — исполнитель HTTP-запросов к API MyData.
//
// Контракт Call:
//   - URL = BaseURL + endpoint;
//   - всегда Content-Type: application/json, Bearer-токен добавляет транспорт;
//   - тело ответа читается целиком при любом статусе;
//   - 2xx — разобранный JSON возвращается как есть (без разворачивания обёртки);
//   - не-2xx — *apierrors.APIError с сообщением из тела ответа.
//
// Ретраев, таймаутов и кэширования нет: запрос выполняется до конца либо до
// сетевой ошибки. Отмена возможна только через контекст вызывающего.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mydata-ng/privacy-client/internal/client/transport"
	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/metrics"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options — параметры сборки клиента.
type Options struct {
	// BaseURL — корень API, например "http://localhost:5000/api/v1".
	BaseURL string
	// UserAgent — значение заголовка User-Agent; пустое — не ставится.
	UserAgent string
	// Tokens — источник access-токена (обычно *session.Session); nil — без авторизации.
	Tokens transport.TokenSource
	Logger *slog.Logger
	// Metrics — коллекторы Prometheus; nil — метрики не пишутся.
	Metrics *metrics.Client
	// Transport — базовый транспорт; по умолчанию http.DefaultTransport под otelhttp.
	Transport http.RoundTripper
}

// RequestOptions — параметры одного вызова.
type RequestOptions struct {
	// Method — HTTP-метод, по умолчанию GET.
	Method string
	// Body — уже сериализованный JSON; nil — без тела.
	Body []byte
	// Header — дополнительные заголовки. Content-Type всегда JSON.
	Header http.Header
}

// Client — исполнитель запросов. Безопасен для конкурентного использования.
type Client struct {
	baseURL string
	http    *http.Client
}

// New собирает клиент с цепочкой транспорта metadata -> bearer -> logging -> metrics.
func New(opts Options) (*Client, error) {
	const op = "client/New"

	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, opts.BaseURL)
	}

	rt := opts.Transport
	if rt == nil {
		rt = otelhttp.NewTransport(http.DefaultTransport)
	}

	rt = transport.Chain(rt,
		transport.Metadata(opts.UserAgent),
		transport.Bearer(opts.Tokens),
		transport.Logging(opts.Logger),
		transport.Metrics(opts.Metrics),
	)

	return &Client{
		baseURL: base,
		http:    &http.Client{Transport: rt},
	}, nil
}

// BaseURL возвращает корень API без завершающего "/".
func (c *Client) BaseURL() string { return c.baseURL }

// Call выполняет запрос и возвращает тело ответа как сырой JSON.
// Пустое тело при 2xx — (nil, nil).
func (c *Client) Call(ctx context.Context, endpoint string, opts RequestOptions) (json.RawMessage, error) {
	const op = "client/Call"

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierrors.FromResponse(resp.StatusCode, raw, requestID(resp))
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s: %s %s: response is not valid JSON", op, method, endpoint)
	}

	return json.RawMessage(raw), nil
}

// Do сериализует in (nil — без тела), выполняет Call и разбирает ответ в out
// (nil — ответ отбрасывается). Ошибки бэкенда возвращаются без обёртки.
func (c *Client) Do(ctx context.Context, method, endpoint string, in, out any) error {
	const op = "client/Do"

	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = b
	}

	raw, err := c.Call(ctx, endpoint, RequestOptions{Method: method, Body: body})
	if err != nil {
		return err
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode %s: %w", op, endpoint, err)
	}

	return nil
}

// requestID — id запроса из ответа сервера или из отправленного запроса.
func requestID(resp *http.Response) string {
	if rid := resp.Header.Get(transport.HeaderRequestID); rid != "" {
		return rid
	}

	if resp.Request != nil {
		return resp.Request.Header.Get(transport.HeaderRequestID)
	}

	return ""
}

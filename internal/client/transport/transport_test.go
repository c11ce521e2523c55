package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mydata-ng/privacy-client/internal/metrics"
	logctx "github.com/mydata-ng/privacy-client/internal/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// capHandler — тестовый slog.Handler: копит базовые attrs из With(...)
// и запоминает последнюю запись.
type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   map[string]int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	if h.count == nil {
		h.count = make(map[string]int)
	}
	h.count[r.Message]++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

// capture — конечный RoundTripper, запоминающий запрос.
func capture(status int, seen **http.Request) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		*seen = r
		rec := httptest.NewRecorder()
		rec.WriteHeader(status)
		return rec.Result(), nil
	})
}

func newReq(t *testing.T, ctx context.Context, path string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://mydata.test"+path, nil)
	require.NoError(t, err)
	return req
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name+"-begin")
				resp, err := next.RoundTrip(r)
				order = append(order, name+"-end")
				return resp, err
			})
		}
	}

	var seen *http.Request
	rt := Chain(capture(http.StatusOK, &seen), mw("m1"), mw("m2"))
	resp, err := rt.RoundTrip(newReq(t, context.Background(), "/dashboard"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, []string{"m1-begin", "m2-begin", "m2-end", "m1-end"}, order)
}

func TestMetadata_GeneratesRequestIDAndUserAgent(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	rt := Chain(capture(http.StatusOK, &seen), Metadata("mydatactl"))

	orig := newReq(t, context.Background(), "/users/me")
	resp, err := rt.RoundTrip(orig)
	require.NoError(t, err)
	_ = resp.Body.Close()

	_, err = uuid.Parse(seen.Header.Get(HeaderRequestID))
	require.NoError(t, err)
	require.Equal(t, "mydatactl", seen.Header.Get("User-Agent"))
	require.Empty(t, orig.Header.Get(HeaderRequestID), "исходный запрос не должен меняться")
}

func TestMetadata_RequestIDFromContextOrHeader(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	rt := Chain(capture(http.StatusOK, &seen), Metadata(""))

	resp, err := rt.RoundTrip(newReq(t, context.WithValue(context.Background(), CtxRequestID, "rid-ctx"), "/dashboard"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "rid-ctx", seen.Header.Get(HeaderRequestID))
	require.Empty(t, seen.Header.Get("User-Agent"))

	req := newReq(t, context.Background(), "/dashboard")
	req.Header.Set(HeaderRequestID, "rid-hdr")
	resp, err = rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "rid-hdr", seen.Header.Get(HeaderRequestID))
}

func TestBearer_AttachesOnlyWhenTokenPresent(t *testing.T) {
	t.Parallel()

	token := ""
	src := TokenSourceFunc(func(context.Context) (string, error) { return token, nil })

	var seen *http.Request
	rt := Chain(capture(http.StatusOK, &seen), Bearer(src))

	resp, err := rt.RoundTrip(newReq(t, context.Background(), "/dashboard"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	_, has := seen.Header["Authorization"]
	require.False(t, has)

	token = "acc-1"
	resp, err = rt.RoundTrip(newReq(t, context.Background(), "/dashboard"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "Bearer acc-1", seen.Header.Get("Authorization"))
}

func TestBearer_SourceErrorStopsRequest(t *testing.T) {
	t.Parallel()

	boom := errors.New("store unavailable")
	src := TokenSourceFunc(func(context.Context) (string, error) { return "", boom })

	called := false
	rt := Chain(RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, nil
	}), Bearer(src))

	_, err := rt.RoundTrip(newReq(t, context.Background(), "/dashboard"))
	require.ErrorIs(t, err, boom)
	require.False(t, called)
}

func TestLogging_FinalRecordAndLoggerInContext(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	base := slog.New(h)

	next := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		logctx.From(r.Context()).Info("probe")
		time.Sleep(time.Millisecond)
		rec := httptest.NewRecorder()
		rec.WriteHeader(http.StatusUnauthorized)
		return rec.Result(), nil
	})

	req := newReq(t, context.Background(), "/api/v1/users/me")
	req.Header.Set(HeaderRequestID, "rid-7")
	resp, err := Chain(next, Logging(base)).RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, 1, h.count["probe"])
	require.Equal(t, "http", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, "Unauthenticated", h.attrs["code"])
	require.Equal(t, "rid-7", h.attrs["request_id"])
	require.Equal(t, "/api/v1/users/me", h.attrs["path"])

	d, ok := h.attrs["dur"].(time.Duration)
	require.True(t, ok)
	require.Greater(t, d, time.Duration(0))
	require.NotContains(t, h.attrs, "Authorization")
}

func TestLogging_TransportErrorIsWarn(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	next := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err := Chain(next, Logging(slog.New(h))).RoundTrip(newReq(t, context.Background(), "/dashboard"))
	require.Error(t, err)
	require.Equal(t, slog.LevelWarn, h.lastLvl)
	require.Equal(t, "Unavailable", h.attrs["code"])
}

func TestMetrics_CountsByRouteAndStatus(t *testing.T) {
	t.Parallel()

	m := metrics.NewClient(prometheus.NewRegistry())

	var seen *http.Request
	rt := Chain(capture(http.StatusOK, &seen), Metrics(m))
	for _, p := range []string{"/api/v1/dashboard/alerts/a1/acknowledge", "/api/v1/dashboard/alerts/b2/acknowledge"} {
		resp, err := rt.RoundTrip(newReq(t, context.Background(), p))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	got := testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/api/v1/dashboard/alerts/{id}/acknowledge", "200"))
	require.Equal(t, 2.0, got)
	require.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))

	failing := Chain(RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("tls: handshake failure")
	}), Metrics(m))
	_, err := failing.RoundTrip(newReq(t, context.Background(), "/api/v1/dashboard"))
	require.Error(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/api/v1/dashboard", "error")))
}

func TestRoute(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/api/v1/dashboard/alerts", Route("/api/v1/dashboard/alerts"))
	require.Equal(t, "/api/v1/dashboard/alerts/{id}/acknowledge", Route("/api/v1/dashboard/alerts/66f1/acknowledge"))
	require.Equal(t, "/api/v1/consents/{id}/summary", Route("/api/v1/consents/req-9/summary"))
	require.Equal(t, "/api/v1/consents", Route("/api/v1/consents"))
	require.Equal(t, "/api/v1/consents/", Route("/api/v1/consents/"))
}

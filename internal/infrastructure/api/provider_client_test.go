package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSession is a minimal ProviderSession bound to a test server
type stubSession struct {
	cfg        entity.ProviderConfig
	credential string
}

func (s *stubSession) Config() entity.ProviderConfig {
	return s.cfg
}

func (s *stubSession) BuildRequestTarget(path string, params map[string]string) string {
	for k, v := range params {
		path = strings.ReplaceAll(path, "{"+k+"}", v)
	}

	target := s.cfg.BaseURL + path
	if s.cfg.RequiresKey && s.credential != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + s.cfg.KeyParam + "=" + s.credential
	}

	return target
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg entity.ProviderConfig, credential string) *ProviderClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	sess := &stubSession{cfg: cfg, credential: credential}

	c := NewProviderClient(sess, srv.Client(), logger.NewJSONLogger(nil, logger.ErrorLevel))
	c.backoffUnit = time.Millisecond
	return c
}

func TestFetchRate(t *testing.T) {
	ctx := context.Background()

	baseCfg := entity.ProviderConfig{
		Name:      "frankfurter",
		RatePath:  "/latest?base={from}&symbols={to}",
		ListPath:  "/currencies",
		RateField: "rates",
		DateField: "date",
	}

	t.Run("Successful fetch parses rate and date", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "USD", r.URL.Query().Get("base"))
			assert.Equal(t, "EUR", r.URL.Query().Get("symbols"))
			w.Write([]byte(`{"base":"USD","date":"2026-08-20","rates":{"EUR":0.92}}`))
		}, baseCfg, "")

		rec, err := c.FetchRate(ctx, "USD", "EUR")
		require.NoError(t, err)
		assert.Equal(t, 0.92, rec.Rate)
		assert.Equal(t, "2026-08-20", rec.APIDate)
		assert.Equal(t, "frankfurter", rec.Provider)
		assert.WithinDuration(t, time.Now().UTC(), rec.FetchedAt, 5*time.Second)
	})

	t.Run("Unauthorized maps to invalid credential", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, baseCfg, "")

		_, err := c.FetchRate(ctx, "USD", "EUR")
		assert.ErrorIs(t, err, entity.ErrInvalidCredential)
	})

	t.Run("Other non-success maps to network error with status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, baseCfg, "")

		_, err := c.FetchRate(ctx, "USD", "EUR")

		var netErr *entity.NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, http.StatusBadGateway, netErr.Status)
	})

	t.Run("Exhausted shapes map to rate not found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"rates":{"GBP":0.79}}`))
		}, baseCfg, "")

		_, err := c.FetchRate(ctx, "USD", "EUR")
		assert.ErrorIs(t, err, entity.ErrRateNotFound)
	})

	t.Run("Non-positive rates are rejected", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"rates":{"EUR":0}}`))
		}, baseCfg, "")

		_, err := c.FetchRate(ctx, "USD", "EUR")
		assert.ErrorIs(t, err, entity.ErrRateNotFound)
	})

	t.Run("Credential is sent as a query parameter when required", func(t *testing.T) {
		keyCfg := entity.ProviderConfig{
			Name:        "openexchangerates",
			RequiresKey: true,
			KeyParam:    "app_id",
			RatePath:    "/latest.json?base={from}&symbols={to}",
			RateField:   "rates",
		}

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "sekrit", r.URL.Query().Get("app_id"))
			w.Write([]byte(`{"rates":{"EUR":0.92}}`))
		}, keyCfg, "sekrit")

		_, err := c.FetchRate(ctx, "USD", "EUR")
		assert.NoError(t, err)
	})
}

func TestFetchCurrencies(t *testing.T) {
	ctx := context.Background()

	cfg := entity.ProviderConfig{
		Name:     "frankfurter",
		ListPath: "/currencies",
	}

	t.Run("Flat map", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/currencies", r.URL.Path)
			w.Write([]byte(`{"USD":"US Dollar","EUR":"Euro"}`))
		}, cfg, "")

		out, err := c.FetchCurrencies(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Euro", out["EUR"])
	})

	t.Run("Malformed body is an error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<!doctype html>`))
		}, cfg, "")

		_, err := c.FetchCurrencies(ctx)
		assert.Error(t, err)
	})
}

func TestDoGetRetriesTransportErrors(t *testing.T) {
	// A server that drops the first connection then answers
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("response writer does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(`{"rates":{"EUR":0.92}}`))
	}))
	t.Cleanup(srv.Close)

	sess := &stubSession{cfg: entity.ProviderConfig{
		Name:      "frankfurter",
		BaseURL:   srv.URL,
		RatePath:  "/latest?base={from}&symbols={to}",
		RateField: "rates",
	}}

	c := NewProviderClient(sess, srv.Client(), logger.NewJSONLogger(nil, logger.ErrorLevel))
	c.backoffUnit = time.Millisecond

	rec, err := c.FetchRate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 0.92, rec.Rate)
	assert.GreaterOrEqual(t, attempts, 2)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coinwatch/ratevault/internal/application/service"
	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/domain/repository"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
	"github.com/coinwatch/ratevault/internal/mocks"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() logger.Logger {
	return logger.NewJSONLogger(nil, logger.ErrorLevel)
}

// newRateRouter wires a rate handler with mocked store and source
// behind a real router
func newRateRouter(t *testing.T, providerName string, store *mocks.MockStore, source *mocks.MockRateSource) *mux.Router {
	t.Helper()

	log := testLogger()

	store.On("Get", mock.Anything, repository.DomainSettings, entity.CredentialKey(providerName)).Return(nil, nil)

	// Selected-pair bookkeeping is incidental to most cases
	store.On("Get", mock.Anything, repository.DomainSettings, entity.SelectedPairKey).Return(nil, nil).Maybe()
	store.On("Set", mock.Anything, repository.DomainSettings, entity.SelectedPairKey, mock.Anything).Return(nil).Maybe()

	session, err := service.NewSession(context.Background(), store, providerName, log)
	require.NoError(t, err)

	rates := service.NewRateService(store, source, session, log)
	currencies := service.NewCurrencyService(store, source, session, log)

	router := mux.NewRouter()
	NewRateHandler(rates, currencies, store, log).RegisterRoutes(router)
	return router
}

func TestConvertEndpoint(t *testing.T) {
	record := &entity.RateRecord{
		Provider:  "frankfurter",
		From:      "USD",
		To:        "EUR",
		Rate:      0.92,
		APIDate:   "2026-08-21",
		FetchedAt: time.Now().UTC(),
	}

	t.Run("Successful conversion rounds to two decimals", func(t *testing.T) {
		store := new(mocks.MockStore)
		source := new(mocks.MockRateSource)
		source.On("FetchRate", mock.Anything, "USD", "EUR").Return(record, nil)
		store.On("Set", mock.Anything, repository.DomainRates, mock.Anything, mock.Anything).Return(nil)

		router := newRateRouter(t, "frankfurter", store, source)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/rates/convert?from=usd&to=eur&amount=123.45", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp ConvertResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "USD", resp.From)
		assert.Equal(t, "EUR", resp.To)
		assert.Equal(t, 0.92, resp.Rate)
		assert.Equal(t, 113.57, resp.ConvertedAmount) // 123.45 * 0.92 = 113.574
		assert.Equal(t, "network", resp.Source)
		assert.False(t, resp.Stale)
	})

	t.Run("Amount defaults to one", func(t *testing.T) {
		store := new(mocks.MockStore)
		source := new(mocks.MockRateSource)
		source.On("FetchRate", mock.Anything, "USD", "EUR").Return(record, nil)
		store.On("Set", mock.Anything, repository.DomainRates, mock.Anything, mock.Anything).Return(nil)

		router := newRateRouter(t, "frankfurter", store, source)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/rates/convert?from=USD&to=EUR", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp ConvertResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1.0, resp.Amount)
		assert.Equal(t, 0.92, resp.ConvertedAmount)
	})

	t.Run("Invalid currency codes are rejected", func(t *testing.T) {
		router := newRateRouter(t, "frankfurter", new(mocks.MockStore), new(mocks.MockRateSource))

		for _, target := range []string{
			"/api/rates/convert?from=US&to=EUR",
			"/api/rates/convert?from=USD&to=EURO",
			"/api/rates/convert?to=EUR",
		} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})

	t.Run("Negative and malformed amounts are rejected", func(t *testing.T) {
		router := newRateRouter(t, "frankfurter", new(mocks.MockStore), new(mocks.MockRateSource))

		for _, target := range []string{
			"/api/rates/convert?from=USD&to=EUR&amount=-5",
			"/api/rates/convert?from=USD&to=EUR&amount=abc",
		} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})

	t.Run("Rejected credential maps to 403", func(t *testing.T) {
		store := new(mocks.MockStore)
		source := new(mocks.MockRateSource)
		source.On("FetchRate", mock.Anything, "USD", "EUR").Return(nil, entity.ErrInvalidCredential)

		router := newRateRouter(t, "frankfurter", store, source)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/rates/convert?from=USD&to=EUR", nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Invalid credential", resp.Error)
	})

	t.Run("Missing credential with empty cache maps to 401", func(t *testing.T) {
		store := new(mocks.MockStore)
		source := new(mocks.MockRateSource)
		store.On("Get", mock.Anything, repository.DomainRates, mock.Anything).Return(nil, nil)

		router := newRateRouter(t, "openexchangerates", store, source)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/rates/convert?from=USD&to=EUR", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		source.AssertNotCalled(t, "FetchRate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Network failure with empty cache maps to 502", func(t *testing.T) {
		store := new(mocks.MockStore)
		source := new(mocks.MockRateSource)
		source.On("FetchRate", mock.Anything, "USD", "EUR").Return(nil, &entity.NetworkError{Status: 500})
		store.On("Get", mock.Anything, repository.DomainRates, mock.Anything).Return(nil, nil)

		router := newRateRouter(t, "frankfurter", store, source)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/rates/convert?from=USD&to=EUR", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("Network failure with cached rate serves the cache", func(t *testing.T) {
		cached, err := json.Marshal(record)
		require.NoError(t, err)

		store := new(mocks.MockStore)
		source := new(mocks.MockRateSource)
		source.On("FetchRate", mock.Anything, "USD", "EUR").Return(nil, &entity.NetworkError{Status: 503})
		store.On("Get", mock.Anything, repository.DomainRates, entity.RateKey("frankfurter", "USD", "EUR")).Return(cached, nil)

		router := newRateRouter(t, "frankfurter", store, source)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/rates/convert?from=USD&to=EUR", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp ConvertResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "cache", resp.Source)
	})
}

func TestCurrenciesEndpoint(t *testing.T) {
	t.Run("Successful fetch returns the catalog", func(t *testing.T) {
		store := new(mocks.MockStore)
		source := new(mocks.MockRateSource)
		source.On("FetchCurrencies", mock.Anything).Return(map[string]string{"USD": "US Dollar", "EUR": "Euro"}, nil)
		store.On("Set", mock.Anything, repository.DomainCurrencies, "frankfurter", mock.Anything).Return(nil)

		router := newRateRouter(t, "frankfurter", store, source)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/currencies", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp CurrenciesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "frankfurter", resp.Provider)
		assert.Equal(t, "network", resp.Source)
		assert.Len(t, resp.Currencies, 2)

		// With no prior selection, the reconciled pair lands on the
		// designated default
		assert.Equal(t, "USD", resp.SelectedFrom)
	})

	t.Run("Network failure with empty cache maps to 502", func(t *testing.T) {
		store := new(mocks.MockStore)
		source := new(mocks.MockRateSource)
		source.On("FetchCurrencies", mock.Anything).Return(nil, &entity.NetworkError{Status: 500})
		store.On("Get", mock.Anything, repository.DomainCurrencies, "frankfurter").Return(nil, nil)

		router := newRateRouter(t, "frankfurter", store, source)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/currencies", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestClearCacheEndpoint(t *testing.T) {
	store := new(mocks.MockStore)
	store.On("Clear", mock.Anything).Return(nil)

	router := newRateRouter(t, "frankfurter", store, new(mocks.MockRateSource))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/cache/clear", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertCalled(t, "Clear", mock.Anything)
}

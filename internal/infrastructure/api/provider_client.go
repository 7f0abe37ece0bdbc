package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
)

// ProviderSession supplies the active provider configuration and
// request-target building, including credential handling
type ProviderSession interface {
	Config() entity.ProviderConfig
	BuildRequestTarget(path string, params map[string]string) string
}

// ProviderClient fetches rates and currency catalogs from the active
// provider over HTTP
type ProviderClient struct {
	session     ProviderSession
	httpClient  *http.Client
	logger      logger.Logger
	maxRetries  int
	backoffUnit time.Duration
}

// NewProviderClient creates a provider client. A nil httpClient gets
// an explicit 10s timeout so a stalled request cannot delay
// fallback-to-cache indefinitely.
func NewProviderClient(session ProviderSession, httpClient *http.Client, log logger.Logger) *ProviderClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &ProviderClient{
		session:     session,
		httpClient:  httpClient,
		logger:      log,
		maxRetries:  3,
		backoffUnit: time.Second,
	}
}

// FetchRate retrieves the current exchange rate for a currency pair
// from the active provider
func (c *ProviderClient) FetchRate(ctx context.Context, from, to string) (*entity.RateRecord, error) {
	cfg := c.session.Config()

	reqURL := c.session.BuildRequestTarget(cfg.RatePath, map[string]string{
		"from": from,
		"to":   to,
	})

	c.logger.Info("Fetching exchange rate", map[string]interface{}{
		"provider": cfg.Name,
		"from":     from,
		"to":       to,
	})

	body, err := c.doGet(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	rate, ok := extractRate(payload, cfg.RateField, to)
	if !ok {
		return nil, fmt.Errorf("%w: provider %s, pair %s/%s", entity.ErrRateNotFound, cfg.Name, from, to)
	}

	if rate <= 0 {
		return nil, fmt.Errorf("%w: invalid rate value %f", entity.ErrRateNotFound, rate)
	}

	return &entity.RateRecord{
		Provider:  cfg.Name,
		From:      from,
		To:        to,
		Rate:      rate,
		APIDate:   extractDate(payload, cfg.DateField),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// FetchCurrencies retrieves the provider's currency catalog
func (c *ProviderClient) FetchCurrencies(ctx context.Context) (map[string]string, error) {
	cfg := c.session.Config()

	reqURL := c.session.BuildRequestTarget(cfg.ListPath, nil)

	c.logger.Info("Fetching currency list", map[string]interface{}{
		"provider": cfg.Name,
	})

	body, err := c.doGet(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	currencies, err := parseCurrencies(body)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", cfg.Name, err)
	}

	return currencies, nil
}

// doGet executes a GET with retry on transport errors and maps the
// response status to the error taxonomy. The request URL may carry a
// credential, so it is never logged.
func (c *ProviderClient) doGet(ctx context.Context, reqURL string) ([]byte, error) {
	var resp *http.Response
	var err error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Add("Accept", "application/json")

		resp, err = c.httpClient.Do(req)
		if err == nil {
			break
		}

		if attempt < c.maxRetries {
			backoff := time.Duration(attempt*attempt) * c.backoffUnit
			c.logger.Warn("Request failed, retrying", map[string]interface{}{
				"attempt": attempt,
				"max":     c.maxRetries,
				"backoff": backoff.String(),
				"error":   err.Error(),
			})

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to execute request after %d attempts: %w", c.maxRetries, err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", entity.ErrInvalidCredential, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, &entity.NetworkError{Status: resp.StatusCode}
	}

	return bodyBytes, nil
}

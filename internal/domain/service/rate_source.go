package service

import (
	"context"

	"github.com/coinwatch/ratevault/internal/domain/entity"
)

// RateSource defines the interface for fetching live data from the
// active provider
type RateSource interface {
	// FetchRate retrieves the current exchange rate for a currency pair
	FetchRate(ctx context.Context, from, to string) (*entity.RateRecord, error)

	// FetchCurrencies retrieves the provider's currency catalog as a
	// code-to-name mapping
	FetchCurrencies(ctx context.Context) (map[string]string, error)
}

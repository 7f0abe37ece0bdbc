package entity

import (
	"time"
)

// Source identifies where a cached value was obtained from.
type Source string

const (
	// SourceNetwork means the value came from a live provider fetch
	SourceNetwork Source = "network"
	// SourceCache means the value was served from the persistent cache
	SourceCache Source = "cache"
	// SourceSynthetic means the value was computed locally without any fetch
	SourceSynthetic Source = "synthetic"
)

// DefaultRateStaleness is the horizon after which a rate record is
// flagged stale. Staleness is computed by consumers, never enforced
// by the cache itself.
const DefaultRateStaleness = 24 * time.Hour

// DefaultCurrencyStaleness is the horizon for currency list records.
// Currency catalogs change far less often than rates.
const DefaultCurrencyStaleness = 7 * 24 * time.Hour

// RateRecord represents a cached exchange rate for a currency pair
type RateRecord struct {
	Provider  string    `json:"provider"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	APIDate   string    `json:"api_date,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// RateKey builds the composite cache key for a currency pair
func RateKey(provider, from, to string) string {
	return provider + ":" + from + ":" + to
}

// Key returns the cache key this record is stored under
func (r *RateRecord) Key() string {
	return RateKey(r.Provider, r.From, r.To)
}

// IsStale reports whether the record is older than the given horizon
func (r *RateRecord) IsStale(horizon time.Duration) bool {
	return time.Since(r.FetchedAt) > horizon
}

// CurrencyList represents a cached code-to-name currency catalog for
// a provider. The code doubles as the name when the source has no
// display names.
type CurrencyList struct {
	Provider   string            `json:"provider"`
	Currencies map[string]string `json:"currencies"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// IsStale reports whether the list is older than the given horizon
func (l *CurrencyList) IsStale(horizon time.Duration) bool {
	return time.Since(l.FetchedAt) > horizon
}

// SelectedPairKey is the settings key the working currency pair is
// persisted under
const SelectedPairKey = "selected-pair"

// SelectedPair is the user's working conversion pair. It is persisted
// so it can be reconciled against the next loaded currency catalog.
type SelectedPair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// IsZero reports whether no pair has been selected yet
func (p SelectedPair) IsZero() bool {
	return p.From == "" && p.To == ""
}

// ValidCode reports whether a currency code is exactly 3 uppercase letters
func ValidCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// Package repository internal/domain/repository/store.go
package repository

import (
	"context"
)

// Domain names a logical partition of the persistent store
type Domain string

const (
	// DomainCurrencies holds currency list records keyed by provider
	DomainCurrencies Domain = "currencies"
	// DomainRates holds rate records keyed by provider:from:to
	DomainRates Domain = "rates"
	// DomainSettings holds opaque settings such as provider credentials
	DomainSettings Domain = "settings"
)

// CacheDomains are the partitions covered by a full-cache-clear.
// Settings are session state, not cached remote data, and survive.
var CacheDomains = []Domain{DomainCurrencies, DomainRates}

// Store defines the interface for the domain-partitioned key-value
// store. Get on a missing key returns (nil, nil), never an error; all
// operations are idempotent for identical inputs.
type Store interface {
	// Set persists a value under a domain and key
	Set(ctx context.Context, domain Domain, key string, value []byte) error

	// Get retrieves a value, or nil if the key is absent
	Get(ctx context.Context, domain Domain, key string) ([]byte, error)

	// Delete removes a key; deleting an absent key is not an error
	Delete(ctx context.Context, domain Domain, key string) error

	// Clear removes every record in the cache domains; the settings
	// domain is untouched
	Clear(ctx context.Context) error

	// Close releases the underlying backend
	Close() error
}

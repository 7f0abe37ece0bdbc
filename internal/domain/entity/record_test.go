package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateKey(t *testing.T) {
	assert.Equal(t, "frankfurter:USD:EUR", RateKey("frankfurter", "USD", "EUR"))

	r := &RateRecord{Provider: "frankfurter", From: "USD", To: "EUR"}
	assert.Equal(t, RateKey("frankfurter", "USD", "EUR"), r.Key())

	// Direction matters: USD->EUR and EUR->USD are distinct records
	assert.NotEqual(t, RateKey("frankfurter", "USD", "EUR"), RateKey("frankfurter", "EUR", "USD"))
}

func TestIsStale(t *testing.T) {
	fresh := &RateRecord{FetchedAt: time.Now().UTC().Add(-time.Hour)}
	assert.False(t, fresh.IsStale(DefaultRateStaleness))

	old := &RateRecord{FetchedAt: time.Now().UTC().Add(-25 * time.Hour)}
	assert.True(t, old.IsStale(DefaultRateStaleness))

	// Currency lists use a wider horizon
	list := &CurrencyList{FetchedAt: time.Now().UTC().Add(-48 * time.Hour)}
	assert.False(t, list.IsStale(DefaultCurrencyStaleness))
	assert.True(t, list.IsStale(DefaultRateStaleness))
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("USD"))
	assert.True(t, ValidCode("EUR"))

	assert.False(t, ValidCode("usd"))
	assert.False(t, ValidCode("US"))
	assert.False(t, ValidCode("EURO"))
	assert.False(t, ValidCode("U$D"))
	assert.False(t, ValidCode(""))
}

func TestProviderCatalog(t *testing.T) {
	providers := Providers()
	assert.NotEmpty(t, providers)

	cfg, ok := ProviderByName("frankfurter")
	assert.True(t, ok)
	assert.False(t, cfg.RequiresKey)

	cfg, ok = ProviderByName("openexchangerates")
	assert.True(t, ok)
	assert.True(t, cfg.RequiresKey)
	assert.Equal(t, "app_id", cfg.KeyParam)

	_, ok = ProviderByName("nonsense")
	assert.False(t, ok)

	assert.Equal(t, "credential-frankfurter", CredentialKey("frankfurter"))
}

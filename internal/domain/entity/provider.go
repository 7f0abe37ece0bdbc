package entity

// DefaultCurrency is the designated default code used when a selected
// currency disappears from a freshly loaded catalog
const DefaultCurrency = "USD"

// ProviderConfig is a static descriptor of a remote rate provider.
// Instances are read-only: selected by name at runtime, never mutated.
type ProviderConfig struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	BaseURL     string `json:"base_url"`
	RequiresKey bool   `json:"requires_key"`

	// Endpoint sub-paths. Segments of the form {from} and {to} are
	// expanded with the requested currency codes.
	ListPath string `json:"-"`
	RatePath string `json:"-"`

	// KeyParam is the query parameter the credential is sent under
	// when RequiresKey is set
	KeyParam string `json:"-"`

	// RateField and DateField hint at where this provider nests the
	// rate map and the quote date. The parser tries the hint first,
	// then falls back to the common alternates.
	RateField string `json:"-"`
	DateField string `json:"-"`
}

// providers is the built-in catalog, in presentation order
var providers = []ProviderConfig{
	{
		Name:        "frankfurter",
		DisplayName: "Frankfurter",
		BaseURL:     "https://api.frankfurter.dev/v1",
		RequiresKey: false,
		ListPath:    "/currencies",
		RatePath:    "/latest?base={from}&symbols={to}",
		RateField:   "rates",
		DateField:   "date",
	},
	{
		Name:        "exchangerate-api",
		DisplayName: "ExchangeRate-API",
		BaseURL:     "https://open.er-api.com/v6",
		RequiresKey: false,
		ListPath:    "/latest/USD",
		RatePath:    "/latest/{from}",
		RateField:   "rates",
		DateField:   "time_last_update_utc",
	},
	{
		Name:        "openexchangerates",
		DisplayName: "Open Exchange Rates",
		BaseURL:     "https://openexchangerates.org/api",
		RequiresKey: true,
		KeyParam:    "app_id",
		ListPath:    "/currencies.json",
		RatePath:    "/latest.json?base={from}&symbols={to}",
		RateField:   "rates",
		DateField:   "timestamp",
	},
}

// Providers returns the built-in provider catalog
func Providers() []ProviderConfig {
	out := make([]ProviderConfig, len(providers))
	copy(out, providers)
	return out
}

// ProviderByName looks up a provider config by its name
func ProviderByName(name string) (ProviderConfig, bool) {
	for _, p := range providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// CredentialKey returns the settings-domain key a provider's
// credential is persisted under
func CredentialKey(provider string) string {
	return "credential-" + provider
}

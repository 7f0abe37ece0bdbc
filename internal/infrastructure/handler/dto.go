package handler

// ConvertResponse represents the response for the convert endpoint
type ConvertResponse struct {
	From            string  `json:"from"`
	To              string  `json:"to"`
	Amount          float64 `json:"amount"`
	Rate            float64 `json:"rate"`
	ConvertedAmount float64 `json:"converted_amount"`
	Provider        string  `json:"provider"`
	Source          string  `json:"source"`
	FetchedAt       string  `json:"fetched_at"`
	RateDate        string  `json:"rate_date,omitempty"`
	Stale           bool    `json:"stale"`
}

// CurrenciesResponse represents the response for the currency list
// endpoint
type CurrenciesResponse struct {
	Provider     string            `json:"provider"`
	Currencies   map[string]string `json:"currencies"`
	Source       string            `json:"source"`
	FetchedAt    string            `json:"fetched_at"`
	Stale        bool              `json:"stale"`
	SelectedFrom string            `json:"selected_from,omitempty"`
	SelectedTo   string            `json:"selected_to,omitempty"`
}

// ProviderResponse describes one provider in the catalog
type ProviderResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	RequiresKey bool   `json:"requires_key"`
	Active      bool   `json:"active"`
}

// CredentialRequest represents the request body for setting a
// provider credential
type CredentialRequest struct {
	Credential string `json:"credential"`
}

// AgentStatusResponse represents the asset cache agent status
type AgentStatusResponse struct {
	State      string `json:"state"`
	Generation string `json:"generation"`
}

// AgentKeysResponse lists the request paths held in the active
// generation
type AgentKeysResponse struct {
	Generation string   `json:"generation"`
	Keys       []string `json:"keys"`
}

// StatusResponse is a minimal acknowledgement body
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

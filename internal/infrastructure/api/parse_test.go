package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRateToleratesAllShapes(t *testing.T) {
	payloads := []string{
		`{"rates":{"EUR":0.92}}`,
		`{"EUR":0.92}`,
		`{"rate":0.92}`,
		`{"result":{"EUR":0.92}}`,
		`{"conversion_rates":{"EUR":0.92}}`,
		`{"rates":{"EUR":"0.92"}}`, // string-quoted numbers
	}

	for _, raw := range payloads {
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &payload))

		rate, ok := extractRate(payload, "", "EUR")
		assert.True(t, ok, "payload %s", raw)
		assert.Equal(t, 0.92, rate, "payload %s", raw)
	}
}

func TestExtractRateHintTriedFirst(t *testing.T) {
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(
		[]byte(`{"quotes":{"EUR":0.92},"rates":{"EUR":0.5}}`), &payload))

	rate, ok := extractRate(payload, "quotes", "EUR")
	assert.True(t, ok)
	assert.Equal(t, 0.92, rate)
}

func TestExtractRateExhausted(t *testing.T) {
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"rates":{"GBP":0.79}}`), &payload))

	_, ok := extractRate(payload, "", "EUR")
	assert.False(t, ok)
}

func TestExtractDate(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		hint    string
		expects string
	}{
		{"plain date field", `{"date":"2026-08-20"}`, "", "2026-08-20"},
		{"hinted field", `{"quote_date":"2026-08-20"}`, "quote_date", "2026-08-20"},
		{"unix timestamp", `{"timestamp":1755648000}`, "timestamp", "2025-08-20"},
		{"absent is empty, not an error", `{"rates":{}}`, "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &payload))
			assert.Equal(t, tc.expects, extractDate(payload, tc.hint))
		})
	}
}

func TestParseCurrencies(t *testing.T) {
	t.Run("Flat code-to-name map", func(t *testing.T) {
		out, err := parseCurrencies([]byte(`{"USD":"US Dollar","EUR":"Euro"}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"USD": "US Dollar", "EUR": "Euro"}, out)
	})

	t.Run("Nested under symbols", func(t *testing.T) {
		out, err := parseCurrencies([]byte(`{"symbols":{"USD":"US Dollar"}}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"USD": "US Dollar"}, out)
	})

	t.Run("Rates map keys become codes, code doubles as name", func(t *testing.T) {
		out, err := parseCurrencies([]byte(`{"rates":{"USD":1,"EUR":0.92}}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"USD": "USD", "EUR": "EUR"}, out)
	})

	t.Run("Bare list of codes", func(t *testing.T) {
		out, err := parseCurrencies([]byte(`["usd","eur"]`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"USD": "USD", "EUR": "EUR"}, out)
	})

	t.Run("Non-conforming codes are dropped", func(t *testing.T) {
		out, err := parseCurrencies([]byte(`{"USD":"US Dollar","BTC2":"bogus","x":"tiny"}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"USD": "US Dollar"}, out)
	})

	t.Run("Nothing usable is an error", func(t *testing.T) {
		_, err := parseCurrencies([]byte(`{"error":"rate limited"}`))
		assert.Error(t, err)
	})
}

package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/coinwatch/ratevault/internal/domain/entity"
)

// rateExtractor is one pure extraction strategy: raw payload in,
// optional rate out. The parser applies strategies in order and takes
// the first success, so new provider shapes extend the list without
// touching control flow.
type rateExtractor func(payload map[string]interface{}, to string) (float64, bool)

// nestedMapExtractor reads payload[field][to]
func nestedMapExtractor(field string) rateExtractor {
	return func(payload map[string]interface{}, to string) (float64, bool) {
		nested, ok := payload[field].(map[string]interface{})
		if !ok {
			return 0, false
		}
		return asFloat(nested[to])
	}
}

// topLevelExtractor reads payload[to] directly
func topLevelExtractor(payload map[string]interface{}, to string) (float64, bool) {
	return asFloat(payload[to])
}

// rateFieldExtractor reads payload["rate"]
func rateFieldExtractor(payload map[string]interface{}, to string) (float64, bool) {
	return asFloat(payload["rate"])
}

// defaultRateExtractors covers the documented provider shapes:
// {rates:{TO:x}}, {TO:x}, {rate:x}, {result:{TO:x}} and the
// conversion_rates variant
var defaultRateExtractors = []rateExtractor{
	nestedMapExtractor("rates"),
	topLevelExtractor,
	rateFieldExtractor,
	nestedMapExtractor("result"),
	nestedMapExtractor("conversion_rates"),
}

// extractRate probes the payload with the provider's hinted shape
// first, then every fallback strategy
func extractRate(payload map[string]interface{}, hint, to string) (float64, bool) {
	strategies := defaultRateExtractors
	if hint != "" {
		strategies = append([]rateExtractor{nestedMapExtractor(hint)}, defaultRateExtractors...)
	}

	for _, extract := range strategies {
		if rate, ok := extract(payload, to); ok {
			return rate, true
		}
	}

	return 0, false
}

// extractDate pulls the provider's quote date when one is present.
// The field is optional; absence is not an error.
func extractDate(payload map[string]interface{}, hint string) string {
	fields := []string{"date", "time_last_update_utc", "timestamp"}
	if hint != "" {
		fields = append([]string{hint}, fields...)
	}

	for _, field := range fields {
		switch v := payload[field].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			// Unix timestamp
			return time.Unix(int64(v), 0).UTC().Format("2006-01-02")
		}
	}

	return ""
}

// asFloat coerces a decoded JSON value to a float64. Some providers
// quote numeric rates as strings.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

var errNoCurrencies = errors.New("no currencies found in provider response")

// parseCurrencies tolerates every documented list shape: a flat
// code-to-name map, the same map nested under symbols/currencies, a
// rates map whose keys are the codes, or a bare list of codes. The
// code doubles as the name when the source has no display names.
func parseCurrencies(body []byte) (map[string]string, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, field := range []string{"symbols", "currencies", "rates", "conversion_rates"} {
			if nested, ok := payload[field].(map[string]interface{}); ok {
				if out := codesFromMap(nested); len(out) > 0 {
					return out, nil
				}
			}
		}

		if out := codesFromMap(payload); len(out) > 0 {
			return out, nil
		}

		return nil, errNoCurrencies
	}

	var codes []string
	if err := json.Unmarshal(body, &codes); err == nil {
		out := make(map[string]string, len(codes))
		for _, code := range codes {
			code = strings.ToUpper(code)
			if entity.ValidCode(code) {
				out[code] = code
			}
		}
		if len(out) == 0 {
			return nil, errNoCurrencies
		}
		return out, nil
	}

	return nil, errNoCurrencies
}

// codesFromMap normalizes a decoded map into code-to-name entries,
// dropping anything that is not a 3-letter code
func codesFromMap(m map[string]interface{}) map[string]string {
	out := make(map[string]string)

	for key, value := range m {
		code := strings.ToUpper(key)
		if !entity.ValidCode(code) {
			continue
		}

		if name, ok := value.(string); ok && name != "" {
			out[code] = name
		} else {
			out[code] = code
		}
	}

	return out
}

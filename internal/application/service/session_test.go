// internal/application/service/session_test.go
package service

import (
	"context"
	"strings"
	"testing"

	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession(t *testing.T) {
	ctx := context.Background()
	log := logger.NewJSONLogger(nil, logger.ErrorLevel)

	t.Run("Unknown provider is rejected", func(t *testing.T) {
		_, err := NewSession(ctx, newSpyStore(), "nope", log)
		assert.Error(t, err)
	})

	t.Run("Credential appended only when the provider requires one", func(t *testing.T) {
		store := newSpyStore()
		sess := newTestSession(t, store, "frankfurter")

		target := sess.BuildRequestTarget("/latest?base={from}&symbols={to}", map[string]string{
			"from": "USD",
			"to":   "EUR",
		})
		assert.Equal(t, "https://api.frankfurter.dev/v1/latest?base=USD&symbols=EUR", target)

		// A keyless provider never leaks a credential, even a stale
		// persisted one
		require.NoError(t, sess.SetCredential(ctx, "ignored"))
		target = sess.BuildRequestTarget("/latest?base={from}&symbols={to}", map[string]string{
			"from": "USD",
			"to":   "EUR",
		})
		assert.NotContains(t, target, "ignored")
	})

	t.Run("Key provider appends the credential parameter", func(t *testing.T) {
		store := newSpyStore()
		sess := newTestSession(t, store, "openexchangerates")
		require.NoError(t, sess.SetCredential(ctx, "sekrit"))

		target := sess.BuildRequestTarget("/latest.json?base={from}&symbols={to}", map[string]string{
			"from": "USD",
			"to":   "EUR",
		})
		assert.True(t, strings.HasSuffix(target, "&app_id=sekrit"), target)

		// Paths without a query string get "?" as the separator
		target = sess.BuildRequestTarget("/currencies.json", nil)
		assert.True(t, strings.HasSuffix(target, "?app_id=sekrit"), target)
	})

	t.Run("Credential persists across provider switches", func(t *testing.T) {
		store := newSpyStore()
		sess := newTestSession(t, store, "openexchangerates")
		require.NoError(t, sess.SetCredential(ctx, "sekrit"))

		require.NoError(t, sess.SelectProvider(ctx, "frankfurter"))
		assert.False(t, sess.HasCredential())

		require.NoError(t, sess.SelectProvider(ctx, "openexchangerates"))
		assert.True(t, sess.HasCredential(), "persisted credential reloads on switch back")
	})

	t.Run("ClearCredential removes the persisted value", func(t *testing.T) {
		store := newSpyStore()
		sess := newTestSession(t, store, "openexchangerates")
		require.NoError(t, sess.SetCredential(ctx, "sekrit"))
		require.NoError(t, sess.ClearCredential(ctx))

		assert.False(t, sess.HasCredential())
		assert.Nil(t, store.data["settings:credential-openexchangerates"])
	})
}

// Package service internal/application/service/session.go
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/domain/repository"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
)

// Session holds the active provider and its credential. It is an
// explicit object constructed once at startup and threaded through
// the cache components instead of process-wide variables.
//
// Switching providers never purges cached data keyed by the previous
// provider; records stay addressable so switching back is cheap.
type Session struct {
	mu         sync.RWMutex
	provider   entity.ProviderConfig
	credential string

	store  repository.Store
	logger logger.Logger
}

// NewSession creates a session with the named provider active. The
// provider's persisted credential, if any, is loaded from settings.
func NewSession(ctx context.Context, store repository.Store, providerName string, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	s := &Session{
		store:  store,
		logger: log,
	}

	if err := s.SelectProvider(ctx, providerName); err != nil {
		return nil, err
	}

	return s, nil
}

// Config returns the active provider configuration
func (s *Session) Config() entity.ProviderConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.provider
}

// SelectProvider activates a provider by name and loads its persisted
// credential from the settings domain
func (s *Session) SelectProvider(ctx context.Context, name string) error {
	cfg, ok := entity.ProviderByName(name)
	if !ok {
		return fmt.Errorf("unknown provider: %s", name)
	}

	credential := ""
	data, err := s.store.Get(ctx, repository.DomainSettings, entity.CredentialKey(name))
	if err != nil {
		s.logger.Warn("Failed to load persisted credential", map[string]interface{}{
			"provider": name,
			"error":    err.Error(),
		})
	} else if data != nil {
		credential = string(data)
	}

	s.mu.Lock()
	s.provider = cfg
	s.credential = credential
	s.mu.Unlock()

	s.logger.Info("Provider selected", map[string]interface{}{
		"provider":       name,
		"requires_key":   cfg.RequiresKey,
		"has_credential": credential != "",
	})

	return nil
}

// HasCredential reports whether a credential is configured for the
// active provider
func (s *Session) HasCredential() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.credential != ""
}

// SetCredential stores a credential for the active provider and
// persists it to the settings domain. Cached data is not invalidated.
func (s *Session) SetCredential(ctx context.Context, credential string) error {
	s.mu.Lock()
	s.credential = credential
	name := s.provider.Name
	s.mu.Unlock()

	if err := s.store.Set(ctx, repository.DomainSettings, entity.CredentialKey(name), []byte(credential)); err != nil {
		return err
	}

	return nil
}

// ClearCredential removes the active provider's credential. Cached
// data is not invalidated.
func (s *Session) ClearCredential(ctx context.Context) error {
	s.mu.Lock()
	s.credential = ""
	name := s.provider.Name
	s.mu.Unlock()

	return s.store.Delete(ctx, repository.DomainSettings, entity.CredentialKey(name))
}

// BuildRequestTarget expands {param} placeholders in an endpoint path
// and appends the credential as a query parameter, only when the
// active provider requires one
func (s *Session) BuildRequestTarget(path string, params map[string]string) string {
	s.mu.RLock()
	cfg := s.provider
	credential := s.credential
	s.mu.RUnlock()

	for k, v := range params {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}

	target := cfg.BaseURL + path

	if cfg.RequiresKey && credential != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + cfg.KeyParam + "=" + url.QueryEscape(credential)
	}

	return target
}

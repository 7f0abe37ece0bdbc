// Package service internal/application/service/rate_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/domain/repository"
	domainservice "github.com/coinwatch/ratevault/internal/domain/service"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
)

// RateResult is a rate record tagged with where it came from
type RateResult struct {
	Record *entity.RateRecord `json:"record"`
	Source entity.Source      `json:"source"`
}

// RateService is the network-first-with-cache-fallback engine for
// exchange rates
type RateService struct {
	store   repository.Store
	source  domainservice.RateSource
	session *Session
	logger  logger.Logger
}

// NewRateService creates a new rate service
func NewRateService(store repository.Store, source domainservice.RateSource, session *Session, log logger.Logger) *RateService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &RateService{
		store:   store,
		source:  source,
		session: session,
		logger:  log,
	}
}

// LoadRate returns the current or best-available rate for a pair.
//
// Identical currencies short-circuit to a synthetic record before any
// credential or store check. A missing mandatory credential serves
// the cached record when one exists. A network fetch failure (other
// than credential rejection) falls back to the cached record; the
// original error propagates only when the cache is empty too.
func (s *RateService) LoadRate(ctx context.Context, from, to string) (*RateResult, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	cfg := s.session.Config()

	if from == to {
		return &RateResult{
			Record: &entity.RateRecord{
				Provider:  cfg.Name,
				From:      from,
				To:        to,
				Rate:      1,
				FetchedAt: time.Now().UTC(),
			},
			Source: entity.SourceSynthetic,
		}, nil
	}

	key := entity.RateKey(cfg.Name, from, to)

	if cfg.RequiresKey && !s.session.HasCredential() {
		if cached := s.cachedRate(ctx, key); cached != nil {
			s.logger.Info("Serving cached rate, credential not configured", map[string]interface{}{
				"key": key,
			})
			return &RateResult{Record: cached, Source: entity.SourceCache}, nil
		}
		return nil, entity.ErrCredentialRequired
	}

	record, err := s.source.FetchRate(ctx, from, to)
	if err != nil {
		// A rejected credential is surfaced distinctly so the user is
		// directed to re-enter it rather than "check your connection"
		if errors.Is(err, entity.ErrInvalidCredential) {
			return nil, err
		}

		if cached := s.cachedRate(ctx, key); cached != nil {
			s.logger.Warn("Network fetch failed, serving cached rate", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
			return &RateResult{Record: cached, Source: entity.SourceCache}, nil
		}

		return nil, err
	}

	s.persistRate(ctx, key, record)

	return &RateResult{Record: record, Source: entity.SourceNetwork}, nil
}

// cachedRate reads and decodes the cached record for a key, returning
// nil for misses and undecodable leftovers alike
func (s *RateService) cachedRate(ctx context.Context, key string) *entity.RateRecord {
	data, err := s.store.Get(ctx, repository.DomainRates, key)
	if err != nil || data == nil {
		return nil
	}

	var record entity.RateRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn("Discarding undecodable cached rate", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil
	}

	return &record
}

// persistRate writes a record best-effort: a failed write never fails
// the surrounding fetch
func (s *RateService) persistRate(ctx context.Context, key string, record *entity.RateRecord) {
	// Identity pairs are synthesized on demand, never persisted
	if record.From == record.To {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		s.logger.Warn("Failed to encode rate record", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}

	if err := s.store.Set(ctx, repository.DomainRates, key, data); err != nil {
		s.logger.Warn("Failed to cache rate record", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

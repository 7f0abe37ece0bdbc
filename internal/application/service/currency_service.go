// Package service internal/application/service/currency_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/domain/repository"
	domainservice "github.com/coinwatch/ratevault/internal/domain/service"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
)

// CurrencyResult is a currency list tagged with where it came from,
// plus the working pair reconciled against that list
type CurrencyResult struct {
	List   *entity.CurrencyList `json:"list"`
	Source entity.Source        `json:"source"`
	Pair   entity.SelectedPair  `json:"pair"`
}

// CurrencyService loads and caches the active provider's currency
// catalog
type CurrencyService struct {
	store   repository.Store
	source  domainservice.RateSource
	session *Session
	logger  logger.Logger
}

// NewCurrencyService creates a new currency service
func NewCurrencyService(store repository.Store, source domainservice.RateSource, session *Session, log logger.Logger) *CurrencyService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &CurrencyService{
		store:   store,
		source:  source,
		session: session,
		logger:  log,
	}
}

// LoadCurrencies returns the current or best-available currency
// catalog, following the same fetch-then-cache-then-fallback shape as
// LoadRate
func (s *CurrencyService) LoadCurrencies(ctx context.Context) (*CurrencyResult, error) {
	cfg := s.session.Config()

	if cfg.RequiresKey && !s.session.HasCredential() {
		if cached := s.cachedList(ctx, cfg.Name); cached != nil {
			s.logger.Info("Serving cached currency list, credential not configured", map[string]interface{}{
				"provider": cfg.Name,
			})
			return &CurrencyResult{
				List:   cached,
				Source: entity.SourceCache,
				Pair:   s.reconcileSelection(ctx, cached.Currencies),
			}, nil
		}
		return nil, entity.ErrCredentialRequired
	}

	currencies, err := s.source.FetchCurrencies(ctx)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidCredential) {
			return nil, err
		}

		if cached := s.cachedList(ctx, cfg.Name); cached != nil {
			s.logger.Warn("Network fetch failed, serving cached currency list", map[string]interface{}{
				"provider": cfg.Name,
				"error":    err.Error(),
			})
			return &CurrencyResult{
				List:   cached,
				Source: entity.SourceCache,
				Pair:   s.reconcileSelection(ctx, cached.Currencies),
			}, nil
		}

		return nil, err
	}

	list := &entity.CurrencyList{
		Provider:   cfg.Name,
		Currencies: currencies,
		FetchedAt:  time.Now().UTC(),
	}

	s.persistList(ctx, list)

	return &CurrencyResult{
		List:   list,
		Source: entity.SourceNetwork,
		Pair:   s.reconcileSelection(ctx, currencies),
	}, nil
}

// SetSelectedPair persists the working pair so the next catalog load
// can reconcile it against the available codes
func (s *CurrencyService) SetSelectedPair(ctx context.Context, from, to string) error {
	data, err := json.Marshal(entity.SelectedPair{From: from, To: to})
	if err != nil {
		return err
	}

	return s.store.Set(ctx, repository.DomainSettings, entity.SelectedPairKey, data)
}

// SelectedPair returns the persisted working pair; the zero pair when
// none has been selected yet
func (s *CurrencyService) SelectedPair(ctx context.Context) entity.SelectedPair {
	data, err := s.store.Get(ctx, repository.DomainSettings, entity.SelectedPairKey)
	if err != nil || data == nil {
		return entity.SelectedPair{}
	}

	var pair entity.SelectedPair
	if err := json.Unmarshal(data, &pair); err != nil {
		s.logger.Warn("Discarding undecodable selected pair", map[string]interface{}{
			"error": err.Error(),
		})
		return entity.SelectedPair{}
	}

	return pair
}

// reconcileSelection validates the persisted pair against a freshly
// loaded code set. A replacement is persisted best-effort; the pair
// returned is always usable against the given codes.
func (s *CurrencyService) reconcileSelection(ctx context.Context, codes map[string]string) entity.SelectedPair {
	prev := s.SelectedPair(ctx)

	if len(codes) == 0 {
		return prev
	}

	from, to := ReconcilePair(prev.From, prev.To, codes)
	pair := entity.SelectedPair{From: from, To: to}

	if pair != prev {
		s.logger.Info("Reconciled selected pair against loaded catalog", map[string]interface{}{
			"from": pair.From,
			"to":   pair.To,
		})
		if err := s.SetSelectedPair(ctx, pair.From, pair.To); err != nil {
			s.logger.Warn("Failed to persist reconciled pair", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return pair
}

// ReconcilePair validates a previously selected pair against a fresh
// code set. A selected code absent from the set is replaced by the
// designated default when available, else any code distinct from the
// other side, else the first available code. Deterministic: ties are
// broken in sorted code order.
func ReconcilePair(from, to string, codes map[string]string) (string, string) {
	sorted := make([]string, 0, len(codes))
	for code := range codes {
		sorted = append(sorted, code)
	}
	sort.Strings(sorted)

	replace := func(other string) string {
		if _, ok := codes[entity.DefaultCurrency]; ok {
			return entity.DefaultCurrency
		}
		for _, code := range sorted {
			if code != other {
				return code
			}
		}
		if len(sorted) > 0 {
			return sorted[0]
		}
		return entity.DefaultCurrency
	}

	if _, ok := codes[from]; !ok {
		from = replace(to)
	}
	if _, ok := codes[to]; !ok {
		to = replace(from)
	}

	return from, to
}

func (s *CurrencyService) cachedList(ctx context.Context, provider string) *entity.CurrencyList {
	data, err := s.store.Get(ctx, repository.DomainCurrencies, provider)
	if err != nil || data == nil {
		return nil
	}

	var list entity.CurrencyList
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("Discarding undecodable cached currency list", map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		})
		return nil
	}

	return &list
}

func (s *CurrencyService) persistList(ctx context.Context, list *entity.CurrencyList) {
	data, err := json.Marshal(list)
	if err != nil {
		s.logger.Warn("Failed to encode currency list", map[string]interface{}{
			"provider": list.Provider,
			"error":    err.Error(),
		})
		return
	}

	if err := s.store.Set(ctx, repository.DomainCurrencies, list.Provider, data); err != nil {
		s.logger.Warn("Failed to cache currency list", map[string]interface{}{
			"provider": list.Provider,
			"error":    err.Error(),
		})
	}
}

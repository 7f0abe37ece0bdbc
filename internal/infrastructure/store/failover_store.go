package store

import (
	"context"

	"github.com/coinwatch/ratevault/internal/domain/repository"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
)

// Backend identifies which concrete store served a call
type Backend string

const (
	// BackendStructured is the transactional badger backend
	BackendStructured Backend = "badger"
	// BackendFlat is the flat file fallback backend
	BackendFlat Backend = "file"
)

// FailoverStore tries the structured backend first and redirects the
// call to the flat backend on failure. The redirection is per call,
// never a sticky mode switch: a later call may succeed against the
// structured store even if an earlier one fell back, so callers must
// not assume backend consistency across calls.
//
// The primary may be nil when the structured store failed to open at
// startup; every call then goes straight to the fallback.
type FailoverStore struct {
	primary  repository.Store
	fallback repository.Store
	logger   logger.Logger
}

// NewFailoverStore creates a failover store. fallback must not be nil.
func NewFailoverStore(primary, fallback repository.Store, log logger.Logger) *FailoverStore {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   log,
	}
}

// Set persists a value, falling back to the flat store on a primary fault
func (s *FailoverStore) Set(ctx context.Context, domain repository.Domain, key string, value []byte) error {
	if s.primary != nil {
		err := s.primary.Set(ctx, domain, key, value)
		if err == nil {
			return nil
		}

		s.logger.Warn("Structured store write failed, redirecting to flat store", map[string]interface{}{
			"domain": string(domain),
			"key":    key,
			"error":  err.Error(),
		})
	}

	return s.fallback.Set(ctx, domain, key, value)
}

// Get retrieves a value; a miss is (nil, nil), not a fault, and does
// not trigger fallback
func (s *FailoverStore) Get(ctx context.Context, domain repository.Domain, key string) ([]byte, error) {
	value, _, err := s.GetFrom(ctx, domain, key)
	return value, err
}

// GetFrom is Get with a discriminated result: it also reports which
// backend served the call, for diagnostics
func (s *FailoverStore) GetFrom(ctx context.Context, domain repository.Domain, key string) ([]byte, Backend, error) {
	if s.primary != nil {
		value, err := s.primary.Get(ctx, domain, key)
		if err == nil {
			return value, BackendStructured, nil
		}

		s.logger.Warn("Structured store read failed, redirecting to flat store", map[string]interface{}{
			"domain": string(domain),
			"key":    key,
			"error":  err.Error(),
		})
	}

	value, err := s.fallback.Get(ctx, domain, key)
	return value, BackendFlat, err
}

// Delete removes a key from whichever backend answers first
func (s *FailoverStore) Delete(ctx context.Context, domain repository.Domain, key string) error {
	if s.primary != nil {
		err := s.primary.Delete(ctx, domain, key)
		if err == nil {
			return nil
		}

		s.logger.Warn("Structured store delete failed, redirecting to flat store", map[string]interface{}{
			"domain": string(domain),
			"key":    key,
			"error":  err.Error(),
		})
	}

	return s.fallback.Delete(ctx, domain, key)
}

// Clear clears both backends so a full-cache-clear cannot leave
// records stranded in the fallback
func (s *FailoverStore) Clear(ctx context.Context) error {
	var primaryErr error
	if s.primary != nil {
		primaryErr = s.primary.Clear(ctx)
		if primaryErr != nil {
			s.logger.Warn("Structured store clear failed", map[string]interface{}{
				"error": primaryErr.Error(),
			})
		}
	}

	if err := s.fallback.Clear(ctx); err != nil {
		return err
	}

	return primaryErr
}

// Close closes both backends
func (s *FailoverStore) Close() error {
	var primaryErr error
	if s.primary != nil {
		primaryErr = s.primary.Close()
	}

	if err := s.fallback.Close(); err != nil {
		return err
	}

	return primaryErr
}

// Ensure FailoverStore implements repository.Store
var _ repository.Store = (*FailoverStore)(nil)

// Package agent internal/infrastructure/agent/agent.go
package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coinwatch/ratevault/internal/infrastructure/bus"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
)

// Policy selects how intercepted asset requests are served
type Policy string

const (
	// PolicyCacheFirst serves from the current generation and only
	// touches the network on a miss
	PolicyCacheFirst Policy = "cache-first"
	// PolicyNetworkFirst tries the network and falls back to the
	// current generation on failure
	PolicyNetworkFirst Policy = "network-first"
)

// Mode is the deployment mode
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// State is the agent lifecycle state
type State string

const (
	StateNew        State = "new"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
)

// generationPrefix namespaces this application's generations inside
// the shared cache root
const generationPrefix = "ratevault-"

// Config configures the asset cache agent
type Config struct {
	// Version tags the current generation; any stored generation with
	// a different tag is stale
	Version      string
	BuildVersion string

	// Manifest is the ordered list of asset paths cached at install
	Manifest []string

	// Upstream is the origin application assets are fetched from
	Upstream string

	Policy Policy
	Mode   Mode

	// PromoteImmediately skips the wait-for-promotion hand-off after
	// install. Development mode always promotes immediately; this
	// design promotes immediately in production too, to guarantee
	// prompt updates on platforms with weak background refresh.
	PromoteImmediately bool

	// Revalidate issues a non-blocking background refetch after a
	// cache-first hit to keep the generation warm
	Revalidate bool

	// OfflinePath and RootPath are the navigation fallbacks, tried in
	// that order before the synthesized inline offline page
	OfflinePath string
	RootPath    string
}

// Agent is the background process that owns the versioned asset
// cache: it installs a fresh generation, evicts stale ones on
// activation, intercepts asset requests, and broadcasts update
// notifications to running application instances
type Agent struct {
	cfg        Config
	generation string
	upstream   *url.URL
	store      *GenerationStore
	bus        *bus.Bus
	httpClient *http.Client
	logger     logger.Logger

	mu    sync.RWMutex
	state State
}

// New creates an agent. A nil httpClient gets an explicit 10s timeout.
func New(cfg Config, store *GenerationStore, b *bus.Bus, httpClient *http.Client, log logger.Logger) (*Agent, error) {
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid asset upstream: %w", err)
	}

	if cfg.Policy == "" {
		cfg.Policy = PolicyCacheFirst
	}
	if cfg.OfflinePath == "" {
		cfg.OfflinePath = "/offline.html"
	}
	if cfg.RootPath == "" {
		cfg.RootPath = "/index.html"
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &Agent{
		cfg:        cfg,
		generation: generationPrefix + cfg.Version,
		upstream:   upstream,
		store:      store,
		bus:        b,
		httpClient: httpClient,
		logger:     log,
		state:      StateNew,
	}, nil
}

// Generation returns the current generation name
func (a *Agent) Generation() string {
	return a.generation
}

// State returns the current lifecycle state
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Install populates a fresh generation from the asset manifest.
// Failure to cache an individual asset is non-fatal: it is logged and
// skipped, preserving partial offline capability over an
// all-or-nothing guarantee.
func (a *Agent) Install(ctx context.Context) error {
	a.setState(StateInstalling)

	a.logger.Info("Installing asset generation", map[string]interface{}{
		"generation": a.generation,
		"assets":     len(a.cfg.Manifest),
	})

	cached := 0
	for _, path := range a.cfg.Manifest {
		body, contentType, err := a.fetchAsset(ctx, path)
		if err != nil {
			a.logger.Warn("Failed to cache asset, skipping", map[string]interface{}{
				"generation": a.generation,
				"path":       path,
				"error":      err.Error(),
			})
			continue
		}

		if err := a.store.Put(a.generation, path, contentType, body); err != nil {
			a.logger.Warn("Failed to store asset, skipping", map[string]interface{}{
				"generation": a.generation,
				"path":       path,
				"error":      err.Error(),
			})
			continue
		}

		cached++
	}

	a.setState(StateInstalled)

	a.logger.Info("Asset generation installed", map[string]interface{}{
		"generation": a.generation,
		"cached":     cached,
		"skipped":    len(a.cfg.Manifest) - cached,
	})

	if a.cfg.PromoteImmediately || a.cfg.Mode == ModeDevelopment {
		return a.Activate(ctx)
	}

	return nil
}

// Activate evicts every stale generation, takes over interception,
// and broadcasts the update to all running application instances
func (a *Agent) Activate(ctx context.Context) error {
	a.setState(StateActivating)

	generations, err := a.store.List()
	if err != nil {
		return fmt.Errorf("failed to enumerate generations: %w", err)
	}

	for _, name := range generations {
		if name == a.generation {
			continue
		}

		if err := a.store.Delete(name); err != nil {
			a.logger.Warn("Failed to delete stale generation", map[string]interface{}{
				"generation": name,
				"error":      err.Error(),
			})
			continue
		}

		a.logger.Info("Deleted stale generation", map[string]interface{}{
			"generation": name,
		})
	}

	a.setState(StateActivated)

	a.bus.Publish(bus.Message{
		Type:         bus.TypeUpdated,
		Version:      a.cfg.Version,
		BuildVersion: a.cfg.BuildVersion,
		Timestamp:    time.Now().Unix(),
	})

	a.logger.Info("Asset generation activated", map[string]interface{}{
		"generation": a.generation,
	})

	return nil
}

// SkipWaiting forces promotion of an installed-but-waiting generation
func (a *Agent) SkipWaiting(ctx context.Context) error {
	if a.State() == StateActivated {
		return nil
	}

	return a.Activate(ctx)
}

// Run listens for control messages until the context is cancelled.
// The agent has its own lifecycle; it talks to application instances
// only through the bus.
func (a *Agent) Run(ctx context.Context) {
	ch, cancel := a.bus.Subscribe(4)
	defer cancel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Type == bus.TypeSkipWaiting {
				if err := a.SkipWaiting(ctx); err != nil {
					a.logger.Error("Forced promotion failed", map[string]interface{}{
						"error": err.Error(),
					})
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// Keys reports every request path held in the active generation.
// Diagnostic only.
func (a *Agent) Keys() ([]string, error) {
	return a.store.Keys(a.generation)
}

// fetchAsset retrieves one asset from the upstream origin
func (a *Agent) fetchAsset(ctx context.Context, path string) ([]byte, string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, "", fmt.Errorf("invalid asset path: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.upstream.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			a.logger.Warn("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("upstream returned status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	return body, resp.Header.Get("Content-Type"), nil
}

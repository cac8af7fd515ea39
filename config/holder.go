package config

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/oueway/jsonapikit"
)

// Holder provides thread-safe access to configuration with hot reload
// support. It implements jsonapikit.Delegate, so a client built on it picks
// up a new endpoint, token or header set as soon as the file changes.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	stopOnce sync.Once
	stopCh   chan struct{}

	now            func() time.Time
	onUnauthorized []func()
	onForbidden    []func()
	unauthorized   atomic.Int64
	forbidden      atomic.Int64
}

var _ jsonapikit.Delegate = (*Holder)(nil)

// NewHolder creates a new config holder and loads the initial configuration.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	h := NewHolderFromConfig(cfg, logger)
	h.path = absPath
	return h, nil
}

// NewHolderFromConfig wraps an already loaded configuration. Reload and
// WatchFile need a file and fail on such a holder.
func NewHolderFromConfig(cfg *Config, logger zerolog.Logger) *Holder {
	return &Holder{
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Reload reloads the configuration from disk.
// Returns error if loading fails (keeps old config).
func (h *Holder) Reload() error {
	if h.path == "" {
		return fmt.Errorf("reload config: holder has no file")
	}
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	listeners := append([]func(*Config){}, h.onChange...)
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)

	for _, fn := range listeners {
		fn(newCfg)
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnUnauthorized registers a callback for 401 responses, typically to
// refresh the token file.
func (h *Holder) OnUnauthorized(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUnauthorized = append(h.onUnauthorized, fn)
}

// OnForbidden registers a callback for 403 responses.
func (h *Holder) OnForbidden(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onForbidden = append(h.onForbidden, fn)
}

// AuthFailures returns how many 401 and 403 responses were reported.
func (h *Holder) AuthFailures() (unauthorized, forbidden int64) {
	return h.unauthorized.Load(), h.forbidden.Load()
}

// WatchFile starts watching the config file for changes.
// Changes trigger automatic reload.
func (h *Holder) WatchFile() error {
	if h.path == "" {
		return fmt.Errorf("watch config: holder has no file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("config file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Endpoint != new.Endpoint {
		h.logger.Info().
			Str("old", old.Endpoint).
			Str("new", new.Endpoint).
			Msg("endpoint changed")
	}

	if old.Token != new.Token {
		h.logger.Info().
			Time("expires_at", new.ExpiresAt()).
			Msg("access token changed")
	}

	if old.Pagination != new.Pagination {
		h.logger.Info().
			Str("old", old.Pagination.Preset).
			Str("new", new.Pagination.Preset).
			Msg("pagination changed")
	}

	if old.ErrorFormat != new.ErrorFormat {
		h.logger.Info().
			Str("old", old.ErrorFormat).
			Str("new", new.ErrorFormat).
			Msg("error format changed")
	}

	if len(old.Headers) != len(new.Headers) {
		h.logger.Info().
			Int("old", len(old.Headers)).
			Int("new", len(new.Headers)).
			Msg("headers count changed")
	}
}

// ReloadableFields returns which fields take effect without rebuilding the client.
func ReloadableFields() []string {
	return []string{
		"endpoint",
		"token",
		"token_file",
		"token_expires_at",
		"pagination",
		"headers",
		"error_format",
	}
}

// NonReloadableFields returns which fields are read once when the client is built.
func NonReloadableFields() []string {
	return []string{
		"timeout",
		"max_resolve_depth",
		"logging",
		"metrics.enabled",
	}
}

func (h *Holder) APIEndpoint() *url.URL {
	return h.Get().EndpointURL()
}

func (h *Holder) AccessToken() string {
	return h.Get().Token
}

// IsTokenExpired reports whether the token's expiry, from token_expires_at
// or the JWT exp claim, has passed. Tokens without a known expiry never expire.
func (h *Holder) IsTokenExpired() bool {
	exp := h.Get().ExpiresAt()
	return !exp.IsZero() && !h.now().Before(exp)
}

func (h *Holder) PaginationParams() *jsonapikit.PaginationParams {
	return h.Get().PaginationParams()
}

func (h *Holder) AdditionalHeaders() map[string]string {
	return h.Get().Headers
}

func (h *Holder) DecodeErrors(body []byte) ([]jsonapikit.DomainError, error) {
	return h.Get().ErrorDecoder()(body)
}

func (h *Holder) DidReceiveUnauthorized() {
	n := h.unauthorized.Add(1)
	h.logger.Warn().Int64("count", n).Msg("server rejected the access token")

	h.mu.RLock()
	hooks := h.onUnauthorized
	h.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func (h *Holder) DidReceiveForbidden() {
	n := h.forbidden.Add(1)
	h.logger.Warn().Int64("count", n).Msg("server refused access to a resource")

	h.mu.RLock()
	hooks := h.onForbidden
	h.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

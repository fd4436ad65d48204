package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads a YAML config file and watches it for changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *Pipeline
	onChange []func(*Pipeline)
	watcher  *fsnotify.Watcher
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *Pipeline {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*Pipeline)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					cfg, err := l.load()
					if err != nil {
						slog.Warn("config reload skipped, keeping previous config", "err", err)
						continue
					}
					l.mu.Lock()
					l.current = cfg
					callbacks := make([]func(*Pipeline), len(l.onChange))
					copy(callbacks, l.onChange)
					l.mu.Unlock()
					for _, fn := range callbacks {
						fn(cfg)
					}
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the config file. On any error the
// current config stays in place and no callbacks fire.
func (l *Loader) Reload() (*Pipeline, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*Pipeline), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

// load reads, parses, and validates the file. An invalid config never leaves
// this function, so l.current can only ever hold a config that passed
// Validate.
func (l *Loader) load() (*Pipeline, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	var cfg Pipeline
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.path, err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default creates a fully-populated config without touching the filesystem.
// Used by tests and as the fallback when no config file is given.
func Default() *Pipeline {
	cfg := &Pipeline{Version: "1"}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in every zero-valued tunable.
func ApplyDefaults(cfg *Pipeline) {
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 8
	}
	if cfg.Ingest.QueueDepth == 0 {
		cfg.Ingest.QueueDepth = 1000
	}
	if cfg.Ingest.SubmitTimeoutMs == 0 {
		cfg.Ingest.SubmitTimeoutMs = 5000
	}
	if cfg.Signals.LookbackDays == 0 {
		cfg.Signals.LookbackDays = 30
	}
	if cfg.Signals.LargeTxnThreshold == 0 {
		cfg.Signals.LargeTxnThreshold = 3000
	}
	if cfg.Signals.ProfileChangeWindowHours == 0 {
		cfg.Signals.ProfileChangeWindowHours = 24
	}
	if cfg.Risk.Weights == nil {
		cfg.Risk.Weights = map[string]int{
			"NEW_DEVICE_LOGIN":                25,
			"PROFILE_CHANGE":                  15,
			"LARGE_TRANSACTION":               25,
			"NEW_PAYEE_LARGE_TRANSFER":        30,
			"PROFILE_CHANGE_AND_TRANSFER_24H": 35,
		}
	}
	if cfg.Risk.DefaultWeight == 0 {
		cfg.Risk.DefaultWeight = 5
	}
	if cfg.Risk.LowMax == 0 {
		cfg.Risk.LowMax = 39
	}
	if cfg.Risk.MediumMax == 0 {
		cfg.Risk.MediumMax = 69
	}
	if cfg.Guardrails.ConfidenceFloor == 0 {
		cfg.Guardrails.ConfidenceFloor = 0.65
	}
	if cfg.SLA.HoursByPath == nil {
		cfg.SLA.HoursByPath = map[string]int{
			"ESCALATE":     2,
			"REVIEW":       24,
			"REQUEST_INFO": 48,
			// MONITOR carries no deadline.
		}
	}
	if cfg.SLA.DefaultHours == 0 {
		cfg.SLA.DefaultHours = 24
	}
	if cfg.SLA.DueSoonHours == 0 {
		cfg.SLA.DueSoonHours = 2
	}
}

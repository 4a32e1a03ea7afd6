// Package document implements the Document Service: per-URI source and
// parse caches under a multi-reader/single-writer discipline, lifecycle
// event handling, watched-file-driven metadata reloads, and diagnostic
// publishing.
package document

import (
	"context"
	"sync"

	"github.com/Zack-911/forgelsp/internal/config"
	"github.com/Zack-911/forgelsp/internal/dsl"
	"github.com/Zack-911/forgelsp/internal/logging"
	"github.com/Zack-911/forgelsp/internal/metadata"
	"github.com/Zack-911/forgelsp/internal/parser"
)

// PublishFunc delivers a document's current diagnostics to the
// transport. An empty slice clears previously published diagnostics
// (sent on close).
type PublishFunc func(uri string, diags []dsl.Diagnostic)

// Service owns the per-URI source/parse state and the metadata manager.
// Per the concurrency model, sources, parsed, workspace folders, and
// config flags each hold their own lock; the metadata snapshot itself
// is an atomic.Pointer owned by metadata.Manager, not locked here.
type Service struct {
	manager *metadata.Manager
	publish PublishFunc

	sourcesMu sync.RWMutex
	sources   map[string]string

	parsedMu sync.RWMutex
	parsed   map[string]*dsl.ParseResult

	foldersMu sync.RWMutex
	folders   []string

	flagsMu    sync.RWMutex
	multiColor bool

	watcher *Watcher
}

// New constructs a Service backed by a metadata.Manager rooted at
// cacheDir.
func New(cacheDir string, publish PublishFunc) (*Service, error) {
	m, err := metadata.NewManager(cacheDir)
	if err != nil {
		return nil, err
	}
	return &Service{
		manager:    m,
		publish:    publish,
		sources:    make(map[string]string),
		parsed:     make(map[string]*dsl.ParseResult),
		multiColor: true,
	}, nil
}

// Snapshot returns the currently active metadata snapshot.
func (s *Service) Snapshot() *metadata.Snapshot {
	return s.manager.Current()
}

// MultiColor reports whether multi-color function highlighting is
// enabled under the current config flags.
func (s *Service) MultiColor() bool {
	s.flagsMu.RLock()
	defer s.flagsMu.RUnlock()
	return s.multiColor
}

// Source returns the currently stored text for uri.
func (s *Service) Source(uri string) (string, bool) {
	s.sourcesMu.RLock()
	defer s.sourcesMu.RUnlock()
	src, ok := s.sources[uri]
	return src, ok
}

// Parsed returns the cached parse result for uri.
func (s *Service) Parsed(uri string) (*dsl.ParseResult, bool) {
	s.parsedMu.RLock()
	defer s.parsedMu.RUnlock()
	res, ok := s.parsed[uri]
	return res, ok
}

// Initialize loads the config file from the first workspace folder
// containing one, rebuilds the metadata manager with its URLs,
// registers custom functions, applies flags, and starts the
// custom-functions directory watcher if one is configured.
func (s *Service) Initialize(ctx context.Context, folders []string) {
	s.foldersMu.Lock()
	s.folders = append([]string(nil), folders...)
	s.foldersMu.Unlock()

	cfg := config.Discover(folders)

	s.flagsMu.Lock()
	s.multiColor = cfg.MultipleFunctionColors
	s.flagsMu.Unlock()

	s.manager.Configure(ctx, cfg)

	if cfg.CustomFunctionsPath != "" {
		w, err := NewWatcher(cfg.CustomFunctionsPath, s.manager)
		if err != nil {
			logging.Warn("document", "failed to watch %s: %v", cfg.CustomFunctionsPath, err)
		} else {
			s.watcher = w
			w.Start()
		}
	}
}

// Open stores text for uri, parses it, caches the result, and
// publishes diagnostics.
func (s *Service) Open(uri, text string) {
	s.store(uri, text)
}

// Change replaces uri's text under full-document sync semantics
// (identical to Open).
func (s *Service) Change(uri, text string) {
	s.store(uri, text)
}

// Close removes both caches for uri and publishes an empty diagnostic
// set to clear the client's display.
func (s *Service) Close(uri string) {
	s.sourcesMu.Lock()
	delete(s.sources, uri)
	s.sourcesMu.Unlock()

	s.parsedMu.Lock()
	delete(s.parsed, uri)
	s.parsedMu.Unlock()

	if s.publish != nil {
		s.publish(uri, nil)
	}
}

func (s *Service) store(uri, text string) {
	s.sourcesMu.Lock()
	s.sources[uri] = text
	s.sourcesMu.Unlock()

	snap := s.manager.Current()
	result := parser.Parse(text, snap.Trie)

	s.parsedMu.Lock()
	s.parsed[uri] = result
	s.parsedMu.Unlock()

	if s.publish != nil {
		s.publish(uri, result.Diagnostics)
	}
}

// Shutdown stops the custom-functions watcher, if one is running.
func (s *Service) Shutdown() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

package metadata

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/Zack-911/forgelsp/internal/config"
	"github.com/Zack-911/forgelsp/internal/dsl"
	fserrors "github.com/Zack-911/forgelsp/internal/errors"
	"github.com/Zack-911/forgelsp/internal/logging"
	"github.com/Zack-911/forgelsp/internal/trie"
)

// Snapshot is the immutable, shared-by-readers view of known functions:
// the trie used for parsing/lookup and the flat list it was built from.
// Readers obtain one via Manager.Current and never see it mutated;
// updates are published by building a new Snapshot and swapping it in.
type Snapshot struct {
	Trie      *trie.Trie
	Functions []*dsl.Function
}

// Manager orchestrates fetching, trie construction, and custom/watched
// function registration, publishing the result as an atomically-swapped
// Snapshot.
type Manager struct {
	fetcher *Fetcher

	mu           sync.Mutex // serializes rebuilds; readers never block on it
	urls         []string
	custom       []*dsl.Function
	watched      map[string][]*dsl.Function // path -> functions loaded from that path
	remoteHashes map[string]uint64

	snapshot atomic.Pointer[Snapshot]
}

// NewManager constructs a Manager with an empty snapshot and a fetcher
// rooted at cacheDir.
func NewManager(cacheDir string) (*Manager, error) {
	f, err := NewFetcher(cacheDir)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		fetcher:      f,
		watched:      make(map[string][]*dsl.Function),
		remoteHashes: make(map[string]uint64),
	}
	m.snapshot.Store(&Snapshot{Trie: trie.New()})
	return m, nil
}

// Current returns the currently published snapshot. Safe for concurrent
// use; never blocks on a rebuild.
func (m *Manager) Current() *Snapshot {
	return m.snapshot.Load()
}

// Configure rebuilds the manager's source list and custom functions
// from cfg, then fetches every source and publishes a new snapshot. The
// publish is skipped only when the source list and custom functions are
// unchanged and every source returned the same bytes as its last fetch.
func (m *Manager) Configure(ctx context.Context, cfg *config.Config) {
	urls := make([]string, len(cfg.URLs))
	for i, u := range cfg.URLs {
		urls[i] = ExpandURL(u)
	}
	custom := customFunctionsFromConfig(cfg.CustomFunctions)

	m.mu.Lock()
	if !reflect.DeepEqual(m.urls, urls) || !reflect.DeepEqual(m.custom, custom) {
		// Forget the remote hashes so rebuild publishes even if every
		// remote payload is byte-identical to the last fetch.
		m.remoteHashes = make(map[string]uint64)
	}
	m.urls = urls
	m.custom = custom
	m.mu.Unlock()

	m.rebuild(ctx)
}

// ReloadFile decodes data as one watched path's function definitions,
// replacing that path's previous contribution, then rebuilds and
// publishes the snapshot.
func (m *Manager) ReloadFile(path string, data []byte) error {
	fns, err := decodeFunctions(data)
	if err != nil {
		return fserrors.NewFetchError(path, "decode", err)
	}
	m.mu.Lock()
	m.watched[path] = fns
	m.mu.Unlock()
	m.rebuildSync()
	return nil
}

// RemoveFunctionsAtPath drops a watched path's contribution, then
// rebuilds and publishes the snapshot.
func (m *Manager) RemoveFunctionsAtPath(path string) {
	m.mu.Lock()
	delete(m.watched, path)
	m.mu.Unlock()
	m.rebuildSync()
}

// rebuild fetches all configured URLs and rebuilds the snapshot. Per
// §7 category 2, a source's failure only drops that source; if every
// source fails and no cache exists for any, the trie is built from
// whatever custom/watched functions remain (possibly empty).
func (m *Manager) rebuild(ctx context.Context) {
	m.mu.Lock()
	urls := append([]string(nil), m.urls...)
	m.mu.Unlock()

	results := m.fetcher.FetchAll(ctx, urls)

	var remoteFns []*dsl.Function
	var errs []error
	changed := false

	m.mu.Lock()
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		h := xxhash.Sum64(r.Body)
		if prev, ok := m.remoteHashes[r.URL]; ok && prev == h {
			// Unchanged payload: still contributes its (already known)
			// functions, but no rebuild would be needed in isolation.
		} else {
			changed = true
		}
		m.remoteHashes[r.URL] = h

		fns, err := decodeFunctions(r.Body)
		if err != nil {
			errs = append(errs, fserrors.NewFetchError(r.URL, "decode", err))
			continue
		}
		remoteFns = append(remoteFns, fns...)
	}
	m.mu.Unlock()

	if err := fserrors.AsMultiError(errs); err != nil {
		logging.Warn("metadata", "%v", err)
	}

	if !changed && len(urls) > 0 && len(errs) == 0 {
		// Every source's content is byte-identical to what's already
		// backing the live trie: skip the rebuild entirely, per the
		// fetcher's change-detection optimization.
		return
	}

	m.publish(remoteFns)
}

func (m *Manager) rebuildSync() {
	m.mu.Lock()
	remoteCount := len(m.remoteHashes)
	// The watched set changed, so rebuild must publish even if no remote
	// payload did: forget the hashes that would let it skip.
	m.remoteHashes = make(map[string]uint64)
	m.mu.Unlock()
	if remoteCount == 0 {
		m.publish(nil)
		return
	}
	m.rebuild(context.Background())
}

func (m *Manager) publish(remoteFns []*dsl.Function) {
	m.mu.Lock()
	all := make([]*dsl.Function, 0, len(remoteFns)+len(m.custom))
	all = append(all, remoteFns...)
	all = append(all, m.custom...)
	for _, fns := range m.watched {
		all = append(all, fns...)
	}
	m.mu.Unlock()

	t := trie.New()
	for _, fn := range all {
		t.Insert(fn.Name, fn)
		for _, alias := range fn.Aliases {
			aliased := *fn
			aliased.Name = alias
			t.Insert(alias, &aliased)
		}
	}

	m.snapshot.Store(&Snapshot{Trie: t, Functions: all})
	logging.Info("metadata", "published snapshot with %d functions", t.Size())
}

func decodeFunctions(body json.RawMessage) ([]*dsl.Function, error) {
	var fns []*dsl.Function
	if err := json.Unmarshal(body, &fns); err != nil {
		return nil, err
	}
	return fns, nil
}

func customFunctionsFromConfig(cfs []config.CustomFunction) []*dsl.Function {
	out := make([]*dsl.Function, 0, len(cfs))
	for _, cf := range cfs {
		args := make([]dsl.Arg, len(cf.Params))
		for i, p := range cf.Params {
			args[i] = dsl.Arg{Name: p.Name, Description: p.Description, Type: p.Type, Required: p.Required}
		}
		brackets := dsl.BracketsOptional
		if len(args) > 0 {
			brackets = dsl.BracketsRequired
		}
		out = append(out, &dsl.Function{
			Name:        cf.Name,
			Description: cf.Description,
			Brackets:    brackets,
			Args:        args,
		})
	}
	return out
}

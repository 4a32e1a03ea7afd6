// Package metadata implements the Metadata Fetcher and Manager: it
// retrieves function metadata JSON from remote URLs (falling back to a
// disk cache on network failure), builds the case-insensitive function
// trie from it, splices in config-declared and watched custom
// functions, and publishes the result as an atomically-swapped
// snapshot.
package metadata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	fserrors "github.com/Zack-911/forgelsp/internal/errors"
)

// Fetcher retrieves JSON metadata documents from URLs, caching
// successful responses to disk and falling back to the cache on
// network failure. The HTTP client and cache directory are process-wide
// singletons owned by the Manager that constructs the Fetcher.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	limiter  *rate.Limiter
}

// NewFetcher builds a Fetcher writing its cache under cacheDir,
// creating the directory if absent. Requests within one fetch_all batch
// are throttled to avoid bursting a single remote host.
func NewFetcher(cacheDir string) (*Fetcher, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, err
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
		limiter:  rate.NewLimiter(rate.Limit(5), 1),
	}, nil
}

// FetchOrCache attempts a network GET for url; on success it overwrites
// the cache file and returns the raw body. On network failure it
// falls back to the cached body if present, else returns a FetchError
// wrapping ErrNoCache.
func (f *Fetcher) FetchOrCache(ctx context.Context, url string) (json.RawMessage, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fserrors.NewFetchError(url, "rate-limit", err)
	}

	body, err := f.fetchHTTP(ctx, url)
	if err == nil {
		if writeErr := writeCache(f.cacheDir, url, body); writeErr != nil {
			return nil, fserrors.NewFetchError(url, "cache-write", writeErr)
		}
		return json.RawMessage(body), nil
	}

	cached, cacheErr := readCache(f.cacheDir, url)
	if cacheErr != nil {
		return nil, fserrors.NewFetchError(url, "http", ErrNoCache)
	}
	return json.RawMessage(cached), nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{url: url, status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// FetchResult pairs a source URL with its outcome.
type FetchResult struct {
	URL  string
	Body json.RawMessage
	Err  error
}

// FetchAll runs FetchOrCache for every url concurrently; one source's
// failure never cancels the others. Results preserve the input order.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []FetchResult {
	results := make([]FetchResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			body, err := f.FetchOrCache(gctx, u)
			results[i] = FetchResult{URL: u, Body: body, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

type httpStatusError struct {
	url    string
	status int
}

func (e *httpStatusError) Error() string {
	return "unexpected status " + http.StatusText(e.status) + " from " + e.url
}

// ErrNoCache is returned (wrapped in a FetchError) when a network fetch
// fails and no cached body exists for the URL.
var ErrNoCache = noCacheError{}

type noCacheError struct{}

func (noCacheError) Error() string { return "no cache available" }

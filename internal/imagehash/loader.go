package imagehash

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"sync"
)

// Loader fetches and decodes an image by URL. Implementations are expected
// to cache: enrichment classifies a property's gallery images straight from
// this cache when structural floorplan extraction comes up empty.
type Loader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// HTTPLoader downloads images over HTTP and keeps decoded results in memory
// for the lifetime of a batch.
type HTTPLoader struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewHTTPLoader creates a loader backed by client, or http.DefaultClient
// when nil.
func NewHTTPLoader(client *http.Client) *HTTPLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLoader{
		client: client,
		cache:  make(map[string]image.Image),
	}
}

// Load returns the decoded image at url, from cache when already fetched.
func (l *HTTPLoader) Load(ctx context.Context, url string) (image.Image, error) {
	l.mu.Lock()
	img, ok := l.cache[url]
	l.mu.Unlock()
	if ok {
		return img, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building image request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image %s: status %d", url, resp.StatusCode)
	}

	img, _, err = image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", url, err)
	}

	l.mu.Lock()
	l.cache[url] = img
	l.mu.Unlock()
	return img, nil
}

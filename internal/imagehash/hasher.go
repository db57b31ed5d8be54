// Package imagehash provides the perceptual-hash collaborator: hashing a
// listing's representative image so visually identical photos can corroborate
// a match across portals.
package imagehash

import (
	"context"
	"fmt"

	"github.com/corona10/goimagehash"
)

// Hasher maps an image URL to a hex-encoded perceptual hash. An empty hash
// or an error on either side of a comparison zeroes the image signal; it
// never fails a match outright.
type Hasher interface {
	Hash(ctx context.Context, url string) (string, error)
}

// PHasher computes a 64-bit pHash over the downloaded image.
type PHasher struct {
	loader Loader
}

// NewPHasher creates a perceptual hasher reading images through loader.
func NewPHasher(loader Loader) *PHasher {
	return &PHasher{loader: loader}
}

// Hash downloads, decodes and hashes the image at url.
func (p *PHasher) Hash(ctx context.Context, url string) (string, error) {
	img, err := p.loader.Load(ctx, url)
	if err != nil {
		return "", err
	}
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("hashing image %s: %w", url, err)
	}
	return fmt.Sprintf("%016x", h.GetHash()), nil
}

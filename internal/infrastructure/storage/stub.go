package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/photolab/backend/internal/domain/fulfillment"
)

// StubPhotoResolver builds deterministic URLs under a public base URL without
// touching any storage. For development and tests.
type StubPhotoResolver struct {
	BaseURL string
}

// NewStubPhotoResolver creates a stub resolver.
// An empty baseURL defaults to https://storage.example.com.
func NewStubPhotoResolver(baseURL string) *StubPhotoResolver {
	if baseURL == "" {
		baseURL = "https://storage.example.com"
	}
	return &StubPhotoResolver{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve returns a URL for the photo and the MD5 of its ID
func (s *StubPhotoResolver) Resolve(_ context.Context, photoID string) (*fulfillment.PhotoAsset, error) {
	if photoID == "" {
		return nil, fulfillment.ErrMissingPhoto
	}
	sum := md5.Sum([]byte(photoID))
	return &fulfillment.PhotoAsset{
		PhotoID:  photoID,
		URL:      s.BaseURL + "/photos/" + photoID,
		MD5:      hex.EncodeToString(sum[:]),
		FileName: photoID + ".jpg",
	}, nil
}

// Ensure StubPhotoResolver implements PhotoResolver
var _ fulfillment.PhotoResolver = (*StubPhotoResolver)(nil)

// package media holds downloaded audio bytes behind revocable, process-local handles.
package media

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/google/uuid"
)

// Scheme prefixes every handle URL issued by a [BlobStore].
const Scheme = "blob:"

// Blob is the content registered under a handle.
type Blob struct {
	Data     []byte
	MimeType string
}

// BlobStore registers byte slices under "blob:<uuid>" URLs until they are revoked.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]Blob)}
}

// Create registers data and returns a handle that owns it.
func (s *BlobStore) Create(data []byte, mimeType string) *Handle {
	url := Scheme + uuid.New().String()

	s.mu.Lock()
	s.blobs[url] = Blob{Data: data, MimeType: mimeType}
	s.mu.Unlock()

	return &Handle{URL: url, store: s}
}

// Open returns a reader over the blob at url.
func (s *BlobStore) Open(url string) (io.ReadSeeker, string, error) {
	s.mu.RLock()
	b, ok := s.blobs[url]
	s.mu.RUnlock()

	if !ok {
		return nil, "", fmt.Errorf("%w: %s", shared.ErrHandleRevoked, url)
	}
	return bytes.NewReader(b.Data), b.MimeType, nil
}

// Revoke frees the blob at url. Revoking twice is a no-op.
func (s *BlobStore) Revoke(url string) {
	s.mu.Lock()
	delete(s.blobs, url)
	s.mu.Unlock()
}

// Len returns the number of live blobs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// IsBlobURL reports whether src was issued by a [BlobStore].
func IsBlobURL(src string) bool {
	return strings.HasPrefix(src, Scheme)
}

// Handle is a locally scoped stream handle. The holder must call Release.
type Handle struct {
	URL   string
	store *BlobStore
	once  sync.Once
}

// Release revokes the handle. Safe to call more than once or on nil.
func (h *Handle) Release() {
	if h == nil || h.store == nil {
		return
	}
	h.once.Do(func() { h.store.Revoke(h.URL) })
}

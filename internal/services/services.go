// package services defines interface Library for listing and streaming remote audio
//
// Google Drive, S3-compatible buckets
package services

import (
	"context"
	"path"
	"strings"

	"github.com/desertthunder/novadrive/internal/media"
	"github.com/desertthunder/novadrive/internal/models"
)

// Library defines the interface for remote audio providers.
type Library interface {
	// ListAudioTracks lists every audio object visible to cred.
	// An expired or rejected credential returns [shared.ErrUnauthenticated].
	ListAudioTracks(ctx context.Context, cred models.Credential) ([]models.Track, error)

	// ResolvePlayableURL downloads one object and returns a local handle to its bytes.
	// The caller must release the handle.
	ResolvePlayableURL(ctx context.Context, cred models.Credential, trackID string) (*media.Handle, error)

	// Name returns the name of the provider (e.g., "Google Drive")
	Name() string
}

// TrimExtension removes the final extension from a file name.
// Dotfiles and names ending in a bare dot are returned unchanged.
func TrimExtension(name string) string {
	ext := path.Ext(name)
	if len(ext) <= 1 || ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

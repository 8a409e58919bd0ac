package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/desertthunder/novadrive/internal/media"
	"github.com/desertthunder/novadrive/internal/shared"
)

// Source is what a media element loads: a URL and its declared type.
type Source struct {
	URL      string
	MimeType string
}

// Element is the playback device bound to one source at a time.
//
// Play may fail with [shared.ErrPlayAborted] when a newer load interrupts it, or with
// [shared.ErrAutoplayBlocked] when output is not allowed yet. The ended handler runs on
// its own goroutine.
type Element interface {
	Load(ctx context.Context, src Source) error
	Play(ctx context.Context) error
	Pause() error
	Seek(seconds float64) error
	SetVolume(v float64)
	Position() float64
	Duration() float64
	SetEndedHandler(fn func())
	Close() error
}

// Opener returns the bytes behind a source.
type Opener func(ctx context.Context, src Source) (io.ReadSeeker, string, error)

// NewSourceOpener opens blob handles from blobs, http(s) URLs with client, and anything else as a file path.
func NewSourceOpener(blobs *media.BlobStore, client *http.Client) Opener {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, src Source) (io.ReadSeeker, string, error) {
		switch {
		case media.IsBlobURL(src.URL):
			if blobs == nil {
				return nil, "", fmt.Errorf("%w: no blob store for %s", shared.ErrMediaLoadFailure, src.URL)
			}
			r, mime, err := blobs.Open(src.URL)
			if err != nil {
				return nil, "", err
			}
			if src.MimeType != "" {
				mime = src.MimeType
			}
			return r, mime, nil
		case strings.HasPrefix(src.URL, "http://"), strings.HasPrefix(src.URL, "https://"):
			return fetch(ctx, client, src)
		default:
			data, err := os.ReadFile(strings.TrimPrefix(src.URL, "file://"))
			if err != nil {
				return nil, "", err
			}
			return bytes.NewReader(data), src.MimeType, nil
		}
	}
}

func fetch(ctx context.Context, client *http.Client, src Source) (io.ReadSeeker, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	mime := src.MimeType
	if mime == "" {
		mime = resp.Header.Get("Content-Type")
	}
	return bytes.NewReader(data), mime, nil
}

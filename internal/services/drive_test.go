package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/novadrive/internal/media"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/shared"
	tu "github.com/desertthunder/novadrive/internal/testing"
	"golang.org/x/time/rate"
)

var testCred = models.Credential{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}

func newDrive(t *testing.T, h http.HandlerFunc) (*DriveService, *media.BlobStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	blobs := media.NewBlobStore()
	return NewDriveService(DriveOpts{
		BaseURL: srv.URL,
		Limiter: rate.NewLimiter(rate.Inf, 1),
		Blobs:   blobs,
		Logger:  shared.NewLogger(io.Discard),
	}), blobs
}

func TestDriveService(t *testing.T) {
	ctx := context.Background()

	t.Run("ListAudioTracks maps files", func(t *testing.T) {
		drive, _ := newDrive(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("missing bearer header")
			}
			if q := r.URL.Query().Get("q"); q != "mimeType contains 'audio/' and trashed = false" {
				t.Errorf("unexpected query %q", q)
			}
			io.WriteString(w, `{"files":[
				{"id":"f1","name":"Song.One.mp3","mimeType":"audio/mpeg","thumbnailLink":"https://lh3/x=s220"},
				{"id":"f2","name":"noext","mimeType":"audio/flac"}
			]}`)
		})

		tracks, err := drive.ListAudioTracks(ctx, testCred)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}

		got := tracks[0]
		want := models.Track{
			ID:       "f1",
			Name:     "Song.One",
			Artist:   "Google Drive",
			Album:    "Cloud Library",
			URL:      "https://www.googleapis.com/drive/v3/files/f1?alt=media",
			CoverArt: "https://lh3/x=s400",
			MimeType: "audio/mpeg",
			IsRemote: true,
		}
		if got != want {
			t.Errorf("mapped track mismatch:\n got %+v\nwant %+v", got, want)
		}
		if tracks[1].Name != "noext" || tracks[1].CoverArt != "" {
			t.Errorf("unexpected second track %+v", tracks[1])
		}
	})

	t.Run("ListAudioTracks follows pages", func(t *testing.T) {
		calls := 0
		drive, _ := newDrive(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			if r.URL.Query().Get("pageToken") == "" {
				io.WriteString(w, `{"nextPageToken":"p2","files":[{"id":"a","name":"a.mp3","mimeType":"audio/mpeg"}]}`)
				return
			}
			io.WriteString(w, `{"files":[{"id":"b","name":"b.mp3","mimeType":"audio/mpeg"}]}`)
		})

		tracks, err := drive.ListAudioTracks(ctx, testCred)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 || len(tracks) != 2 {
			t.Errorf("expected 2 calls and 2 tracks, got %d and %d", calls, len(tracks))
		}
	})

	t.Run("ListAudioTracks empty", func(t *testing.T) {
		drive, _ := newDrive(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"files":[]}`)
		})
		tracks, err := drive.ListAudioTracks(ctx, testCred)
		if err != nil || len(tracks) != 0 {
			t.Errorf("expected empty list, got %v, %v", tracks, err)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tc := []struct {
			name   string
			status int
			body   string
			want   error
		}{
			{name: "unauthorized", status: 401, body: `{}`, want: shared.ErrUnauthenticated},
			{name: "forbidden", status: 403, body: `{"error":{"message":"rate limit"}}`, want: shared.ErrProvider},
			{name: "missing files", status: 200, body: `{}`, want: shared.ErrProvider},
			{name: "missing id", status: 200, body: `{"files":[{"name":"a","mimeType":"audio/mpeg"}]}`, want: shared.ErrProvider},
			{name: "missing mimeType", status: 200, body: `{"files":[{"id":"a","name":"a"}]}`, want: shared.ErrProvider},
			{name: "malformed", status: 200, body: `[`, want: shared.ErrProvider},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				drive, _ := newDrive(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					io.WriteString(w, tt.body)
				})
				_, err := drive.ListAudioTracks(ctx, testCred)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("provider error carries status and detail", func(t *testing.T) {
		drive, _ := newDrive(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"error":{"message":"Daily limit exceeded"}}`)
		})
		_, err := drive.ListAudioTracks(ctx, testCred)
		if shared.ProviderStatus(err) != http.StatusForbidden {
			t.Errorf("expected 403, got %d", shared.ProviderStatus(err))
		}
		if !strings.Contains(err.Error(), "Daily limit exceeded") {
			t.Errorf("expected detail in error, got %v", err)
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		drive, _ := newDrive(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		_, err := drive.ListAudioTracks(ctx, models.Credential{})
		if !errors.Is(err, shared.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("ResolvePlayableURL", func(t *testing.T) {
		drive, blobs := newDrive(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/files/f1" || r.URL.Query().Get("alt") != "media" {
				t.Errorf("unexpected request %s", r.URL)
			}
			w.Header().Set("Content-Type", "audio/mpeg")
			io.WriteString(w, "audio-bytes")
		})

		h, err := drive.ResolvePlayableURL(ctx, testCred, "f1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !media.IsBlobURL(h.URL) {
			t.Errorf("expected blob handle, got %s", h.URL)
		}

		r, mime, err := blobs.Open(h.URL)
		if err != nil {
			t.Fatalf("failed to open blob: %v", err)
		}
		data, _ := io.ReadAll(r)
		if string(data) != "audio-bytes" || mime != "audio/mpeg" {
			t.Errorf("unexpected blob %q (%s)", data, mime)
		}

		h.Release()
		if blobs.Len() != 0 {
			t.Error("release should revoke the blob")
		}
	})

	t.Run("ResolvePlayableURL unauthorized", func(t *testing.T) {
		drive, blobs := newDrive(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := drive.ResolvePlayableURL(ctx, testCred, "f1")
		if !errors.Is(err, shared.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
		if blobs.Len() != 0 {
			t.Error("no blob should be created on failure")
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		drive := NewDriveService(DriveOpts{
			BaseURL:    "http://drive.invalid",
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("dial failed"))},
			Limiter:    rate.NewLimiter(rate.Inf, 1),
			Logger:     shared.NewLogger(io.Discard),
		})
		_, err := drive.ListAudioTracks(ctx, testCred)
		if !errors.Is(err, shared.ErrProvider) {
			t.Errorf("expected ErrProvider, got %v", err)
		}
	})

	t.Run("body read failure", func(t *testing.T) {
		drive := NewDriveService(DriveOpts{
			BaseURL: "http://drive.invalid",
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
				StatusCode: 200,
				Body:       &tu.FCloser{},
				Header:     http.Header{},
			}, nil)},
			Limiter: rate.NewLimiter(rate.Inf, 1),
			Logger:  shared.NewLogger(io.Discard),
		})
		_, err := drive.ListAudioTracks(ctx, testCred)
		if !errors.Is(err, shared.ErrProvider) {
			t.Errorf("expected ErrProvider, got %v", err)
		}
	})
}

func TestTrimExtension(t *testing.T) {
	tc := map[string]string{
		"song.mp3":     "song",
		"a.b.flac":     "a.b",
		"noext":        "noext",
		".hidden":      ".hidden",
		"trailingdot.": "trailingdot.",
	}
	for in, want := range tc {
		if got := TrimExtension(in); got != want {
			t.Errorf("TrimExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

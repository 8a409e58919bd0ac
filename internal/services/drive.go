package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/media"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DriveBaseURL = "https://www.googleapis.com/drive/v3"
	DriveArtist  = "Google Drive"
	DriveAlbum   = "Cloud Library"

	driveQuery  = "mimeType contains 'audio/' and trashed = false"
	driveFields = "nextPageToken, files(id, name, mimeType, size, thumbnailLink, iconLink)"
)

// DriveService implements [Library] for Google Drive v3.
type DriveService struct {
	baseURL    string
	mediaURL   string
	httpClient *http.Client
	limiter    *rate.Limiter
	blobs      *media.BlobStore
	logger     *log.Logger
}

// DriveOpts configures a [DriveService]. Zero values select production defaults.
type DriveOpts struct {
	BaseURL    string
	HTTPClient *http.Client // base client; bearer auth is layered on per call
	Limiter    *rate.Limiter
	Blobs      *media.BlobStore
	Logger     *log.Logger
}

func NewDriveService(opts DriveOpts) *DriveService {
	if opts.BaseURL == "" {
		opts.BaseURL = DriveBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Limit(10), 5)
	}
	if opts.Blobs == nil {
		opts.Blobs = media.NewBlobStore()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &DriveService{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		mediaURL:   DriveBaseURL,
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		blobs:      opts.Blobs,
		logger:     shared.WithLogger(opts.Logger, "service", "drive"),
	}
}

func (d *DriveService) Name() string { return DriveArtist }

// driveFile mirrors a files.list entry. Pointers distinguish missing fields from empty ones.
type driveFile struct {
	ID            *string `json:"id"`
	Name          *string `json:"name"`
	MimeType      *string `json:"mimeType"`
	Size          string  `json:"size"`
	ThumbnailLink string  `json:"thumbnailLink"`
	IconLink      string  `json:"iconLink"`
}

type driveFileList struct {
	NextPageToken string       `json:"nextPageToken"`
	Files         *[]driveFile `json:"files"`
}

// ListAudioTracks lists all non-trashed audio files, following nextPageToken.
func (d *DriveService) ListAudioTracks(ctx context.Context, cred models.Credential) ([]models.Track, error) {
	tracks := []models.Track{}
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("q", driveQuery)
		q.Set("fields", driveFields)
		q.Set("pageSize", "1000")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		body, _, err := d.get(ctx, cred, d.baseURL+"/files?"+q.Encode())
		if err != nil {
			return nil, err
		}

		var page driveFileList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, shared.NewProviderError(http.StatusOK, "malformed file list: %v", err)
		}
		if page.Files == nil {
			return nil, shared.NewProviderError(http.StatusOK, "file list response missing files")
		}

		for i, f := range *page.Files {
			track, err := d.toTrack(f)
			if err != nil {
				return nil, fmt.Errorf("file %d: %w", i, err)
			}
			tracks = append(tracks, track)
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	d.logger.Debug("listed audio files", "count", len(tracks))
	return tracks, nil
}

func (d *DriveService) toTrack(f driveFile) (models.Track, error) {
	switch {
	case f.ID == nil || *f.ID == "":
		return models.Track{}, shared.NewProviderError(http.StatusOK, "file missing id")
	case f.Name == nil:
		return models.Track{}, shared.NewProviderError(http.StatusOK, "file %s missing name", *f.ID)
	case f.MimeType == nil:
		return models.Track{}, shared.NewProviderError(http.StatusOK, "file %s missing mimeType", *f.ID)
	}

	return models.Track{
		ID:       *f.ID,
		Name:     TrimExtension(*f.Name),
		Artist:   DriveArtist,
		Album:    DriveAlbum,
		Duration: 0,
		URL:      fmt.Sprintf("%s/files/%s?alt=media", d.mediaURL, *f.ID),
		CoverArt: strings.Replace(f.ThumbnailLink, "=s220", "=s400", 1),
		MimeType: *f.MimeType,
		IsRemote: true,
	}, nil
}

// ResolvePlayableURL downloads the file contents into the blob store.
func (d *DriveService) ResolvePlayableURL(ctx context.Context, cred models.Credential, trackID string) (*media.Handle, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	body, header, err := d.get(ctx, cred, fmt.Sprintf("%s/files/%s?alt=media", d.baseURL, url.PathEscape(trackID)))
	if err != nil {
		return nil, err
	}

	d.logger.Debug("downloaded track", "id", trackID, "bytes", len(body))
	return d.blobs.Create(body, header.Get("Content-Type")), nil
}

// get performs an authorized GET and maps failures to the shared error set.
func (d *DriveService) get(ctx context.Context, cred models.Credential, fullURL string) ([]byte, http.Header, error) {
	if cred.AccessToken == "" {
		return nil, nil, shared.ErrUnauthenticated
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, d.httpClient), oauth2.StaticTokenSource(cred.Token()))
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, shared.NewProviderError(0, "request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, shared.NewProviderError(resp.StatusCode, "failed to read response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, nil, shared.ErrUnauthenticated
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, nil, shared.NewProviderError(resp.StatusCode, "%s", driveErrorDetail(resp.Status, body))
	}

	return body, resp.Header, nil
}

// driveErrorDetail extracts error.message from a Drive error body, falling back to the status text.
func driveErrorDetail(status string, body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return status
}

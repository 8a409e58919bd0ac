package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/media"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	BucketArtist = "Bucket"
	BucketAlbum  = "Object Storage"
)

var audioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
}

// BucketService implements [Library] for an S3-compatible bucket.
//
// Static keys authorize every call, so the credential argument is ignored.
type BucketService struct {
	client *minio.Client
	bucket string
	blobs  *media.BlobStore
	logger *log.Logger
}

// NewBucketService creates a minio client for cfg.
func NewBucketService(cfg shared.BucketConfig, blobs *media.BlobStore, logger *log.Logger) (*BucketService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bucket endpoint: %v", shared.ErrInvalidConfig, err)
	}
	if blobs == nil {
		blobs = media.NewBlobStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BucketService{
		client: client,
		bucket: cfg.Bucket,
		blobs:  blobs,
		logger: shared.WithLogger(logger, "service", "bucket"),
	}, nil
}

func (b *BucketService) Name() string { return BucketArtist }

// ListAudioTracks lists objects whose content type or extension is audio.
func (b *BucketService) ListAudioTracks(ctx context.Context, _ models.Credential) ([]models.Track, error) {
	tracks := []models.Track{}
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, mapBucketError(obj.Err)
		}

		mimeType := audioMimeType(obj.Key, obj.ContentType)
		if mimeType == "" {
			continue
		}

		tracks = append(tracks, models.Track{
			ID:       obj.Key,
			Name:     TrimExtension(path.Base(obj.Key)),
			Artist:   BucketArtist,
			Album:    BucketAlbum,
			URL:      fmt.Sprintf("%s/%s/%s", b.client.EndpointURL(), b.bucket, obj.Key),
			MimeType: mimeType,
			IsRemote: true,
		})
	}

	b.logger.Debug("listed audio objects", "count", len(tracks))
	return tracks, nil
}

// ResolvePlayableURL downloads the object into the blob store.
func (b *BucketService) ResolvePlayableURL(ctx context.Context, _ models.Credential, trackID string) (*media.Handle, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	obj, err := b.client.GetObject(ctx, b.bucket, trackID, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapBucketError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapBucketError(err)
	}

	return b.blobs.Create(data, audioMimeType(trackID, "")), nil
}

func audioMimeType(key, contentType string) string {
	if strings.HasPrefix(contentType, "audio/") {
		return contentType
	}
	return audioExtensions[strings.ToLower(path.Ext(key))]
}

func mapBucketError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return fmt.Errorf("%w: %s", shared.ErrUnauthenticated, resp.Message)
	case "NoSuchKey":
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, resp.Key)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusBadGateway
	}
	return shared.NewProviderError(status, "%v", err)
}

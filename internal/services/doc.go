// Package services defines the [Library] interface for remote audio providers and implements it for
// Google Drive and S3-compatible buckets.
//
// # Drive Implementation
//
// [DriveService] calls the Drive v3 REST API with the session's bearer credential. Listing follows
// nextPageToken and validates every file entry; a missing id, name, or mimeType fails the whole listing
// rather than producing a partial track. Calls are throttled with a token bucket limiter.
//
// # Bucket Implementation
//
// [BucketService] lists and downloads objects with minio-go using static keys from config.
//
// # Streaming
//
// Neither provider streams directly into the decoder. ResolvePlayableURL downloads the whole object into
// a [media.BlobStore] and returns a handle the caller releases when it switches tracks.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrUnauthenticated] : credential rejected, invalidate and reconnect
//   - [shared.ProviderError] : any other non-2xx response or malformed body, carrying the status
//   - [shared.ErrTrackNotFound] : bucket key does not exist
package services

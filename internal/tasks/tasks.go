// package tasks runs library sync and playlist export with progress reporting
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/services"
	"github.com/desertthunder/novadrive/internal/shared"
)

// Session is the part of the auth session a sync needs.
type Session interface {
	Connect(ctx context.Context) (models.Credential, error)
	ResumeIfStored(ctx context.Context) (models.Credential, bool)
	Credential() (models.Credential, bool)
	Invalidate(ctx context.Context)
	CanPrompt() bool
}

// SyncOpts controls how a sync obtains its credential.
type SyncOpts struct {
	// Interactive allows a consent prompt, both for the first credential and for one
	// retry after the provider rejects it. Without it only a stored credential is used.
	Interactive bool
}

// SyncResult is the outcome of a library sync.
type SyncResult struct {
	Tracks      []models.Track
	Credential  models.Credential
	Source      string
	Reconnected bool
}

// LibrarySync lists a remote library with the session's credential.
//
// A rejected credential is invalidated. Interactive syncs then reconnect and retry once.
type LibrarySync struct {
	session Session
	library services.Library
	logger  *log.Logger
}

// NewLibrarySync creates a sync. A nil session is allowed for libraries that need no credential.
func NewLibrarySync(session Session, library services.Library, logger *log.Logger) *LibrarySync {
	if logger == nil {
		logger = log.Default()
	}
	return &LibrarySync{
		session: session,
		library: library,
		logger:  shared.WithLogger(logger, "component", "sync"),
	}
}

// Run performs one sync.
func (s *LibrarySync) Run(ctx context.Context, opts SyncOpts, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if s.library == nil {
		return nil, fmt.Errorf("%w: no library configured", shared.ErrServiceUnavailable)
	}

	result := &SyncResult{Source: s.library.Name()}

	cred, err := s.credential(ctx, opts, progress)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, listTracksUpdate(1, 2, result.Source))
	tracks, err := s.library.ListAudioTracks(ctx, cred)
	if errors.Is(err, shared.ErrUnauthenticated) && s.session != nil {
		s.logger.Warn("credential rejected, invalidating session")
		s.session.Invalidate(ctx)

		if !opts.Interactive || !s.session.CanPrompt() {
			return nil, err
		}

		sendProgress(progress, reconnectUpdate())
		cred, err = s.session.Connect(ctx)
		if err != nil {
			return nil, err
		}
		result.Reconnected = true
		tracks, err = s.library.ListAudioTracks(ctx, cred)
		if errors.Is(err, shared.ErrUnauthenticated) {
			s.session.Invalidate(ctx)
		}
	}
	if err != nil {
		return nil, err
	}

	sendProgress(progress, listedTracksUpdate(2, 2, len(tracks), result.Source))
	s.logger.Info("library synced", "source", result.Source, "tracks", len(tracks))

	result.Tracks = tracks
	result.Credential = cred
	return result, nil
}

func (s *LibrarySync) credential(ctx context.Context, opts SyncOpts, progress chan<- ProgressUpdate) (models.Credential, error) {
	if s.session == nil {
		return models.Credential{}, nil
	}

	if cred, ok := s.session.Credential(); ok && cred.Valid(time.Now()) {
		return cred, nil
	}

	sendProgress(progress, authenticateUpdate(opts.Interactive))
	if cred, ok := s.session.ResumeIfStored(ctx); ok {
		return cred, nil
	}
	if !opts.Interactive {
		return models.Credential{}, fmt.Errorf("%w: no stored credential", shared.ErrUnauthenticated)
	}
	return s.session.Connect(ctx)
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate creates an empty playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	store, err := r.playlistStore()
	if err != nil {
		return err
	}

	pl, err := store.Create(ctx, cmd.StringArg("name"))
	if err != nil {
		return err
	}
	r.logger.Info("playlist created", "id", pl.ID, "name", pl.Name)
	return r.writePlain("✓ Created %s (%s)\n", pl.Name, pl.ID)
}

// PlaylistList prints every playlist.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.playlistStore()
	if err != nil {
		return err
	}
	pls, err := store.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(pls, cmd.Bool("pretty"))
	}

	if len(pls) == 0 {
		return r.writePlain("No playlists yet. Create one with 'nova playlist create <name>'\n")
	}
	for _, pl := range pls {
		created := time.UnixMilli(pl.CreatedAt).Format("2006-01-02")
		r.writePlain("%s  %-24s %3d tracks  %s\n", pl.ID, pl.Name, len(pl.TrackIDs), created)
	}
	return nil
}

// PlaylistDelete deletes a playlist by name or id.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	store, err := r.playlistStore()
	if err != nil {
		return err
	}

	pl, err := store.Find(ctx, cmd.StringArg("playlist"))
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, pl.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", pl.Name)
}

// PlaylistAdd adds a track id to a playlist. Adding a track twice is a no-op.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	return r.editPlaylist(ctx, cmd, true)
}

// PlaylistRemove removes a track id from a playlist.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	return r.editPlaylist(ctx, cmd, false)
}

func (r *Runner) editPlaylist(ctx context.Context, cmd *cli.Command, add bool) error {
	ref, trackID := cmd.StringArg("playlist"), cmd.StringArg("track")
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	store, err := r.playlistStore()
	if err != nil {
		return err
	}
	pl, err := store.Find(ctx, ref)
	if err != nil {
		return err
	}

	if add {
		pl, err = store.AddTrack(ctx, pl.ID, trackID)
	} else {
		pl, err = store.RemoveTrack(ctx, pl.ID, trackID)
	}
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s now has %d tracks\n", pl.Name, len(pl.TrackIDs))
}

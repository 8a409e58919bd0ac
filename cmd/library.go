package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/novadrive/internal/formatter"
	"github.com/desertthunder/novadrive/internal/library"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/desertthunder/novadrive/internal/tasks"
	"github.com/urfave/cli/v3"
)

// LibraryList prints the tracks of the library or one playlist.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	catalog, source, err := r.loadCatalog(ctx)
	if err != nil {
		return err
	}

	listing, err := r.listing(ctx, catalog, source, cmd.String("playlist"), cmd.String("search"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(listing.Tracks, cmd.Bool("pretty"))
	}

	out, err := formatter.Render(listing, cmd.String("format"), cmd.Bool("pretty"))
	if err != nil {
		return err
	}
	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// LibraryExport writes the library and every playlist with the export worker pool.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	catalog, source, err := r.loadCatalog(ctx)
	if err != nil {
		return err
	}

	store, err := r.playlistStore()
	if err != nil {
		return err
	}
	pls, err := store.List(ctx)
	if err != nil {
		return err
	}

	listings := []*formatter.Listing{{Title: "All Tracks", Source: source, Tracks: catalog.Tracks()}}
	for _, pl := range pls {
		listings = append(listings, &formatter.Listing{
			Title:    pl.Name,
			Source:   source,
			Playlist: &pl,
			Tracks:   catalog.BaseTracks(models.PlaylistView(pl.ID), pls),
		})
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("📝 [%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()

	result, err := tasks.Export(ctx, progressCh, listings, tasks.ExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		Client:     r.httpClient,
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Format: %s\n", result.Format)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d listings:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %s\n", res.Name, res.Message)
			}
		}
	}
	return nil
}

// loadCatalog syncs the configured library without prompting.
//
// When there is no usable session the bundled demo tracks are listed instead.
func (r *Runner) loadCatalog(ctx context.Context) (*library.Catalog, string, error) {
	catalog := library.New(r.logger)

	lib, sess, err := r.librarySource()
	if err != nil {
		return nil, "", err
	}

	res, err := tasks.NewLibrarySync(sess, lib, r.logger).Run(ctx, tasks.SyncOpts{}, nil)
	if errors.Is(err, shared.ErrUnauthenticated) {
		r.logger.Warn("not connected, listing demo tracks (run 'nova auth login')")
		return catalog, "Demo", nil
	}
	if err != nil {
		return nil, "", err
	}

	catalog.Set(res.Tracks)
	return catalog, res.Source, nil
}

func (r *Runner) listing(ctx context.Context, catalog *library.Catalog, source, playlistRef, search string) (*formatter.Listing, error) {
	store, err := r.playlistStore()
	if err != nil {
		return nil, err
	}
	pls, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	listing := &formatter.Listing{Title: "All Tracks", Source: source}
	view := models.AllTracks()
	if playlistRef != "" {
		pl, err := store.Find(ctx, playlistRef)
		if err != nil {
			return nil, err
		}
		view = models.PlaylistView(pl.ID)
		listing.Title = pl.Name
		listing.Playlist = &pl
	}

	listing.Tracks = catalog.ViewTracks(view, pls, search)
	return listing, nil
}

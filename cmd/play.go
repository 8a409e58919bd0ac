package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/novadrive/internal/audio"
	"github.com/desertthunder/novadrive/internal/auth"
	"github.com/desertthunder/novadrive/internal/player"
	"github.com/desertthunder/novadrive/internal/queue"
	"github.com/desertthunder/novadrive/internal/services"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/desertthunder/novadrive/internal/tasks"
	"github.com/desertthunder/novadrive/internal/ui"
	"github.com/urfave/cli/v3"
)

// Play launches the interactive player.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	var (
		lib  services.Library
		sess tasks.Session
	)
	if !cmd.Bool("demo") {
		if lib, sess, err = r.librarySource(); err != nil {
			return err
		}
	}

	pls, err := r.playlistStore()
	if err != nil {
		return err
	}

	analyser := audio.NewAnalyser()
	element := audio.NewBeepElement(audio.NewSourceOpener(r.blobs, r.httpClient), nil, analyser)
	q := queue.New(nil)
	engine := audio.NewEngine(audio.EngineOpts{
		Element:  element,
		Analyser: analyser,
		Artwork:  audio.NewArtworkProbe(r.blobs),
		Repeat:   q.Repeat,
		Volume:   r.config.Player.Volume,
		Logger:   r.logger,
	})

	p := player.New(player.Opts{
		Session:   sess,
		Library:   lib,
		Playlists: pls,
		Queue:     q,
		Engine:    engine,
		Logger:    r.logger,
	})
	defer p.Close()

	opts := ui.Options{
		Player:          p,
		Source:          "Demo",
		AutoSync:        lib != nil && sess == nil,
		FPS:             r.config.Player.FPS,
		FFTSize:         r.config.Player.FFTSize,
		ExpandedFFTSize: r.config.Player.ExpandedFFTSize,
	}
	if lib != nil {
		opts.Source = lib.Name()
	}
	if s, ok := sess.(*auth.Session); ok {
		opts.Session = s
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(ui.NewModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

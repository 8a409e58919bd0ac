package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/auth"
	"github.com/desertthunder/novadrive/internal/media"
	"github.com/desertthunder/novadrive/internal/playlists"
	"github.com/desertthunder/novadrive/internal/services"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/desertthunder/novadrive/internal/store"
	"github.com/desertthunder/novadrive/internal/tasks"
	"github.com/urfave/cli/v3"
)

// storeOpenTimeout bounds opening and migrating the store.
const storeOpenTimeout = 10 * time.Second

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Storage, the auth session, and the library are built on first use so that setup
// commands work before anything is configured.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	blobs      *media.BlobStore

	kv      store.KV
	session *auth.Session
	library services.Library
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	KV         store.KV         // opened from the storage config when nil
	Library    services.Library // built from the library config when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		blobs:      media.NewBlobStore(),
		kv:         opts.KV,
		library:    opts.Library,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, authCommand, libraryCommand, playlistCommand, playCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the store if one was opened.
func (r *Runner) Close() error {
	if r.kv == nil {
		return nil
	}
	err := r.kv.Close()
	r.kv = nil
	return err
}

func (r *Runner) store() (store.KV, error) {
	if r.kv != nil {
		return r.kv, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	defer cancel()
	kv, err := store.Open(ctx, r.config.Storage, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", r.config.Storage.Driver, err)
	}
	r.kv = kv
	return kv, nil
}

func (r *Runner) authSession() (*auth.Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	kv, err := r.store()
	if err != nil {
		return nil, err
	}

	r.session = auth.NewSession(auth.SessionOpts{
		Tokens:       auth.NewTokenStore(kv, auth.WithTokenLogger(r.logger)),
		KV:           kv,
		Prompter:     auth.NewBrowserPrompter(r.config.Drive.RedirectAddr, r.logger),
		Identity:     auth.NewUserInfoClient(),
		ClientID:     r.config.Drive.ClientID,
		AllowedEmail: r.config.Drive.AllowedEmail,
		Logger:       r.logger,
	})
	return r.session, nil
}

// librarySource returns the configured library and, for Drive, the session it signs in with.
func (r *Runner) librarySource() (services.Library, tasks.Session, error) {
	if r.library != nil {
		return r.library, nil, nil
	}

	switch r.config.Library.Source {
	case "", "drive":
		sess, err := r.authSession()
		if err != nil {
			return nil, nil, err
		}
		r.library = services.NewDriveService(services.DriveOpts{
			HTTPClient: r.httpClient,
			Blobs:      r.blobs,
			Logger:     r.logger,
		})
		return r.library, sess, nil
	case "bucket":
		lib, err := services.NewBucketService(r.config.Bucket, r.blobs, r.logger)
		if err != nil {
			return nil, nil, err
		}
		r.library = lib
		return lib, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown library source %q", shared.ErrInvalidConfig, r.config.Library.Source)
	}
}

func (r *Runner) playlistStore() (*playlists.Store, error) {
	kv, err := r.store()
	if err != nil {
		return nil, err
	}
	return playlists.New(kv, playlists.WithLogger(r.logger)), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/novadrive/internal/formatter"
	"github.com/desertthunder/novadrive/internal/shared"
	"golang.org/x/time/rate"
)

// ExportOpts contains configuration for playlist exports.
type ExportOpts struct {
	Format     string       // csv, markdown, txt, or json
	OutputDir  string       // Base output directory (default: nova_export_{epoch})
	NumWorkers int          // Concurrent workers (default: 4)
	RateLimit  float64      // Cover downloads per second (default: 5)
	Client     *http.Client // Used for cover art downloads
}

// ExportJob is one listing queued for export.
type ExportJob struct {
	Listing *formatter.Listing
}

// PlaylistExportResult is the outcome of exporting one listing.
type PlaylistExportResult struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Success bool     `json:"success"`
	Files   []string `json:"files"`
	Error   error    `json:"-"`
	Message string   `json:"error,omitempty"`
}

// ExportResult summarizes an export run. It is also written as the manifest.
type ExportResult struct {
	Format            string                 `json:"format"`
	OutputDirectory   string                 `json:"output_directory"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	Results           []PlaylistExportResult `json:"results"`
	ManifestPath      string                 `json:"-"`
}

// Export writes each listing with a bounded worker pool, then writes export_manifest.json.
//
// A failed listing is recorded and does not stop the others.
func Export(ctx context.Context, progress chan<- ProgressUpdate, listings []*formatter.Listing, opts ExportOpts) (*ExportResult, error) {
	if opts.Format == "" {
		opts.Format = "csv"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("nova_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		Format:          opts.Format,
		TotalPlaylists:  len(listings),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(listings)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan ExportJob, len(listings))
	results := make(chan PlaylistExportResult, len(listings))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, l := range listings {
			select {
			case <-ctx.Done():
				return
			case jobs <- ExportJob{Listing: l}:
				sendProgress(progress, exportingPlaylistUpdate(i+1, len(listings), l.Title))
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Success {
			result.SuccessfulExports++
			sendProgress(progress, exportCompletedUpdate(completed, len(listings), res.Name, len(res.Files)))
		} else {
			result.FailedExports++
			res.Message = res.Error.Error()
			sendProgress(progress, exportFailedUpdate(completed, len(listings), res.Name, res.Error))
		}
		result.Results = append(result.Results, res)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err == nil {
		err = os.WriteFile(manifestPath, data, 0644)
	}
	if err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan ExportJob,
	results chan<- PlaylistExportResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- exportListing(ctx, limiter, job.Listing, opts)
	}
}

func exportListing(ctx context.Context, limiter *rate.Limiter, l *formatter.Listing, opts ExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{ID: l.ID(), Name: l.Title, Files: []string{}}
	base := filepath.Join(opts.OutputDir, l.ID())

	switch opts.Format {
	case "csv":
		res, err := formatter.WriteCSVExport(l, base)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = append(result.Files, res.TracksFile)
		if res.MetadataFile != "" {
			result.Files = append(result.Files, res.MetadataFile)
		}

	case "md", "markdown":
		if err := limiter.Wait(ctx); err != nil {
			result.Error = err
			return result
		}
		res, err := formatter.WriteMarkdownExport(ctx, l, base, opts.Client)
		if err != nil {
			result.Error = fmt.Errorf("Markdown export failed: %w", err)
			return result
		}
		result.Files = res.Files

	case "txt", "text":
		path, err := formatter.WriteTextExport(l, base+"_tracks.txt")
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = append(result.Files, path)

	case "json":
		data, err := formatter.Render(l, "json", true)
		if err == nil {
			err = os.WriteFile(base+".json", data, 0644)
		}
		if err != nil {
			result.Error = fmt.Errorf("JSON export failed: %w", err)
			return result
		}
		result.Files = append(result.Files, base+".json")

	default:
		result.Error = fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, opts.Format)
		return result
	}

	result.Success = true
	return result
}

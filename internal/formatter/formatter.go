// package formatter exports track listings to CSV, Markdown, plain text, and JSON
package formatter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/shared"
)

// Listing is a titled list of tracks, either a library view or a playlist.
type Listing struct {
	Title    string
	Source   string           // provider name, e.g. "Google Drive"
	Playlist *models.Playlist // nil for library views
	Tracks   []models.Track
}

// ID returns a file-safe identifier for the listing.
func (l *Listing) ID() string {
	if l.Playlist != nil && l.Playlist.ID != "" {
		return l.Playlist.ID
	}
	return slug(l.Title)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "library"
	}
	return out
}

// Render encodes l in format: csv, md (markdown), text (txt), or json.
func Render(l *Listing, format string, pretty bool) ([]byte, error) {
	switch strings.ToLower(format) {
	case "csv":
		return ExportToCSV(l)
	case "md", "markdown":
		return ExportToMarkdown(l, "")
	case "", "text", "txt":
		return ExportToText(l)
	case "json":
		return shared.MarshalJSON(l.Tracks, pretty)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV converts a listing to CSV with columns: ID, Name, Artist, Album, Duration, MimeType, Remote
func ExportToCSV(l *Listing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artist", "Album", "Duration", "MimeType", "Remote"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range l.Tracks {
		record := []string{
			track.ID,
			track.Name,
			track.Artist,
			track.Album,
			strconv.FormatFloat(track.Duration, 'f', -1, 64),
			track.MimeType,
			strconv.FormatBool(track.IsRemote),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a listing to Markdown with an optional cover image
func ExportToMarkdown(l *Listing, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", l.Title))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	if l.Source != "" {
		buf.WriteString(fmt.Sprintf("**Source**: %s\n", l.Source))
	}
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(l.Tracks)))
	if l.Playlist != nil && l.Playlist.CreatedAt > 0 {
		created := time.UnixMilli(l.Playlist.CreatedAt).UTC().Format(time.DateOnly)
		buf.WriteString(fmt.Sprintf("**Created**: %s\n", created))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range l.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Name, albumPart, shared.FormatDuration(track.Duration)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a listing to plain text
func ExportToText(l *Listing) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s\n", l.Title))
	if l.Source != "" {
		buf.WriteString(fmt.Sprintf("Source: %s\n", l.Source))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(l.Tracks)))

	for i, track := range l.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Name))
	}

	return buf.Bytes(), nil
}

// FetchImage returns the bytes behind an image URL. data: URLs are decoded locally.
func FetchImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	if rest, ok := strings.CutPrefix(url, "data:"); ok {
		_, payload, found := strings.Cut(rest, ";base64,")
		if !found {
			return nil, fmt.Errorf("unsupported data URL")
		}
		return base64.StdEncoding.DecodeString(payload)
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of playlist metadata
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport writes {base}_tracks.csv and, for playlists, {base}_metadata.json.
func WriteCSVExport(l *Listing, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = l.ID()
	}

	csvData, err := ExportToCSV(l)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	result := &CSVExportResult{TracksFile: baseFilepath + "_tracks.csv"}
	if err := os.WriteFile(result.TracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	if l.Playlist == nil {
		return result, nil
	}

	metadataJSON, err := ToMetadataJSON(*l.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	result.MetadataFile = baseFilepath + "_metadata.json"
	if err := os.WriteFile(result.MetadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return result, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes {dir}/README.md and, when the first track has cover art, {dir}/cover.jpg.
//
// A cover that cannot be fetched is skipped; the export still succeeds.
func WriteMarkdownExport(ctx context.Context, l *Listing, outputDir string, client *http.Client) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = l.ID()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if len(l.Tracks) > 0 && l.Tracks[0].CoverArt != "" {
		imageData, err := FetchImage(ctx, client, l.Tracks[0].CoverArt)
		if err == nil {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(l, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport writes a listing as plain text. Defaults to {id}_tracks.txt.
func WriteTextExport(l *Listing, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", l.ID())
	}

	textData, err := ExportToText(l)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

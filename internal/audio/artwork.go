package audio

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/novadrive/internal/media"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/dhowden/tag"
)

// DrivePlaceholder marks the generic thumbnail Drive returns for files without artwork.
const DrivePlaceholder = "drive-thirdparty"

// ArtworkUpgrade reports embedded cover art found for a track.
type ArtworkUpgrade struct {
	TrackID  string
	CoverArt string // data URL
}

// ArtworkProbe reads embedded pictures from downloaded tracks, at most once per track id.
type ArtworkProbe struct {
	blobs *media.BlobStore

	mu   sync.Mutex
	seen map[string]bool
}

func NewArtworkProbe(blobs *media.BlobStore) *ArtworkProbe {
	return &ArtworkProbe{blobs: blobs, seen: make(map[string]bool)}
}

// Wants reports whether t is a downloaded track with missing or placeholder art that has not been probed.
func (p *ArtworkProbe) Wants(t models.Track) bool {
	if p == nil || p.blobs == nil || !media.IsBlobURL(t.URL) {
		return false
	}
	if t.CoverArt != "" && !strings.Contains(t.CoverArt, DrivePlaceholder) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.seen[t.ID]
}

// Probe extracts the embedded picture of t as a data URL. The track id is marked as probed either way.
func (p *ArtworkProbe) Probe(t models.Track) (ArtworkUpgrade, error) {
	p.mu.Lock()
	p.seen[t.ID] = true
	p.mu.Unlock()

	r, _, err := p.blobs.Open(t.URL)
	if err != nil {
		return ArtworkUpgrade{}, err
	}

	m, err := tag.ReadFrom(r)
	if err != nil {
		return ArtworkUpgrade{}, fmt.Errorf("failed to read tags: %w", err)
	}

	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return ArtworkUpgrade{}, fmt.Errorf("no embedded picture")
	}

	return ArtworkUpgrade{TrackID: t.ID, CoverArt: DataURL(pic)}, nil
}

// DataURL encodes pic as a data: URL.
func DataURL(pic *tag.Picture) string {
	mime := pic.MIMEType
	if mime == "" {
		switch strings.ToLower(pic.Ext) {
		case "png":
			mime = "image/png"
		default:
			mime = "image/jpeg"
		}
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(pic.Data)
}

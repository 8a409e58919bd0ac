// package models defines the data model for the novadrive player
package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ExpiryBuffer is how long before its real expiry a credential is treated as expired.
const ExpiryBuffer = 5 * time.Minute

// Track is a single playable audio item, either a bundled demo track or a remote object.
//
// Tracks are values. Only CoverArt is upgraded after creation, and only through the catalog.
type Track struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album"`
	Duration float64 `json:"duration"` // seconds, 0 when unknown
	URL      string  `json:"url"`
	CoverArt string  `json:"coverArt"`
	MimeType string  `json:"mimeType"`
	IsRemote bool    `json:"isRemote"`
}

// Credential is a bearer access token with its absolute expiry.
type Credential struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Expired reports whether the credential is within [ExpiryBuffer] of its expiry at now.
func (c Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt.Add(-ExpiryBuffer))
}

// Valid reports whether the credential carries a token that is not expired at now.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && !c.Expired(now)
}

// Token converts the credential for use with an [oauth2.TokenSource].
func (c Credential) Token() *oauth2.Token {
	return &oauth2.Token{AccessToken: c.AccessToken, TokenType: "Bearer", Expiry: c.ExpiresAt}
}

// Playlist is a user-created, named, ordered list of track ids.
type Playlist struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	TrackIDs  []string `json:"trackIds"`
	CreatedAt int64    `json:"createdAt"` // unix milliseconds
}

// Contains reports whether trackID is already in the playlist.
func (p Playlist) Contains(trackID string) bool {
	for _, id := range p.TrackIDs {
		if id == trackID {
			return true
		}
	}
	return false
}

// RepeatMode controls what happens when a track ends.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatAll
	RepeatOne
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "none"
	}
}

// Next returns the mode that follows r in the none, all, one cycle.
func (r RepeatMode) Next() RepeatMode {
	switch r {
	case RepeatNone:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatNone
	}
}

// ParseRepeatMode parses the string form of a [RepeatMode].
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return RepeatNone, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatNone, fmt.Errorf("unknown repeat mode %q", s)
	}
}

// ViewKind distinguishes the full library from a single playlist.
type ViewKind int

const (
	ViewAll ViewKind = iota
	ViewPlaylist
)

// View is the track list the user is currently browsing.
type View struct {
	Kind       ViewKind
	PlaylistID string
}

// AllTracks is the default library view.
func AllTracks() View { return View{Kind: ViewAll} }

// PlaylistView returns a view scoped to a single playlist.
func PlaylistView(id string) View { return View{Kind: ViewPlaylist, PlaylistID: id} }

// Key identifies the base list a view produces. It changes whenever the view does.
func (v View) Key() string {
	if v.Kind == ViewPlaylist {
		return "playlist:" + v.PlaylistID
	}
	return "all"
}

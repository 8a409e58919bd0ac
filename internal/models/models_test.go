package models

import (
	"testing"
	"time"
)

func TestCredential(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	t.Run("Expired applies buffer", func(t *testing.T) {
		tc := []struct {
			name    string
			ttl     time.Duration
			expired bool
		}{
			{name: "well before buffer", ttl: time.Hour, expired: false},
			{name: "one second outside buffer", ttl: ExpiryBuffer + time.Second, expired: false},
			{name: "exactly at buffer", ttl: ExpiryBuffer, expired: true},
			{name: "inside buffer", ttl: time.Minute, expired: true},
			{name: "already past", ttl: -time.Minute, expired: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				c := Credential{AccessToken: "tok", ExpiresAt: now.Add(tt.ttl)}
				if got := c.Expired(now); got != tt.expired {
					t.Errorf("Expired() = %v, want %v", got, tt.expired)
				}
			})
		}
	})

	t.Run("Valid requires token", func(t *testing.T) {
		c := Credential{ExpiresAt: now.Add(time.Hour)}
		if c.Valid(now) {
			t.Error("credential without token should not be valid")
		}
	})

	t.Run("Token", func(t *testing.T) {
		c := Credential{AccessToken: "tok", ExpiresAt: now}
		tok := c.Token()
		if tok.AccessToken != "tok" || tok.TokenType != "Bearer" || !tok.Expiry.Equal(now) {
			t.Errorf("unexpected oauth2 token: %+v", tok)
		}
	})
}

func TestRepeatMode(t *testing.T) {
	t.Run("Next cycles", func(t *testing.T) {
		mode := RepeatNone
		want := []RepeatMode{RepeatAll, RepeatOne, RepeatNone}
		for _, w := range want {
			mode = mode.Next()
			if mode != w {
				t.Fatalf("expected %v, got %v", w, mode)
			}
		}
	})

	t.Run("ParseRepeatMode", func(t *testing.T) {
		for _, mode := range []RepeatMode{RepeatNone, RepeatAll, RepeatOne} {
			parsed, err := ParseRepeatMode(mode.String())
			if err != nil || parsed != mode {
				t.Errorf("ParseRepeatMode(%q) = %v, %v", mode.String(), parsed, err)
			}
		}
		if _, err := ParseRepeatMode("sometimes"); err == nil {
			t.Error("expected error for unknown mode")
		}
	})
}

func TestView(t *testing.T) {
	if AllTracks().Key() == PlaylistView("p1").Key() {
		t.Error("library and playlist views should have different keys")
	}
	if PlaylistView("p1").Key() == PlaylistView("p2").Key() {
		t.Error("different playlists should have different keys")
	}
}

func TestPlaylistContains(t *testing.T) {
	p := Playlist{TrackIDs: []string{"a", "b"}}
	if !p.Contains("b") || p.Contains("c") {
		t.Error("Contains returned wrong result")
	}
}

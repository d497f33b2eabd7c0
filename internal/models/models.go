// package models defines the data model for the playback session controller
package models

import (
	"fmt"
	"strings"
	"time"
)

// Credential authorizes calls to the playback service on behalf of one identity.
//
// ExpiresAt is already reduced by the renewal safety margin, so an unexpired
// credential is always accepted by the remote service.
type Credential struct {
	Identity      string    `json:"identity"`
	AccessSecret  string    `json:"access_secret"`
	RefreshSecret string    `json:"refresh_secret"`
	Scopes        []string  `json:"granted_scopes"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the credential must be renewed before use at now.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ScopeString joins scopes the way OAuth2 token responses encode them.
func (c *Credential) ScopeString() string {
	return strings.Join(c.Scopes, " ")
}

// Validate checks the fields every persisted credential must carry.
func (c *Credential) Validate() error {
	switch {
	case c.Identity == "":
		return fmt.Errorf("credential identity is required")
	case c.AccessSecret == "":
		return fmt.Errorf("credential access secret is required")
	case c.RefreshSecret == "":
		return fmt.Errorf("credential refresh secret is required")
	case c.ExpiresAt.IsZero():
		return fmt.Errorf("credential expiry is required")
	}
	return nil
}

// ParseScopes splits a space separated scope string.
func ParseScopes(s string) []string {
	return strings.Fields(s)
}

// ClientSecretPair is the OAuth client registration shared by every identity.
type ClientSecretPair struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func (p *ClientSecretPair) Validate() error {
	if p.ClientID == "" || p.ClientSecret == "" {
		return fmt.Errorf("client id and client secret are required")
	}
	return nil
}

// Device is a playback target. Devices read from the cache are never active.
type Device struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Active   bool      `json:"is_active"`
	LastSeen time.Time `json:"last_seen"`
}

// TrackRef holds the track fields rendered in the view.
type TrackRef struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	PrimaryArtist string `json:"primary_artist"`
	AlbumTitle    string `json:"album_title"`
	ReleaseYear   int    `json:"release_year"`
}

// Progress is the elapsed fraction of the active track.
//
// Known is false when the duration is zero or missing; the view shows it as indeterminate.
type Progress struct {
	Fraction float64
	Known    bool
}

// NewProgress computes elapsed/duration clamped to [0,1].
func NewProgress(elapsedMs, durationMs int64) Progress {
	if durationMs <= 0 {
		return Progress{}
	}
	f := float64(elapsedMs) / float64(durationMs)
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return Progress{Fraction: f, Known: true}
}

// PlaybackSnapshot is the render state of a session.
type PlaybackSnapshot struct {
	Active   *TrackRef
	Progress Progress
	Playing  bool
	Upcoming []TrackRef
}

// ActiveID returns the active track id, or "" when nothing is playing.
func (s *PlaybackSnapshot) ActiveID() string {
	if s == nil || s.Active == nil {
		return ""
	}
	return s.Active.ID
}

// SessionState is the loop's private bookkeeping.
type SessionState struct {
	LastRefresh time.Time
	Paused      bool
	Cancelled   bool
}

// package services defines interface Player for controlling remote playback over HTTP
package services

import (
	"context"

	"github.com/desertthunder/spotx/internal/models"
)

// Player defines the playback calls a session issues against a streaming service.
//
// Calls that can legitimately return nothing (no active track, no queue) return
// [shared.ErrNoContent] rather than an empty payload, so callers never conflate
// "nothing playing" with a failed request.
type Player interface {
	// CurrentlyPlaying returns the active track, its progress and whether it is playing.
	// Upcoming is always empty; see Queue.
	CurrentlyPlaying(ctx context.Context) (*models.PlaybackSnapshot, error)

	// Queue returns the upcoming tracks, capped to the configured length.
	Queue(ctx context.Context) ([]models.TrackRef, error)

	// Devices returns the devices currently available to the account.
	Devices(ctx context.Context) ([]models.Device, error)

	// Next skips to the next track. An empty deviceID targets the active device.
	Next(ctx context.Context, deviceID string) error

	// Previous skips to the previous track.
	Previous(ctx context.Context, deviceID string) error

	// Play resumes playback, or starts contextURI (album, playlist or artist) when given.
	Play(ctx context.Context, deviceID, contextURI string) error

	// Pause pauses playback.
	Pause(ctx context.Context, deviceID string) error

	// SetShuffle toggles shuffle on the given device.
	SetShuffle(ctx context.Context, enabled bool, deviceID string) error
}

// Playlist is a playlist summary offered as a playback context.
type Playlist struct {
	ID         string
	Name       string
	URI        string
	Owner      string
	TrackCount int
	Public     bool
}

// Profile is the account the session acts for.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
	Product     string
}

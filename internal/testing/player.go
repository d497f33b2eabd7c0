package testing

import (
	"context"
	"sync"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
)

// FakePlayer is a scripted test double for [services.Player].
//
// CurrentlyPlaying pops the next entry of Playing (the last entry repeats). A nil entry
// reports [shared.ErrNoContent]. Every call is recorded by name.
type FakePlayer struct {
	mu sync.Mutex

	Playing    []*models.PlaybackSnapshot
	PlayingErr error
	Upcoming   []models.TrackRef
	QueueErr   error
	DeviceList []models.Device
	CommandErr error

	// Block, when set, is received from before CurrentlyPlaying answers.
	Block chan struct{}

	calls []string
}

func (f *FakePlayer) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

// Calls returns the recorded call names in order.
func (f *FakePlayer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many times name was called.
func (f *FakePlayer) Count(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (f *FakePlayer) CurrentlyPlaying(ctx context.Context) (*models.PlaybackSnapshot, error) {
	f.record("currently-playing")

	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PlayingErr != nil {
		return nil, f.PlayingErr
	}
	if len(f.Playing) == 0 {
		return nil, shared.ErrNoContent
	}

	next := f.Playing[0]
	if len(f.Playing) > 1 {
		f.Playing = f.Playing[1:]
	}
	if next == nil {
		return nil, shared.ErrNoContent
	}

	s := *next
	return &s, nil
}

func (f *FakePlayer) Queue(ctx context.Context) ([]models.TrackRef, error) {
	f.record("queue")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TrackRef(nil), f.Upcoming...), f.QueueErr
}

func (f *FakePlayer) Devices(ctx context.Context) ([]models.Device, error) {
	f.record("devices")
	return f.DeviceList, f.CommandErr
}

func (f *FakePlayer) Next(ctx context.Context, deviceID string) error {
	f.record("next")
	return f.CommandErr
}

func (f *FakePlayer) Previous(ctx context.Context, deviceID string) error {
	f.record("previous")
	return f.CommandErr
}

func (f *FakePlayer) Play(ctx context.Context, deviceID, contextURI string) error {
	f.record("play")
	return f.CommandErr
}

func (f *FakePlayer) Pause(ctx context.Context, deviceID string) error {
	f.record("pause")
	return f.CommandErr
}

func (f *FakePlayer) SetShuffle(ctx context.Context, enabled bool, deviceID string) error {
	f.record("shuffle")
	return f.CommandErr
}

// Snapshot builds a playing snapshot for track id at fraction of its duration.
func Snapshot(id string, fraction float64) *models.PlaybackSnapshot {
	return &models.PlaybackSnapshot{
		Active:   &models.TrackRef{ID: id, Title: "Title " + id, PrimaryArtist: "Artist", AlbumTitle: "Album", ReleaseYear: 2001},
		Progress: models.Progress{Fraction: fraction, Known: true},
		Playing:  true,
	}
}

// RenderCall is one call recorded by [RecordingRenderer].
type RenderCall struct {
	Kind     string
	Snapshot models.PlaybackSnapshot
	Progress models.Progress
	Paused   bool
	Status   string
}

// RecordingRenderer records every render call. Status clears are not recorded.
type RecordingRenderer struct {
	mu    sync.Mutex
	calls []RenderCall
}

func (r *RecordingRenderer) add(c RenderCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *RecordingRenderer) ShowSnapshot(snap models.PlaybackSnapshot, paused bool) {
	r.add(RenderCall{Kind: "snapshot", Snapshot: snap, Paused: paused})
}

func (r *RecordingRenderer) ShowProgress(p models.Progress, paused bool) {
	r.add(RenderCall{Kind: "progress", Progress: p, Paused: paused})
}

func (r *RecordingRenderer) ShowIdle() {
	r.add(RenderCall{Kind: "idle"})
}

func (r *RecordingRenderer) ShowStatus(msg string) {
	if msg == "" {
		return
	}
	r.add(RenderCall{Kind: "status", Status: msg})
}

// Calls returns the recorded calls in order.
func (r *RecordingRenderer) Calls() []RenderCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RenderCall(nil), r.calls...)
}

// Kinds returns the kinds of the recorded calls in order.
func (r *RecordingRenderer) Kinds() []string {
	var kinds []string
	for _, c := range r.Calls() {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}

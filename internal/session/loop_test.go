package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	tu "github.com/desertthunder/spotx/internal/testing"
)

type loopHarness struct {
	loop     *Loop
	player   *tu.FakePlayer
	renderer *tu.RecordingRenderer
	clock    time.Time
	sleeps   []time.Duration
}

func (h *loopHarness) advance(d time.Duration) {
	h.clock = h.clock.Add(d)
}

func newHarness(player *tu.FakePlayer) *loopHarness {
	h := &loopHarness{
		player:   player,
		renderer: &tu.RecordingRenderer{},
		clock:    time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC),
	}
	h.loop = NewLoop(LoopOpts{
		Player:   player,
		Renderer: h.renderer,
		Logger:   shared.NewLogger(io.Discard),
		Now:      func() time.Time { return h.clock },
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		},
	})
	return h
}

func (h *loopHarness) handle(t *testing.T, kind EventKind) {
	t.Helper()
	if err := h.loop.handle(context.Background(), Event{Kind: kind, At: h.clock}); err != nil {
		t.Fatalf("handle(%v) returned %v", kind, err)
	}
}

func upcoming(ids ...string) []models.TrackRef {
	var refs []models.TrackRef
	for _, id := range ids {
		refs = append(refs, models.TrackRef{ID: id, Title: "Upcoming " + id})
	}
	return refs
}

func TestLoopRefresh(t *testing.T) {
	t.Run("SameTrackUpdatesProgressOnly", func(t *testing.T) {
		player := &tu.FakePlayer{
			Playing:  []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.1), tu.Snapshot("t1", 0.2), tu.Snapshot("t1", 0.3)},
			Upcoming: upcoming("u1", "u2"),
		}
		h := newHarness(player)

		for range 3 {
			h.handle(t, Refresh)
			h.advance(3 * time.Second)
		}

		if got := h.renderer.Kinds(); !slices.Equal(got, []string{"snapshot", "progress", "progress"}) {
			t.Errorf("unexpected render sequence %v", got)
		}

		if n := player.Count("queue"); n != 1 {
			t.Errorf("expected queue fetched once, got %d", n)
		}

		snap := h.loop.Snapshot()
		if snap.Progress.Fraction != 0.3 {
			t.Errorf("expected progress 0.3, got %v", snap.Progress.Fraction)
		}
		if len(snap.Upcoming) != 2 || snap.Upcoming[0].ID != "u1" {
			t.Errorf("upcoming queue should be untouched, got %+v", snap.Upcoming)
		}
	})

	t.Run("TrackChangeReplacesSnapshot", func(t *testing.T) {
		player := &tu.FakePlayer{
			Playing:  []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.9), tu.Snapshot("t2", 0.0)},
			Upcoming: upcoming("t2", "u2", "u3"),
		}
		h := newHarness(player)

		h.handle(t, Refresh)
		h.advance(3 * time.Second)
		player.Upcoming = upcoming("u9")
		h.handle(t, Refresh)

		if n := player.Count("queue"); n != 2 {
			t.Errorf("expected queue fetched for each track, got %d", n)
		}

		calls := h.renderer.Calls()
		last := calls[len(calls)-1]
		if last.Kind != "snapshot" || last.Snapshot.ActiveID() != "t2" {
			t.Fatalf("expected full snapshot for t2, got %+v", last)
		}
		if len(last.Snapshot.Upcoming) != 1 || last.Snapshot.Upcoming[0].ID != "u9" {
			t.Errorf("previous upcoming entries should be discarded, got %+v", last.Snapshot.Upcoming)
		}
	})

	t.Run("RateLimited", func(t *testing.T) {
		player := &tu.FakePlayer{Playing: []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.1)}}
		h := newHarness(player)

		h.handle(t, Refresh)
		h.advance(time.Second)
		h.handle(t, Refresh)

		if n := player.Count("currently-playing"); n != 1 {
			t.Errorf("expected refresh inside the render interval to be skipped, got %d fetches", n)
		}

		h.advance(time.Second)
		h.handle(t, Refresh)
		if n := player.Count("currently-playing"); n != 2 {
			t.Errorf("expected refresh after the render interval, got %d fetches", n)
		}
	})

	t.Run("NothingPlayingShowsIdle", func(t *testing.T) {
		player := &tu.FakePlayer{Playing: []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.5), nil}}
		h := newHarness(player)

		h.handle(t, Refresh)
		h.advance(3 * time.Second)
		h.handle(t, Refresh)

		if got := h.renderer.Kinds(); !slices.Equal(got, []string{"snapshot", "idle"}) {
			t.Errorf("unexpected render sequence %v", got)
		}
		if h.loop.Snapshot() != nil {
			t.Error("expected snapshot cleared when idle")
		}
	})

	t.Run("UnknownDuration", func(t *testing.T) {
		snap := tu.Snapshot("t1", 0)
		snap.Progress = models.NewProgress(1000, 0)
		h := newHarness(&tu.FakePlayer{Playing: []*models.PlaybackSnapshot{snap}})

		h.handle(t, Refresh)
		if got := h.renderer.Calls()[0].Snapshot.Progress; got.Known {
			t.Errorf("expected indeterminate progress, got %+v", got)
		}
	})
}

func TestLoopCommands(t *testing.T) {
	t.Run("NextSettlesThenRefreshes", func(t *testing.T) {
		player := &tu.FakePlayer{
			Playing:  []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.5), tu.Snapshot("t2", 0.0)},
			Upcoming: upcoming("u1"),
		}
		h := newHarness(player)

		h.handle(t, Refresh)
		h.advance(3 * time.Second)
		h.handle(t, Next)

		want := []string{"currently-playing", "queue", "next", "currently-playing", "queue"}
		if got := player.Calls(); !slices.Equal(got, want) {
			t.Errorf("expected calls %v, got %v", want, got)
		}

		if !slices.Equal(h.sleeps, []time.Duration{DefaultSettleDelay}) {
			t.Errorf("expected one settle delay of %v, got %v", DefaultSettleDelay, h.sleeps)
		}

		if h.loop.Snapshot().ActiveID() != "t2" {
			t.Errorf("expected t2 after next, got %s", h.loop.Snapshot().ActiveID())
		}
	})

	t.Run("Previous", func(t *testing.T) {
		player := &tu.FakePlayer{Playing: []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.5)}}
		h := newHarness(player)

		h.handle(t, Previous)
		if n := player.Count("previous"); n != 1 {
			t.Errorf("expected previous to be issued once, got %d", n)
		}
		if n := player.Count("currently-playing"); n != 1 {
			t.Errorf("expected a refresh after previous, got %d", n)
		}
	})

	t.Run("TogglePause", func(t *testing.T) {
		paused := tu.Snapshot("t1", 0.5)
		paused.Playing = false

		player := &tu.FakePlayer{Playing: []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.4), paused, tu.Snapshot("t1", 0.6)}}
		h := newHarness(player)

		h.handle(t, Refresh)
		if h.loop.Session().Paused {
			t.Fatal("expected playing after first refresh")
		}

		h.advance(3 * time.Second)
		h.handle(t, TogglePause)
		if n := player.Count("pause"); n != 1 {
			t.Errorf("expected pause, got calls %v", player.Calls())
		}
		if !h.loop.Session().Paused {
			t.Error("expected paused after toggle")
		}

		h.advance(3 * time.Second)
		h.handle(t, TogglePause)
		if n := player.Count("play"); n != 1 {
			t.Errorf("expected play, got calls %v", player.Calls())
		}
		if h.loop.Session().Paused {
			t.Error("expected playing after second toggle")
		}

		last := h.renderer.Calls()[len(h.renderer.Calls())-1]
		if last.Kind != "progress" || last.Paused {
			t.Errorf("expected progress render while playing, got %+v", last)
		}
	})

	t.Run("CommandsInsideRenderIntervalSkipped", func(t *testing.T) {
		player := &tu.FakePlayer{
			Playing:  []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.5), tu.Snapshot("t2", 0.0)},
			Upcoming: upcoming("u1"),
		}
		h := newHarness(player)

		h.handle(t, Refresh)
		h.advance(500 * time.Millisecond)
		h.handle(t, Next)
		h.advance(500 * time.Millisecond)
		h.handle(t, TogglePause)

		if got := h.renderer.Kinds(); !slices.Equal(got, []string{"snapshot"}) {
			t.Errorf("expected a single applied render, got %v", got)
		}
		if n := player.Count("currently-playing"); n != 1 {
			t.Errorf("expected one fetch, got %d", n)
		}
		if n := player.Count("next") + player.Count("pause"); n != 0 {
			t.Errorf("expected no commands inside the render interval, got calls %v", player.Calls())
		}

		h.advance(time.Second)
		h.handle(t, Next)
		if n := player.Count("next"); n != 1 {
			t.Errorf("expected next once the interval passed, got %d", n)
		}
	})

	t.Run("FailedCommandStillRefreshes", func(t *testing.T) {
		player := &tu.FakePlayer{
			Playing:    []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.5)},
			CommandErr: &services.GatewayError{Status: http.StatusNotFound, Reason: "NO_ACTIVE_DEVICE"},
		}
		h := newHarness(player)

		h.handle(t, Next)

		if n := player.Count("currently-playing"); n != 1 {
			t.Errorf("expected refresh after failed command, got %d", n)
		}

		calls := h.renderer.Calls()
		last := calls[len(calls)-1]
		if last.Kind != "status" {
			t.Fatalf("expected status message last, got %+v", calls)
		}
		if last.Status != statusMessage(player.CommandErr) {
			t.Errorf("unexpected status %q", last.Status)
		}
	})
}

func TestLoopErrors(t *testing.T) {
	t.Run("GatewayErrorContinues", func(t *testing.T) {
		player := &tu.FakePlayer{PlayingErr: &services.GatewayError{Status: http.StatusServiceUnavailable}}
		h := newHarness(player)

		h.handle(t, Refresh)

		calls := h.renderer.Calls()
		if len(calls) != 1 || calls[0].Kind != "status" {
			t.Errorf("expected a status message, got %+v", calls)
		}
	})

	t.Run("FailedRefreshKeepsLastRefresh", func(t *testing.T) {
		player := &tu.FakePlayer{Playing: []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.1)}}
		h := newHarness(player)

		h.handle(t, Refresh)
		fetched := h.clock
		if !h.loop.LastRefresh().Equal(fetched) {
			t.Fatalf("expected last refresh %v, got %v", fetched, h.loop.LastRefresh())
		}

		h.advance(3 * time.Second)
		player.PlayingErr = &services.GatewayError{Status: http.StatusServiceUnavailable}
		h.handle(t, Refresh)

		if got := h.loop.LastRefresh(); !got.Equal(fetched) {
			t.Errorf("failed refresh moved last refresh to %v", got)
		}
		if got := h.loop.Session().LastRefresh; !got.Equal(fetched) {
			t.Errorf("failed refresh moved session last refresh to %v", got)
		}
	})

	t.Run("FirstRefreshFailsLeavesZero", func(t *testing.T) {
		player := &tu.FakePlayer{PlayingErr: &services.GatewayError{Status: http.StatusServiceUnavailable}}
		h := newHarness(player)

		h.handle(t, Refresh)
		if !h.loop.LastRefresh().IsZero() {
			t.Errorf("expected zero last refresh, got %v", h.loop.LastRefresh())
		}
	})

	t.Run("RenewalRejectedIsFatal", func(t *testing.T) {
		player := &tu.FakePlayer{PlayingErr: fmt.Errorf("authorize request: %w", shared.ErrRenewalRejected)}
		h := newHarness(player)

		err := h.loop.handle(context.Background(), Event{Kind: Refresh})
		if !errors.Is(err, shared.ErrRenewalRejected) {
			t.Errorf("expected ErrRenewalRejected, got %v", err)
		}
	})

	t.Run("RenewalRejectedOnCommandIsFatal", func(t *testing.T) {
		player := &tu.FakePlayer{CommandErr: fmt.Errorf("authorize request: %w", shared.ErrRenewalRejected)}
		h := newHarness(player)

		err := h.loop.handle(context.Background(), Event{Kind: Next})
		if !errors.Is(err, shared.ErrRenewalRejected) {
			t.Errorf("expected ErrRenewalRejected, got %v", err)
		}
		if len(h.sleeps) != 0 {
			t.Error("fatal command error should not wait to settle")
		}
	})

	t.Run("StorageFailureIsFatal", func(t *testing.T) {
		player := &tu.FakePlayer{PlayingErr: fmt.Errorf("%w: disk full", shared.ErrStorage)}
		h := newHarness(player)

		if err := h.loop.handle(context.Background(), Event{Kind: Refresh}); !errors.Is(err, shared.ErrStorage) {
			t.Errorf("expected ErrStorage, got %v", err)
		}
	})
}

func runLoop(t *testing.T, ctx context.Context, opts LoopOpts) (*Loop, <-chan error) {
	t.Helper()

	opts.Logger = shared.NewLogger(io.Discard)
	opts.StaleAfter = time.Hour
	opts.SettleDelay = -1
	loop := NewLoop(opts)

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	return loop, done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	return nil
}

func TestLoopRun(t *testing.T) {
	t.Run("QuitSkipsQueuedRefresh", func(t *testing.T) {
		player := &tu.FakePlayer{
			Playing: []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.1)},
			Block:   make(chan struct{}),
		}
		keys := &scriptedKeys{keys: []string{"r", "q"}}

		loop, done := runLoop(t, context.Background(), LoopOpts{
			Player:            player,
			Renderer:          &tu.RecordingRenderer{},
			Keys:              keys,
			MinRenderInterval: time.Nanosecond,
		})

		if err := waitRun(t, done); err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}

		if n := player.Count("currently-playing"); n != 1 {
			t.Errorf("expected only the initial fetch, got %d", n)
		}
		if loop.State() != Terminating || !loop.Session().Cancelled {
			t.Errorf("expected terminating and cancelled, got %v %+v", loop.State(), loop.Session())
		}
	})

	t.Run("InterruptExitsCleanly", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		player := &tu.FakePlayer{Playing: []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.1)}}

		_, done := runLoop(t, ctx, LoopOpts{Player: player, Renderer: &tu.RecordingRenderer{}, Keys: make(chanKeys)})

		cancel()
		if err := waitRun(t, done); err != nil {
			t.Errorf("expected nil on interrupt, got %v", err)
		}
	})

	t.Run("RenewalRejectedEndsRun", func(t *testing.T) {
		player := &tu.FakePlayer{PlayingErr: fmt.Errorf("authorize request: %w", shared.ErrRenewalRejected)}

		_, done := runLoop(t, context.Background(), LoopOpts{Player: player, Renderer: &tu.RecordingRenderer{}, Keys: make(chanKeys)})

		if err := waitRun(t, done); !errors.Is(err, shared.ErrRenewalRejected) {
			t.Errorf("expected ErrRenewalRejected, got %v", err)
		}
	})

	t.Run("KeysDriveCommands", func(t *testing.T) {
		player := &tu.FakePlayer{Playing: []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.1), tu.Snapshot("t2", 0.0)}}
		keys := make(chanKeys)

		_, done := runLoop(t, context.Background(), LoopOpts{
			Player:            player,
			Renderer:          &tu.RecordingRenderer{},
			Keys:              keys,
			MinRenderInterval: time.Nanosecond,
		})

		keys <- "n"
		deadline := time.Now().Add(time.Second)
		for player.Count("currently-playing") < 2 {
			if time.Now().After(deadline) {
				t.Fatalf("next was not handled, calls %v", player.Calls())
			}
			time.Sleep(5 * time.Millisecond)
		}
		keys <- "q"

		if err := waitRun(t, done); err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
		if n := player.Count("next"); n != 1 {
			t.Errorf("expected one next command, got %d", n)
		}
	})

	t.Run("TimerRetriesAfterFailedRefresh", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		player := &tu.FakePlayer{PlayingErr: &services.GatewayError{Status: http.StatusServiceUnavailable}}
		loop := NewLoop(LoopOpts{
			Player:            player,
			Renderer:          &tu.RecordingRenderer{},
			Logger:            shared.NewLogger(io.Discard),
			TickInterval:      5 * time.Millisecond,
			StaleAfter:        time.Hour,
			MinRenderInterval: time.Nanosecond,
		})

		done := make(chan error, 1)
		go func() { done <- loop.Run(ctx) }()

		deadline := time.Now().Add(time.Second)
		for player.Count("currently-playing") < 3 {
			if time.Now().After(deadline) {
				t.Fatalf("timer did not retry the failed refresh, calls %v", player.Calls())
			}
			time.Sleep(5 * time.Millisecond)
		}

		cancel()
		if err := waitRun(t, done); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("TimerRefreshesWhenStale", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		player := &tu.FakePlayer{Playing: []*models.PlaybackSnapshot{tu.Snapshot("t1", 0.1)}}
		loop := NewLoop(LoopOpts{
			Player:            player,
			Renderer:          &tu.RecordingRenderer{},
			Logger:            shared.NewLogger(io.Discard),
			TickInterval:      5 * time.Millisecond,
			StaleAfter:        20 * time.Millisecond,
			MinRenderInterval: time.Nanosecond,
		})

		done := make(chan error, 1)
		go func() { done <- loop.Run(ctx) }()

		deadline := time.Now().Add(time.Second)
		for player.Count("currently-playing") < 3 {
			if time.Now().After(deadline) {
				t.Fatalf("timer did not refresh, calls %v", player.Calls())
			}
			time.Sleep(5 * time.Millisecond)
		}

		cancel()
		if err := waitRun(t, done); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
)

const (
	DefaultSettleDelay       = time.Second
	DefaultMinRenderInterval = 2 * time.Second
)

// State is the loop's lifecycle phase.
type State int

const (
	Active State = iota
	Terminating
)

// Renderer draws the session view. Calls come from the loop goroutine only.
type Renderer interface {
	// ShowSnapshot replaces the whole view: active track, progress and upcoming queue.
	ShowSnapshot(snap models.PlaybackSnapshot, paused bool)
	// ShowProgress updates only the progress of the track already shown.
	ShowProgress(p models.Progress, paused bool)
	// ShowIdle replaces the view with the nothing-playing state.
	ShowIdle()
	// ShowStatus sets a one-line message under the view. An empty message clears it.
	ShowStatus(msg string)
}

// Loop consumes merged events and drives the playback service and the view.
//
// All session state lives on the loop goroutine. The one exception is the last refresh
// time, which the timer producer reads through an atomic.
type Loop struct {
	player   services.Player
	renderer Renderer
	keys     KeySource
	logger   *log.Logger

	tick        time.Duration
	staleAfter  time.Duration
	settle      time.Duration
	minRender   time.Duration
	deviceID    string
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	lastRefresh atomic.Int64

	state      State
	session    models.SessionState
	snapshot   *models.PlaybackSnapshot
	lastRender time.Time
}

// LoopOpts contains configuration options for creating a Loop.
type LoopOpts struct {
	Player   services.Player
	Renderer Renderer
	Keys     KeySource
	Logger   *log.Logger

	TickInterval      time.Duration
	StaleAfter        time.Duration
	SettleDelay       time.Duration
	MinRenderInterval time.Duration
	// DeviceID targets commands at one device; empty uses the active device.
	DeviceID string

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewLoop creates a [Loop]. A negative SettleDelay disables the settle wait.
func NewLoop(opts LoopOpts) *Loop {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.MinRenderInterval == 0 {
		opts.MinRenderInterval = DefaultMinRenderInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Loop{
		player:     opts.Player,
		renderer:   opts.Renderer,
		keys:       opts.Keys,
		logger:     opts.Logger,
		tick:       opts.TickInterval,
		staleAfter: opts.StaleAfter,
		settle:     opts.SettleDelay,
		minRender:  opts.MinRenderInterval,
		deviceID:   opts.DeviceID,
		now:        opts.Now,
		sleep:      opts.Sleep,
	}
}

// Run renders once, then processes events until a quit key, cancellation of ctx or a fatal
// error. Quit and cancellation return nil. Fatal errors wrap [shared.ErrRenewalRejected],
// [shared.ErrNotFound] or [shared.ErrStorage].
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	merger := NewMerger(MergerOpts{
		Keys:         l.keys,
		TickInterval: l.tick,
		StaleAfter:   l.staleAfter,
		LastRefresh:  l.LastRefresh,
		Now:          l.now,
		Cancel:       cancel,
		Logger:       l.logger,
	})
	events := merger.Start(ctx)

	err := l.consume(ctx, events)

	l.state = Terminating
	l.session.Cancelled = true
	cancel()
	merger.Wait()

	if err != nil {
		l.logger.Error("session ended", "error", err)
		return err
	}
	l.logger.Info("session ended")
	return nil
}

func (l *Loop) consume(ctx context.Context, events <-chan Event) error {
	if err := l.handle(ctx, Event{Kind: Refresh, At: l.now()}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok || ctx.Err() != nil {
				return nil
			}
			if ev.Kind == Quit {
				return nil
			}
			if err := l.handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

// handle applies one event. Any event arriving within the minimum render interval of the last
// render is dropped without a network call. Only fatal errors are returned; everything else is
// shown as a status line and the loop carries on.
func (l *Loop) handle(ctx context.Context, ev Event) error {
	l.logger.Debug("event", "kind", ev.Kind, "source", ev.Source)

	if since := l.now().Sub(l.lastRender); !l.lastRender.IsZero() && since < l.minRender {
		l.logger.Debug("event skipped", "kind", ev.Kind, "since_render", since)
		return nil
	}

	var err error
	switch ev.Kind {
	case Refresh:
		err = l.refresh(ctx)
	case Next:
		err = l.command(ctx, "next", func() error { return l.player.Next(ctx, l.deviceID) })
	case Previous:
		err = l.command(ctx, "previous", func() error { return l.player.Previous(ctx, l.deviceID) })
	case TogglePause:
		err = l.togglePause(ctx)
	}

	return l.classify(ctx, err)
}

func (l *Loop) togglePause(ctx context.Context) error {
	if l.session.Paused {
		return l.command(ctx, "play", func() error {
			if err := l.player.Play(ctx, l.deviceID, ""); err != nil {
				return err
			}
			l.session.Paused = false
			return nil
		})
	}
	return l.command(ctx, "pause", func() error {
		if err := l.player.Pause(ctx, l.deviceID); err != nil {
			return err
		}
		l.session.Paused = true
		return nil
	})
}

// command issues a playback command, waits for the service to settle and refreshes. The
// refresh runs even when the command failed so the view reflects what actually happened.
func (l *Loop) command(ctx context.Context, name string, issue func() error) error {
	cmdErr := issue()
	if isFatal(cmdErr) {
		return cmdErr
	}
	if cmdErr != nil {
		l.logger.Warn("command failed", "command", name, "error", cmdErr)
	}

	if l.settle > 0 {
		if err := l.sleep(ctx, l.settle); err != nil {
			return err
		}
	}

	if err := l.refresh(ctx); err != nil {
		return err
	}

	if cmdErr != nil {
		return fmt.Errorf("%s: %w", name, cmdErr)
	}
	return nil
}

// refresh fetches the active track. When it is the track already shown only progress is
// updated; otherwise the queue is fetched and the whole snapshot replaced. The refresh time
// only advances when the fetch succeeds, so the timer retries after a failure.
func (l *Loop) refresh(ctx context.Context) error {
	current, err := l.player.CurrentlyPlaying(ctx)
	if errors.Is(err, shared.ErrNoContent) {
		l.snapshot = nil
		l.renderer.ShowIdle()
		l.refreshed()
		return nil
	}
	if err != nil {
		return err
	}

	l.session.Paused = !current.Playing

	if l.snapshot != nil && current.ActiveID() != "" && current.ActiveID() == l.snapshot.ActiveID() {
		l.snapshot.Progress = current.Progress
		l.snapshot.Playing = current.Playing
		l.renderer.ShowProgress(current.Progress, l.session.Paused)
		l.refreshed()
		return nil
	}

	upcoming, err := l.player.Queue(ctx)
	if err != nil && !errors.Is(err, shared.ErrNoContent) {
		return err
	}

	current.Upcoming = upcoming
	l.snapshot = current
	l.renderer.ShowSnapshot(*current, l.session.Paused)
	l.refreshed()
	return nil
}

func (l *Loop) refreshed() {
	now := l.now()
	l.session.LastRefresh = now
	l.lastRefresh.Store(now.UnixNano())
	l.lastRender = now
	l.renderer.ShowStatus("")
}

// classify swallows recoverable errors after showing them.
func (l *Loop) classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case isFatal(err):
		return err
	case ctx.Err() != nil:
		return nil
	}

	l.logger.Warn("request failed", "error", err)
	l.renderer.ShowStatus(statusMessage(err))
	l.lastRender = l.now()
	return nil
}

func isFatal(err error) bool {
	return errors.Is(err, shared.ErrRenewalRejected) ||
		errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrStorage)
}

func statusMessage(err error) string {
	var ge *services.GatewayError
	switch {
	case errors.Is(err, shared.ErrNoDevice):
		return "no active device: start playback on a device or pass --device"
	case errors.As(err, &ge) && ge.RateLimited():
		return "rate limited by the playback service, try again shortly"
	case errors.As(err, &ge):
		return ge.Error()
	}
	return err.Error()
}

// LastRefresh reports when the loop last fetched the active track successfully. Safe for
// concurrent use.
func (l *Loop) LastRefresh() time.Time {
	ns := l.lastRefresh.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// State reports the loop's lifecycle phase. Only meaningful after Run returns or from the
// loop goroutine.
func (l *Loop) State() State {
	return l.state
}

// Session returns a copy of the loop's session state.
func (l *Loop) Session() models.SessionState {
	return l.session
}

// Snapshot returns a copy of the last full snapshot, or nil when idle.
func (l *Loop) Snapshot() *models.PlaybackSnapshot {
	if l.snapshot == nil {
		return nil
	}
	s := *l.snapshot
	return &s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

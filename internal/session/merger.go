package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/shared"
)

const (
	DefaultTickInterval = 500 * time.Millisecond
	DefaultStaleAfter   = 10 * time.Second
)

// Merger runs the timer and keyboard producers and merges their events into one FIFO
// stream in arrival order.
//
// The buffer between producers and consumer is unbounded so a producer never blocks on a
// slow consumer. After cancellation buffered events are discarded; the stream closes once
// both producers have returned.
type Merger struct {
	keys        KeySource
	tick        time.Duration
	staleAfter  time.Duration
	lastRefresh func() time.Time
	now         func() time.Time
	cancel      context.CancelFunc
	logger      *log.Logger

	in  chan Event
	out chan Event
	wg  sync.WaitGroup
}

// MergerOpts contains configuration options for creating a Merger.
type MergerOpts struct {
	Keys         KeySource
	TickInterval time.Duration
	StaleAfter   time.Duration
	// LastRefresh reports when the consumer last fetched; the timer only fires once it is stale.
	LastRefresh func() time.Time
	Now         func() time.Time
	// Cancel is invoked by the keyboard producer on a quit key, before the event is queued.
	Cancel context.CancelFunc
	Logger *log.Logger
}

// NewMerger creates a [Merger]. Call [Merger.Start] to run it.
func NewMerger(opts MergerOpts) *Merger {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.LastRefresh == nil {
		opts.LastRefresh = func() time.Time { return time.Time{} }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Cancel == nil {
		opts.Cancel = func() {}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Merger{
		keys:        opts.Keys,
		tick:        opts.TickInterval,
		staleAfter:  opts.StaleAfter,
		lastRefresh: opts.LastRefresh,
		now:         opts.Now,
		cancel:      opts.Cancel,
		logger:      opts.Logger,
		in:          make(chan Event),
		out:         make(chan Event),
	}
}

// Start launches both producers and the queue. The returned channel is closed after ctx is
// done and both producers have finished.
func (m *Merger) Start(ctx context.Context) <-chan Event {
	m.wg.Add(1)
	go m.runTimer(ctx)

	if m.keys != nil {
		m.wg.Add(1)
		go m.runKeys(ctx)
	}

	go func() {
		m.wg.Wait()
		close(m.in)
	}()

	go m.pump(ctx)
	return m.out
}

// Wait blocks until both producers have returned.
func (m *Merger) Wait() {
	m.wg.Wait()
}

func (m *Merger) runTimer(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := m.now()
			if now.Sub(m.lastRefresh()) > m.staleAfter {
				m.in <- Event{Kind: Refresh, Source: FromTimer, At: now}
			}
		}
	}
}

func (m *Merger) runKeys(ctx context.Context) {
	defer m.wg.Done()

	for {
		key, err := m.keys.ReadKey(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("key source closed", "error", err)
				m.cancel()
			}
			return
		}

		kind, ok := KeyEvent(key)
		if !ok {
			continue
		}

		if kind == Quit {
			m.cancel()
			m.in <- Event{Kind: Quit, Source: FromKeyboard, At: m.now()}
			return
		}
		m.in <- Event{Kind: kind, Source: FromKeyboard, At: m.now()}
	}
}

// pump moves events from the producers to the consumer through a growable buffer. It
// always accepts from producers, so their sends never block for long.
func (m *Merger) pump(ctx context.Context) {
	defer close(m.out)

	var (
		buf  []Event
		done = ctx.Done()
	)

	for {
		if done != nil && ctx.Err() != nil {
			buf = nil
			done = nil
		}

		var (
			out  chan Event
			next Event
		)
		if len(buf) > 0 {
			out = m.out
			next = buf[0]
		}

		select {
		case ev, ok := <-m.in:
			if !ok {
				return
			}
			if done == nil {
				continue
			}
			buf = append(buf, ev)
		case out <- next:
			buf[0] = Event{}
			buf = buf[1:]
		case <-done:
			buf = nil
			done = nil
		}
	}
}

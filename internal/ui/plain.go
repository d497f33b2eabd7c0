package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/desertthunder/spotx/internal/formatter"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/session"
	"golang.org/x/term"
)

var (
	_ session.Renderer  = (*PlainRenderer)(nil)
	_ session.KeySource = (*RawKeys)(nil)
)

// ctrlC is the byte a raw-mode terminal delivers for ctrl+c.
const ctrlC = 0x03

// PlainRenderer writes the session as plain lines.
//
// Raw-mode terminals do not translate "\n", so lines end in "\r\n" when Raw is set.
type PlainRenderer struct {
	w   io.Writer
	eol string
	bar progress.Model
}

// NewPlainRenderer creates a PlainRenderer writing to w.
func NewPlainRenderer(w io.Writer, raw bool) *PlainRenderer {
	eol := "\n"
	if raw {
		eol = "\r\n"
	}
	return &PlainRenderer{
		w:   w,
		eol: eol,
		bar: progress.New(progress.WithSolidFill("#1DB954"), progress.WithoutPercentage(), progress.WithWidth(30)),
	}
}

func (r *PlainRenderer) line(s string) {
	fmt.Fprint(r.w, s, r.eol)
}

func (r *PlainRenderer) ShowSnapshot(snap models.PlaybackSnapshot, paused bool) {
	r.line("")
	r.line(styles.ok.Render(activeMarker+" "+formatter.TrackLine(*snap.Active)))
	for i, t := range snap.Upcoming {
		r.line(fmt.Sprintf("  %d. %s", i+1, formatter.TrackLine(t)))
	}
	r.ShowProgress(snap.Progress, paused)
}

func (r *PlainRenderer) ShowProgress(p models.Progress, paused bool) {
	if !p.Known {
		r.line(fmt.Sprintf("%s  %s", styles.help.Render(unknownLength), playState(paused)))
		return
	}
	r.line(fmt.Sprintf("%s %s  %s", r.bar.ViewAs(p.Fraction), formatter.ProgressString(p), playState(paused)))
}

func (r *PlainRenderer) ShowIdle() {
	r.line(styles.help.Render(idleText))
}

func (r *PlainRenderer) ShowStatus(msg string) {
	if msg == "" {
		return
	}
	r.line(styles.err.Render(msg))
}

// RawKeys reads single keystrokes from a reader, usually a terminal in raw mode.
//
// A background goroutine owns the reader. It cannot be interrupted mid-read, so after
// Close it lingers until the next byte or EOF.
type RawKeys struct {
	keys  chan string
	errs  chan error
	once  sync.Once
	close func() error
}

// NewRawKeys puts f into raw mode when it is a terminal and reads keys from it. Close
// restores the terminal.
func NewRawKeys(f *os.File) (*RawKeys, error) {
	restore := func() error { return nil }

	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, fmt.Errorf("failed to enter raw mode: %w", err)
		}
		restore = func() error { return term.Restore(fd, state) }
	}

	k := NewKeyReader(f)
	k.close = restore
	return k, nil
}

// NewKeyReader reads keys from r without touching terminal state.
func NewKeyReader(r io.Reader) *RawKeys {
	k := &RawKeys{
		keys:  make(chan string, 16),
		errs:  make(chan error, 1),
		close: func() error { return nil },
	}
	go k.read(bufio.NewReader(r))
	return k
}

func (k *RawKeys) read(r io.ByteReader) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			k.errs <- err
			return
		}

		switch {
		case b == ctrlC:
			k.keys <- "q"
		case b == '\r' || b == '\n':
		default:
			k.keys <- string(rune(b))
		}
	}
}

// ReadKey returns the next key. Once the reader is exhausted it returns [io.EOF] (or the
// read error) after any keys already read.
func (k *RawKeys) ReadKey(ctx context.Context) (string, error) {
	select {
	case key := <-k.keys:
		return key, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-k.errs:
		// drain keys read before the error
		select {
		case key := <-k.keys:
			k.errs <- err
			return key, nil
		default:
		}
		if errors.Is(err, os.ErrClosed) {
			err = io.EOF
		}
		k.errs <- err
		return "", err
	}
}

// Close restores the terminal. Safe to call more than once.
func (k *RawKeys) Close() error {
	var err error
	k.once.Do(func() { err = k.close() })
	return err
}

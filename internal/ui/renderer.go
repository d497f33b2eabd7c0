package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/session"
)

var (
	_ session.Renderer  = (*TeaRenderer)(nil)
	_ session.KeySource = (*KeyChannel)(nil)
)

// TeaRenderer forwards render calls to a running bubbletea program.
type TeaRenderer struct {
	send func(tea.Msg)
}

// NewTeaRenderer sends every render call to p.
func NewTeaRenderer(p *tea.Program) *TeaRenderer {
	return &TeaRenderer{send: p.Send}
}

func (r *TeaRenderer) ShowSnapshot(snap models.PlaybackSnapshot, paused bool) {
	r.send(snapshotMsg(snap, paused))
}

func (r *TeaRenderer) ShowProgress(p models.Progress, paused bool) {
	r.send(progressMsg(p, paused))
}

func (r *TeaRenderer) ShowIdle() {
	r.send(idleMsg())
}

func (r *TeaRenderer) ShowStatus(msg string) {
	r.send(statusMsg(msg))
}

// KeyChannel carries keystrokes from the bubbletea update loop to the session loop.
type KeyChannel struct {
	ch chan string
}

// NewKeyChannel creates a KeyChannel holding up to size pending keys.
func NewKeyChannel(size int) *KeyChannel {
	if size <= 0 {
		size = 64
	}
	return &KeyChannel{ch: make(chan string, size)}
}

// Push queues key without blocking. It reports false when the buffer is full and the key
// was dropped.
func (k *KeyChannel) Push(key string) bool {
	select {
	case k.ch <- key:
		return true
	default:
		return false
	}
}

func (k *KeyChannel) ReadKey(ctx context.Context) (string, error) {
	select {
	case key := <-k.ch:
		return key, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

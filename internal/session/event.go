package session

import (
	"context"
	"time"
)

// EventKind enumerates the inputs the session loop reacts to.
type EventKind int

const (
	Refresh EventKind = iota
	Next
	Previous
	TogglePause
	Quit
)

func (k EventKind) String() string {
	switch k {
	case Refresh:
		return "refresh"
	case Next:
		return "next"
	case Previous:
		return "previous"
	case TogglePause:
		return "toggle-pause"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// Source records which producer emitted an event.
type Source int

const (
	FromTimer Source = iota
	FromKeyboard
)

// Event is one item of the merged stream.
type Event struct {
	Kind   EventKind
	Source Source
	At     time.Time
}

// KeySource yields keystrokes. ReadKey blocks until a key arrives or ctx is done, in which
// case it returns ctx's error.
type KeySource interface {
	ReadKey(ctx context.Context) (string, error)
}

// KeyEvent maps a keystroke to an event kind. Unrecognized keys report false.
func KeyEvent(key string) (EventKind, bool) {
	switch key {
	case "q", "Q":
		return Quit, true
	case "r", "R":
		return Refresh, true
	case " ", "space":
		return TogglePause, true
	case "n", "N":
		return Next, true
	case "p", "P":
		return Previous, true
	}
	return 0, false
}

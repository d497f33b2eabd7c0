// Package session runs the live playback session.
//
// A [Merger] combines two producers into one ordered stream of [Event] values: a ticker that
// asks for a refresh once the view has gone stale, and a [KeySource] whose keystrokes map to
// commands through [KeyEvent]. Producers only enqueue; the queue has no upper bound so a slow
// consumer never drops a keystroke.
//
// A [Loop] is the single consumer. It applies each event in arrival order, talks to the
// playback service one call at a time and hands the result to a [Renderer]. Refreshing the
// same track only updates progress; a new track also fetches the upcoming queue.
//
// Credential failures that cannot be renewed end the session with an error. Everything else
// is shown as a status line and the session carries on.
package session

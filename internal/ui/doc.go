// Package ui draws the playback session in the terminal.
//
// Two front ends implement the session's renderer and key source:
//   - [Model] is a bubbletea program (Elm-style Init/Update/View) showing the active track and
//     upcoming queue in a charmbracelet/bubbles table with a progress bar and key help.
//     [TeaRenderer] forwards render calls into the program as [Msg] values and [KeyChannel]
//     hands keystrokes from Update back to the session loop.
//   - [PlainRenderer] writes line-oriented output for terminals without an alternate screen,
//     paired with [RawKeys], which reads single keystrokes from a raw-mode terminal.
//
// The view never calls the playback service itself; the session loop decides what to fetch
// and when to redraw.
package ui

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotx/internal/formatter"
	"github.com/desertthunder/spotx/internal/models"
)

const (
	activeMarker  = "♪"
	idleText      = "Nothing playing. Start playback on a device, then press r."
	unknownLength = "duration unknown"
	minBarWidth   = 20
	maxBarWidth   = 80
	// header row, its border and one spare line
	tableChrome = 3
)

// Model represents the session view state.
type Model struct {
	keys     keyMap
	help     help.Model
	table    table.Model
	bar      progress.Model
	keyCh    *KeyChannel
	snapshot *models.PlaybackSnapshot
	paused   bool
	idle     bool
	status   string
	width    int
}

// NewModel creates the session view. Keystrokes are pushed onto keyCh.
func NewModel(keyCh *KeyChannel) *Model {
	t := table.New(
		table.WithColumns(columns(0)),
		table.WithFocused(false),
		table.WithHeight(tableChrome),
		table.WithWidth(tableWidth(columns(0))),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true)
	t.SetStyles(s)

	return &Model{
		keys:  newKeyMap(),
		help:  help.New(),
		table: t,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(40)),
		keyCh: keyCh,
		idle:  true,
	}
}

// columns sizes the table to width, giving spare room to the song and artist columns.
func columns(width int) []table.Column {
	artist, song, album := 20, 30, 24
	if extra := width - (2 + artist + song + album + 4 + 10); extra > 0 {
		song += extra / 2
		artist += extra / 4
		album += extra - extra/2 - extra/4
	}
	return []table.Column{
		{Title: activeMarker, Width: 2},
		{Title: "Artist", Width: artist},
		{Title: "Song", Width: song},
		{Title: "Album", Width: album},
		{Title: "Year", Width: 4},
	}
}

// tableWidth is the rendered width of cols, including each cell's padding.
func tableWidth(cols []table.Column) int {
	w := 0
	for _, c := range cols {
		w += c.Width + 2
	}
	return w
}

// rows lists the active track first, marked, followed by the upcoming queue.
func rows(snap *models.PlaybackSnapshot) []table.Row {
	if snap == nil || snap.Active == nil {
		return nil
	}

	row := func(marker string, t models.TrackRef) table.Row {
		return table.Row{marker, t.PrimaryArtist, t.Title, t.AlbumTitle, formatter.YearString(t.ReleaseYear)}
	}

	out := make([]table.Row, 0, len(snap.Upcoming)+1)
	out = append(out, row(activeMarker, *snap.Active))
	for _, t := range snap.Upcoming {
		out = append(out, row("", t))
	}
	return out
}

// Init has nothing to start; the session loop pushes the first render.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		cols := columns(msg.Width)
		m.table.SetColumns(cols)
		m.table.SetWidth(tableWidth(cols))
		m.bar.Width = max(minBarWidth, min(maxBarWidth, msg.Width-24))
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch msg.Type {
		case tea.KeyCtrlC:
			key = "q"
		case tea.KeySpace:
			key = " "
		}
		if m.keyCh != nil {
			m.keyCh.Push(key)
		}
		return m, nil

	case Msg:
		m.apply(msg)
		return m, nil
	}

	return m, nil
}

func (m *Model) apply(msg Msg) {
	switch msg.kind {
	case MsgSnapshot:
		data := msg.data.(struct {
			snapshot models.PlaybackSnapshot
			paused   bool
		})
		snap := data.snapshot
		m.snapshot = &snap
		m.paused = data.paused
		m.idle = false
		r := rows(m.snapshot)
		m.table.SetRows(r)
		m.table.SetHeight(len(r) + tableChrome)
	case MsgProgress:
		data := msg.data.(struct {
			progress models.Progress
			paused   bool
		})
		if m.snapshot != nil {
			m.snapshot.Progress = data.progress
		}
		m.paused = data.paused
	case MsgIdle:
		m.snapshot = nil
		m.idle = true
		m.table.SetRows(nil)
		m.table.SetHeight(tableChrome)
	case MsgStatus:
		m.status = msg.data.(string)
	}
}

// View renders the title, track table, progress bar, status line and key help.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Now Playing"))
	b.WriteString("\n")

	if m.idle || m.snapshot == nil {
		b.WriteString(styles.help.Render(idleText))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n\n")
		b.WriteString(m.progressLine())
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) progressLine() string {
	p := m.snapshot.Progress
	if !p.Known {
		return fmt.Sprintf("%s  %s", styles.help.Render(unknownLength), playState(m.paused))
	}
	return fmt.Sprintf("%s %s  %s", m.bar.ViewAs(p.Fraction), formatter.ProgressString(p), playState(m.paused))
}

// package formatter renders playback data as plain text, Markdown and CSV for non-interactive output
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/services"
)

// YearString renders a release year, empty when unknown.
func YearString(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}

// ProgressString renders progress as a percentage, or "--" when the duration is unknown.
func ProgressString(p models.Progress) string {
	if !p.Known {
		return "--"
	}
	return fmt.Sprintf("%d%%", int(p.Fraction*100+0.5))
}

// TrackLine renders "Artist - Title (Album, Year)", omitting unknown parts.
func TrackLine(t models.TrackRef) string {
	line := t.Title
	if t.PrimaryArtist != "" {
		line = fmt.Sprintf("%s - %s", t.PrimaryArtist, t.Title)
	}

	switch year := YearString(t.ReleaseYear); {
	case t.AlbumTitle != "" && year != "":
		line = fmt.Sprintf("%s (%s, %s)", line, t.AlbumTitle, year)
	case t.AlbumTitle != "":
		line = fmt.Sprintf("%s (%s)", line, t.AlbumTitle)
	case year != "":
		line = fmt.Sprintf("%s (%s)", line, year)
	}
	return line
}

// SnapshotToText renders the active track, its progress and the upcoming queue.
func SnapshotToText(snap *models.PlaybackSnapshot) []byte {
	var buf bytes.Buffer

	if snap == nil || snap.Active == nil {
		buf.WriteString("Nothing playing\n")
		return buf.Bytes()
	}

	state := "Playing"
	if !snap.Playing {
		state = "Paused"
	}

	buf.WriteString(fmt.Sprintf("%s: %s [%s]\n", state, TrackLine(*snap.Active), ProgressString(snap.Progress)))

	if len(snap.Upcoming) > 0 {
		buf.WriteString("\nUp next:\n")
		for i, t := range snap.Upcoming {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, TrackLine(t)))
		}
	}

	return buf.Bytes()
}

// SnapshotToMarkdown renders the snapshot as a Markdown table with the active track first.
func SnapshotToMarkdown(snap *models.PlaybackSnapshot) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Now Playing\n\n")
	if snap == nil || snap.Active == nil {
		buf.WriteString("Nothing playing\n")
		return buf.Bytes()
	}

	buf.WriteString(fmt.Sprintf("**Progress**: %s\n\n", ProgressString(snap.Progress)))
	buf.WriteString("| | Artist | Song | Album | Year |\n|---|---|---|---|---|\n")

	row := func(marker string, t models.TrackRef) {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n", marker, t.PrimaryArtist, t.Title, t.AlbumTitle, YearString(t.ReleaseYear)))
	}
	row("♪", *snap.Active)
	for _, t := range snap.Upcoming {
		row("", t)
	}

	return buf.Bytes()
}

// QueueToCSV converts the snapshot to CSV with columns: Position, ID, Artist, Title, Album, Year.
// Position 0 is the active track.
func QueueToCSV(snap *models.PlaybackSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "ID", "Artist", "Title", "Album", "Year"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	var tracks []models.TrackRef
	if snap != nil && snap.Active != nil {
		tracks = append(tracks, *snap.Active)
		tracks = append(tracks, snap.Upcoming...)
	}

	for i, t := range tracks {
		record := []string{strconv.Itoa(i), t.ID, t.PrimaryArtist, t.Title, t.AlbumTitle, YearString(t.ReleaseYear)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// DevicesToText lists devices, marking the active one and showing when cached ones were last seen.
func DevicesToText(devices []models.Device) []byte {
	var buf bytes.Buffer

	if len(devices) == 0 {
		buf.WriteString("No devices found\n")
		return buf.Bytes()
	}

	for _, d := range devices {
		marker := " "
		if d.Active {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s (%s) %s", marker, d.Name, d.Type, d.ID)
		if !d.Active && !d.LastSeen.IsZero() {
			line += fmt.Sprintf(" last seen %s", d.LastSeen.Local().Format(time.DateTime))
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes()
}

// DevicesToCSV converts devices to CSV with columns: ID, Name, Type, Active, LastSeen.
func DevicesToCSV(devices []models.Device) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Type", "Active", "LastSeen"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, d := range devices {
		seen := ""
		if !d.LastSeen.IsZero() {
			seen = d.LastSeen.UTC().Format(time.RFC3339)
		}
		if err := writer.Write([]string{d.ID, d.Name, d.Type, strconv.FormatBool(d.Active), seen}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// PlaylistsToText lists playlists with their context URIs for use with play --context.
func PlaylistsToText(playlists []services.Playlist) []byte {
	var buf bytes.Buffer

	for i, p := range playlists {
		buf.WriteString(fmt.Sprintf("%d. %s (%d tracks) %s\n", i+1, p.Name, p.TrackCount, p.URI))
	}

	return buf.Bytes()
}

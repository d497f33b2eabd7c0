package formatter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/services"
)

func testSnapshot() *models.PlaybackSnapshot {
	return &models.PlaybackSnapshot{
		Active:   &models.TrackRef{ID: "t1", Title: "Song One", PrimaryArtist: "Artist One", AlbumTitle: "Album One", ReleaseYear: 1999},
		Progress: models.Progress{Fraction: 0.423, Known: true},
		Playing:  true,
		Upcoming: []models.TrackRef{
			{ID: "t2", Title: "Song Two", PrimaryArtist: "Artist Two"},
			{ID: "t3", Title: "Song, Three", PrimaryArtist: "Artist Three", ReleaseYear: 2004},
		},
	}
}

func TestTrackLine(t *testing.T) {
	tt := []struct {
		name  string
		track models.TrackRef
		want  string
	}{
		{name: "full", track: models.TrackRef{Title: "S", PrimaryArtist: "A", AlbumTitle: "B", ReleaseYear: 2001}, want: "A - S (B, 2001)"},
		{name: "no year", track: models.TrackRef{Title: "S", PrimaryArtist: "A", AlbumTitle: "B"}, want: "A - S (B)"},
		{name: "year only", track: models.TrackRef{Title: "S", PrimaryArtist: "A", ReleaseYear: 2001}, want: "A - S (2001)"},
		{name: "title only", track: models.TrackRef{Title: "S"}, want: "S"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := TrackLine(tc.track); got != tc.want {
				t.Errorf("TrackLine() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestProgressString(t *testing.T) {
	if got := ProgressString(models.Progress{Fraction: 0.5, Known: true}); got != "50%" {
		t.Errorf("expected 50%%, got %s", got)
	}
	if got := ProgressString(models.Progress{}); got != "--" {
		t.Errorf("expected indeterminate marker, got %s", got)
	}
}

func TestExporters(t *testing.T) {
	t.Run("SnapshotToText", func(t *testing.T) {
		output := string(SnapshotToText(testSnapshot()))

		if !strings.Contains(output, "Playing: Artist One - Song One (Album One, 1999) [42%]") {
			t.Errorf("missing active line, got: %s", output)
		}
		if !strings.Contains(output, "1. Artist Two - Song Two") {
			t.Errorf("missing upcoming entry, got: %s", output)
		}
	})

	t.Run("SnapshotToTextIdle", func(t *testing.T) {
		if got := string(SnapshotToText(nil)); got != "Nothing playing\n" {
			t.Errorf("unexpected idle output %q", got)
		}
	})

	t.Run("SnapshotToTextPaused", func(t *testing.T) {
		snap := testSnapshot()
		snap.Playing = false
		if !strings.HasPrefix(string(SnapshotToText(snap)), "Paused:") {
			t.Error("expected paused prefix")
		}
	})

	t.Run("SnapshotToMarkdown", func(t *testing.T) {
		output := string(SnapshotToMarkdown(testSnapshot()))

		if !strings.Contains(output, "| ♪ | Artist One | Song One | Album One | 1999 |") {
			t.Errorf("missing active row, got: %s", output)
		}
		if strings.Count(output, "\n|") != 4 {
			t.Errorf("expected header, separator and three rows, got: %s", output)
		}
	})

	t.Run("QueueToCSV", func(t *testing.T) {
		data, err := QueueToCSV(testSnapshot())
		if err != nil {
			t.Fatalf("QueueToCSV failed: %v", err)
		}

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}

		if len(records) != 4 {
			t.Fatalf("expected header and 3 rows, got %d", len(records))
		}
		if records[3][3] != "Song, Three" {
			t.Errorf("expected quoted title to survive, got %q", records[3][3])
		}
		if records[2][5] != "" {
			t.Errorf("expected empty year for unknown release, got %q", records[2][5])
		}
	})

	t.Run("DevicesToText", func(t *testing.T) {
		devices := []models.Device{
			{ID: "d1", Name: "Desk", Type: "Computer", Active: true},
			{ID: "d2", Name: "Kitchen", Type: "Speaker", LastSeen: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)},
		}

		output := string(DevicesToText(devices))
		if !strings.Contains(output, "* Desk (Computer) d1") {
			t.Errorf("missing active marker, got: %s", output)
		}
		if !strings.Contains(output, "last seen") {
			t.Errorf("missing last seen for cached device, got: %s", output)
		}

		if got := string(DevicesToText(nil)); got != "No devices found\n" {
			t.Errorf("unexpected empty output %q", got)
		}
	})

	t.Run("DevicesToCSV", func(t *testing.T) {
		data, err := DevicesToCSV([]models.Device{{ID: "d1", Name: "Desk", Type: "Computer", Active: true}})
		if err != nil {
			t.Fatalf("DevicesToCSV failed: %v", err)
		}
		if !strings.Contains(string(data), "d1,Desk,Computer,true,") {
			t.Errorf("unexpected CSV %s", data)
		}
	})

	t.Run("PlaylistsToText", func(t *testing.T) {
		output := string(PlaylistsToText([]services.Playlist{{Name: "Mix", TrackCount: 12, URI: "spotify:playlist:abc"}}))
		if output != "1. Mix (12 tracks) spotify:playlist:abc\n" {
			t.Errorf("unexpected output %q", output)
		}
	})
}

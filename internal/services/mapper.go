package services

import (
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/spotx/internal/models"
)

// mapTrack converts a wire track to the fields the view renders. Only the first credited
// artist is kept.
func mapTrack(st SpotifyTrack) models.TrackRef {
	tr := models.TrackRef{
		ID:          st.ID,
		Title:       st.Name,
		AlbumTitle:  st.Album.Name,
		ReleaseYear: releaseYear(st.Album.ReleaseDate),
	}
	if len(st.Artists) > 0 {
		tr.PrimaryArtist = st.Artists[0].Name
	}
	return tr
}

// releaseYear reads the year from a release date of any precision (YYYY, YYYY-MM, YYYY-MM-DD).
// Unknown dates yield 0.
func releaseYear(date string) int {
	y, _, _ := strings.Cut(date, "-")
	year, err := strconv.Atoi(y)
	if err != nil || year <= 0 {
		return 0
	}
	return year
}

func mapDevice(d SpotifyDevice) models.Device {
	return models.Device{ID: d.ID, Name: d.Name, Type: d.Type, Active: d.IsActive}
}

// MergeDevices combines live devices with remembered ones. Live entries win on ID collision;
// remembered-only entries are marked inactive. The result lists active devices first, then
// orders by name and ID.
func MergeDevices(live, remembered []models.Device) []models.Device {
	byID := make(map[string]models.Device, len(live)+len(remembered))
	for _, d := range remembered {
		if d.ID == "" {
			continue
		}
		d.Active = false
		byID[d.ID] = d
	}
	for _, d := range live {
		if d.ID == "" {
			continue
		}
		if prev, ok := byID[d.ID]; ok && d.LastSeen.IsZero() {
			d.LastSeen = prev.LastSeen
		}
		byID[d.ID] = d
	}

	merged := make([]models.Device, 0, len(byID))
	for _, d := range byID {
		merged = append(merged, d)
	}

	slices.SortFunc(merged, func(a, b models.Device) int {
		if a.Active != b.Active {
			if a.Active {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return merged
}

// ActiveDevice returns the first active device, if any.
func ActiveDevice(devices []models.Device) (models.Device, bool) {
	for _, d := range devices {
		if d.Active {
			return d, true
		}
	}
	return models.Device{}, false
}

package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
)

// DeviceRepository caches previously seen playback devices.
//
// The cache is a hint, never authoritative: entries read back are always inactive.
type DeviceRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewDeviceRepository creates a new [DeviceRepository] with the given database connection
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db, now: time.Now}
}

// Remember upserts devices, stamping them with the current time.
func (r *DeviceRepository) Remember(devices []models.Device) error {
	if len(devices) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrStorage, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO devices (id, name, type, last_seen) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			last_seen = excluded.last_seen
	`

	seen := formatTime(r.now())
	for _, d := range devices {
		if d.ID == "" {
			continue
		}
		if _, err := tx.Exec(query, d.ID, d.Name, d.Type, seen); err != nil {
			return fmt.Errorf("%w: failed to cache device %s: %v", shared.ErrStorage, d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit devices: %v", shared.ErrStorage, err)
	}
	return nil
}

// List returns every cached device ordered by name then id.
func (r *DeviceRepository) List() ([]models.Device, error) {
	rows, err := r.db.Query("SELECT id, name, type, last_seen FROM devices ORDER BY name ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query devices: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var (
			d        models.Device
			lastSeen string
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &lastSeen); err != nil {
			return nil, fmt.Errorf("%w: failed to scan device: %v", shared.ErrStorage, err)
		}
		if d.LastSeen, err = parseTime(lastSeen); err != nil {
			return nil, fmt.Errorf("%w: corrupt last_seen for %s: %v", shared.ErrStorage, d.ID, err)
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}
	return devices, nil
}

// Forget removes a cached device.
func (r *DeviceRepository) Forget(id string) error {
	result, err := r.db.Exec("DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete device: %v", shared.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrStorage, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: device %s", shared.ErrNotFound, id)
	}
	return nil
}

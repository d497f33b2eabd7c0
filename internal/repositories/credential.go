package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
)

// CredentialRepository persists one [models.Credential] per identity and the single
// [models.ClientSecretPair] in SQLite.
//
// Writes replace whole records. Missing records return [shared.ErrNotFound]; every other
// database failure wraps [shared.ErrStorage].
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get retrieves the credential stored for identity.
func (r *CredentialRepository) Get(identity string) (*models.Credential, error) {
	query := `
		SELECT identity, access_secret, refresh_secret, scopes, expires_at
		FROM credentials
		WHERE identity = ?
	`

	var (
		cred      models.Credential
		scopes    string
		expiresAt string
	)

	err := r.db.QueryRow(query, identity).Scan(&cred.Identity, &cred.AccessSecret, &cred.RefreshSecret, &scopes, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no credential for %s", shared.ErrNotFound, identity)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query credential: %v", shared.ErrStorage, err)
	}

	cred.Scopes = models.ParseScopes(scopes)
	if cred.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("%w: corrupt expiry for %s: %v", shared.ErrStorage, identity, err)
	}

	return &cred, nil
}

// Put inserts or overwrites the credential for cred.Identity.
func (r *CredentialRepository) Put(cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO credentials (identity, access_secret, refresh_secret, scopes, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			access_secret = excluded.access_secret,
			refresh_secret = excluded.refresh_secret,
			scopes = excluded.scopes,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, cred.Identity, cred.AccessSecret, cred.RefreshSecret, cred.ScopeString(), formatTime(cred.ExpiresAt), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: failed to write credential: %v", shared.ErrStorage, err)
	}
	return nil
}

// ListIdentities returns every identity with a stored credential, sorted.
func (r *CredentialRepository) ListIdentities() ([]string, error) {
	rows, err := r.db.Query("SELECT identity FROM credentials ORDER BY identity ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query identities: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var identities []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: failed to scan identity: %v", shared.ErrStorage, err)
		}
		identities = append(identities, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}
	return identities, nil
}

// GetClientSecretPair retrieves the process-wide client registration.
func (r *CredentialRepository) GetClientSecretPair() (*models.ClientSecretPair, error) {
	var pair models.ClientSecretPair
	err := r.db.QueryRow("SELECT client_id, client_secret FROM client_secrets WHERE id = 1").Scan(&pair.ClientID, &pair.ClientSecret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no client secret pair stored", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query client secret pair: %v", shared.ErrStorage, err)
	}
	return &pair, nil
}

// PutClientSecretPair overwrites the process-wide client registration.
func (r *CredentialRepository) PutClientSecretPair(pair *models.ClientSecretPair) error {
	if err := pair.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO client_secrets (id, client_id, client_secret, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			client_secret = excluded.client_secret,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, pair.ClientID, pair.ClientSecret, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: failed to write client secret pair: %v", shared.ErrStorage, err)
	}
	return nil
}

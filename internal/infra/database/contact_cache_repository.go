package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/xavierca1/lead-prospector/internal/entity"
)

// ContactCacheRepository keeps Apollo people-search results per domain so
// repeated signals from the same company don't burn search credits.
type ContactCacheRepository struct {
	DB     *sql.DB
	Expiry time.Duration
}

func NewContactCacheRepository(db *sql.DB, expiry time.Duration) *ContactCacheRepository {
	return &ContactCacheRepository{DB: db, Expiry: expiry}
}

// Get returns the cached candidates for a domain, or nil on miss.
// Expired entries are deleted on read.
func (r *ContactCacheRepository) Get(ctx context.Context, domain string) ([]entity.Contact, error) {
	query := `SELECT contacts, fetched_at FROM company_cache WHERE domain = $1`

	var (
		contactsJSON []byte
		fetchedAt    time.Time
	)
	err := r.DB.QueryRowContext(ctx, query, domain).Scan(&contactsJSON, &fetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if time.Since(fetchedAt) > r.Expiry {
		_, _ = r.DB.ExecContext(ctx, `DELETE FROM company_cache WHERE domain = $1`, domain)
		return nil, nil
	}

	var contacts []entity.Contact
	if err := json.Unmarshal(contactsJSON, &contacts); err != nil {
		return nil, err
	}

	return contacts, nil
}

func (r *ContactCacheRepository) Put(ctx context.Context, domain string, contacts []entity.Contact) error {
	contactsJSON, err := json.Marshal(contacts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO company_cache (domain, contacts, fetched_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (domain)
		DO UPDATE SET contacts = EXCLUDED.contacts, fetched_at = NOW()
	`

	_, err = r.DB.ExecContext(ctx, query, domain, contactsJSON)
	return err
}

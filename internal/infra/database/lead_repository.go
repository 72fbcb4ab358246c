package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xavierca1/lead-prospector/internal/entity"
)

// LeadRepository is the single source of truth for workflow state.
// Every mutation after Create goes through UpdateCAS, so concurrent
// webhook deliveries and button clicks race on the version column
// instead of on locks.
type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	signalJSON, err := json.Marshal(lead.Signal)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	contactsJSON, err := json.Marshal(lead.Contacts)
	if err != nil {
		return fmt.Errorf("marshal contacts: %w", err)
	}

	query := `
		INSERT INTO leads (identity, state, signal, contacts, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, NOW(), NOW())
		RETURNING version, created_at, updated_at
	`

	err = r.DB.QueryRowContext(ctx, query,
		lead.Identity,
		lead.State,
		signalJSON,
		contactsJSON,
	).Scan(&lead.Version, &lead.CreatedAt, &lead.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return entity.ErrDuplicateLead
		}
		log.Printf("❌ [REPO LEAD] insert failed: %v", err)
		return err
	}

	return nil
}

func (r *LeadRepository) FindByIdentity(ctx context.Context, identity string) (*entity.Lead, error) {
	query := selectLeadQuery + ` WHERE identity = $1`

	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, identity))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrLeadNotFound
		}
		return nil, err
	}

	return lead, nil
}

func (r *LeadRepository) ListByState(ctx context.Context, state string) ([]*entity.Lead, error) {
	query := selectLeadQuery + ` WHERE state = $1 ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	return leads, rows.Err()
}

// UpdateCAS is the only write path after insert. The WHERE clause carries
// the version read before mutation; zero rows affected means someone else
// committed first and the caller must re-read.
//
// enrollment_ref is guarded in SQL too: once non-empty it can never be
// cleared or replaced, whatever the caller hands in.
func (r *LeadRepository) UpdateCAS(ctx context.Context, lead *entity.Lead, expectedVersion int) error {
	contactsJSON, err := json.Marshal(lead.Contacts)
	if err != nil {
		return fmt.Errorf("marshal contacts: %w", err)
	}
	historyJSON, err := json.Marshal(lead.DraftHistory)
	if err != nil {
		return fmt.Errorf("marshal draft history: %w", err)
	}

	var cardChannel, cardTS string
	if lead.Card != nil {
		cardChannel = lead.Card.Channel
		cardTS = lead.Card.MessageTS
	}

	query := `
		UPDATE leads SET
			state            = $1,
			contacts         = $2,
			draft_subject    = $3,
			draft_body       = $4,
			draft_version    = $5,
			draft_history    = $6,
			regenerate_count = $7,
			card_channel     = $8,
			card_ts          = $9,
			enrollment_ref   = CASE WHEN enrollment_ref = '' THEN $10 ELSE enrollment_ref END,
			last_error       = $11,
			last_attempt_at  = $12,
			version          = version + 1,
			updated_at       = NOW()
		WHERE identity = $13 AND version = $14
	`

	res, err := r.DB.ExecContext(ctx, query,
		lead.State,
		contactsJSON,
		lead.Draft.Subject,
		lead.Draft.Body,
		lead.Draft.Version,
		historyJSON,
		lead.RegenerateCount,
		cardChannel,
		cardTS,
		lead.EnrollmentRef,
		lead.LastError,
		lead.LastAttemptAt,
		lead.Identity,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("cas update failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		// Either the row is gone (never happens, leads are not deleted)
		// or a concurrent writer bumped the version first.
		if _, findErr := r.FindByIdentity(ctx, lead.Identity); findErr != nil {
			return findErr
		}
		return entity.ErrVersionConflict
	}

	lead.Version = expectedVersion + 1
	return nil
}

const selectLeadQuery = `
	SELECT
		identity, state, signal, contacts,
		draft_subject, draft_body, draft_version, draft_history,
		regenerate_count, card_channel, card_ts,
		enrollment_ref, last_error, last_attempt_at,
		version, created_at, updated_at
	FROM leads`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		lead         entity.Lead
		signalJSON   []byte
		contactsJSON []byte
		historyJSON  []byte
		cardChannel  string
		cardTS       string
		lastAttempt  sql.NullTime
	)

	err := row.Scan(
		&lead.Identity, &lead.State, &signalJSON, &contactsJSON,
		&lead.Draft.Subject, &lead.Draft.Body, &lead.Draft.Version, &historyJSON,
		&lead.RegenerateCount, &cardChannel, &cardTS,
		&lead.EnrollmentRef, &lead.LastError, &lastAttempt,
		&lead.Version, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(signalJSON, &lead.Signal); err != nil {
		return nil, fmt.Errorf("unmarshal signal: %w", err)
	}
	if err := json.Unmarshal(contactsJSON, &lead.Contacts); err != nil {
		return nil, fmt.Errorf("unmarshal contacts: %w", err)
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &lead.DraftHistory); err != nil {
			return nil, fmt.Errorf("unmarshal draft history: %w", err)
		}
	}

	if cardTS != "" {
		lead.Card = &entity.CardRef{Channel: cardChannel, MessageTS: cardTS}
	}
	if lastAttempt.Valid {
		t := lastAttempt.Time
		lead.LastAttemptAt = &t
	}

	return &lead, nil
}

package worker

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/xavierca1/lead-prospector/internal/infra/queue"
)

// EnrollmentPublisher re-drives approved leads whose original enqueue
// was lost.
type EnrollmentPublisher interface {
	PublishEnrollment(ctx context.Context, payload queue.EnrollmentPayload) error
}

// StaleLeadJanitor sweeps leads stuck in a non-terminal state without an
// owner: an ENROLLING claim that outlived the claim window (worker
// crashed mid-enrollment) is moved to FAILED with a recorded reason, and
// an APPROVED lead whose enrollment job never made it onto the queue is
// re-published.
type StaleLeadJanitor struct {
	db           *sql.DB
	publisher    EnrollmentPublisher
	claimWindow  time.Duration
	tickInterval time.Duration
}

func NewStaleLeadJanitor(db *sql.DB, publisher EnrollmentPublisher, claimWindow time.Duration) *StaleLeadJanitor {
	return &StaleLeadJanitor{
		db:           db,
		publisher:    publisher,
		claimWindow:  claimWindow,
		tickInterval: 1 * time.Minute,
	}
}

func (w *StaleLeadJanitor) Start(ctx context.Context) {
	log.Printf("🕒 Stale lead janitor started (%s claim window)", w.claimWindow)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Stale lead janitor stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *StaleLeadJanitor) sweep(ctx context.Context) {
	w.failStaleEnrolling(ctx)
	w.republishStaleApproved(ctx)
	w.logStalePending(ctx)
}

func (w *StaleLeadJanitor) failStaleEnrolling(ctx context.Context) {
	// The version bump keeps this honest with concurrent CAS writers:
	// a committer finishing at the same moment loses or wins the row
	// exactly like any other writer.
	query := `
		UPDATE leads
		SET
			state           = 'FAILED',
			last_error      = 'enrollment claim expired without a result',
			last_attempt_at = NOW(),
			version         = version + 1,
			updated_at      = NOW()
		WHERE
			state = 'ENROLLING'
			AND enrollment_ref = ''
			AND updated_at < NOW() - $1::interval
		RETURNING identity
	`

	rows, err := w.db.QueryContext(ctx, query, w.claimWindow.String())
	if err != nil {
		log.Printf("❌ Janitor sweep failed: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			log.Printf("❌ Janitor scan failed: %v", err)
			return
		}
		log.Printf("🧹 Janitor: lead %.12s had a stale ENROLLING claim, marked FAILED", identity)
	}
}

// republishStaleApproved re-enqueues APPROVED leads nobody picked up
// within the claim window, which means the original enqueue after the
// approve was lost. Bumping updated_at first keeps the lead out of the
// next sweep; a lost re-publish is picked up one window later.
func (w *StaleLeadJanitor) republishStaleApproved(ctx context.Context) {
	query := `
		UPDATE leads
		SET
			last_attempt_at = NOW(),
			version         = version + 1,
			updated_at      = NOW()
		WHERE
			state = 'APPROVED'
			AND updated_at < NOW() - $1::interval
		RETURNING identity, signal->>'company'
	`

	rows, err := w.db.QueryContext(ctx, query, w.claimWindow.String())
	if err != nil {
		log.Printf("❌ Janitor sweep failed: %v", err)
		return
	}
	defer rows.Close()

	type job struct{ identity, company string }
	var jobs []job
	for rows.Next() {
		var j job
		if err := rows.Scan(&j.identity, &j.company); err != nil {
			log.Printf("❌ Janitor scan failed: %v", err)
			return
		}
		jobs = append(jobs, j)
	}

	for _, j := range jobs {
		payload := queue.EnrollmentPayload{
			Identity: j.identity,
			Company:  j.company,
			Origin:   "JANITOR_RETRY",
		}
		if err := w.publisher.PublishEnrollment(ctx, payload); err != nil {
			log.Printf("❌ Janitor: re-publish failed for lead %.12s: %v", j.identity, err)
			continue
		}
		log.Printf("🧹 Janitor: re-published lost enrollment job for lead %.12s", j.identity)
	}
}

// logStalePending just counts review cards nobody touched in a day.
// Visibility only, no state change. A slow reviewer is not an error.
func (w *StaleLeadJanitor) logStalePending(ctx context.Context) {
	var count int
	query := `SELECT COUNT(*) FROM leads WHERE state = 'PENDING_REVIEW' AND updated_at < NOW() - INTERVAL '24 hours'`

	if err := w.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return
	}

	if count > 0 {
		log.Printf("⏰ Janitor: %d leads waiting for review for more than 24h", count)
	}
}

package entity

import (
	"context"
	"time"
)

// Workflow states. Terminal states are never left once entered.
const (
	StateNew           = "NEW"
	StateDrafting      = "DRAFTING"
	StatePendingReview = "PENDING_REVIEW"
	StateEditing       = "EDITING"
	StateApproved      = "APPROVED"
	StateEnrolling     = "ENROLLING"
	StateEnrolled      = "ENROLLED"
	StateSkipped       = "SKIPPED"
	StateFailed        = "FAILED"
)

// Signal is the immutable snapshot of the RepoRadar event that opened this lead.
type Signal struct {
	Company   string   `json:"company"`
	Domain    string   `json:"domain"`
	Type      string   `json:"signal_type"`
	Summary   string   `json:"signal_summary"`
	Languages []string `json:"languages,omitempty"`
	Author    string   `json:"author,omitempty"`
	URL       string   `json:"url,omitempty"`
}

// Contact is one candidate resolved from Apollo for the signalled company.
type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Email    string `json:"email,omitempty"`
	LinkedIn string `json:"linkedin_url,omitempty"`
}

// Draft is the AI-generated outreach email attached to a lead.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Version int    `json:"version"`
}

// CardRef points at the Slack approval card so re-renders overwrite the
// same message instead of posting a new one.
type CardRef struct {
	Channel   string `json:"channel"`
	MessageTS string `json:"message_ts"`
}

// Lead is the unit of workflow state. One row per identity, mutated only
// through version-guarded writes.
type Lead struct {
	Identity        string    `json:"identity"`
	State           string    `json:"state"`
	Signal          Signal    `json:"signal"`
	Contacts        []Contact `json:"contacts"`
	Draft           Draft     `json:"draft"`
	DraftHistory    []Draft   `json:"draft_history,omitempty"`
	RegenerateCount int       `json:"regenerate_count"`
	Card            *CardRef  `json:"card,omitempty"`

	// EnrollmentRef is set exactly once, when the Apollo sequence call
	// succeeds. Its presence is the at-most-once guard, independent of State.
	EnrollmentRef string `json:"enrollment_ref,omitempty"`

	LastError     string     `json:"last_error,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the lead reached a state it never leaves.
func (l *Lead) IsTerminal() bool {
	switch l.State {
	case StateEnrolled, StateSkipped, StateFailed:
		return true
	}
	return false
}

// BestContact returns the top-ranked candidate, or nil when Apollo found nobody.
func (l *Lead) BestContact() *Contact {
	if len(l.Contacts) == 0 {
		return nil
	}
	return &l.Contacts[0]
}

// PushDraft replaces the current draft, bumping the version and keeping
// the old one in history.
func (l *Lead) PushDraft(subject, body string) {
	if l.Draft.Version > 0 {
		l.DraftHistory = append(l.DraftHistory, l.Draft)
	}
	l.Draft = Draft{
		Subject: subject,
		Body:    body,
		Version: l.Draft.Version + 1,
	}
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	FindByIdentity(ctx context.Context, identity string) (*Lead, error)
	ListByState(ctx context.Context, state string) ([]*Lead, error)

	// UpdateCAS persists the lead only if the stored version still equals
	// expectedVersion. On success the lead's Version is bumped. Returns
	// ErrVersionConflict when another writer got there first.
	UpdateCAS(ctx context.Context, lead *Lead, expectedVersion int) error
}

package usecase

import (
	"context"

	"github.com/xavierca1/lead-prospector/internal/entity"
	"github.com/xavierca1/lead-prospector/internal/infra/integration/apollo"
	"github.com/xavierca1/lead-prospector/internal/infra/queue"
)

// ContactDirectory is the Apollo surface the workflow consumes.
type ContactDirectory interface {
	SearchPeople(ctx context.Context, domain string) ([]entity.Contact, error)

	// FindContactByEmail returns the existing contact ID, or "" when none
	// exists. This is the pre-existence check that keeps retried
	// enrollments from creating duplicate contacts.
	FindContactByEmail(ctx context.Context, email string) (string, error)

	CreateContact(ctx context.Context, input apollo.CreateContactInput) (string, error)

	// AddToSequence enrolls the contact and returns the enrollment ref.
	// idempotencyKey is the lead identity.
	AddToSequence(ctx context.Context, contactID, idempotencyKey string) (string, error)
}

// DraftGenerator produces outreach copy. Implementations decide which
// AI provider answers; callers only see text or an error.
type DraftGenerator interface {
	Generate(ctx context.Context, lead *entity.Lead) (subject, body string, err error)
}

// CardPublisher renders workflow state to the review channel.
type CardPublisher interface {
	PostCard(ctx context.Context, lead *entity.Lead) (*entity.CardRef, error)

	// RefreshCard re-renders the existing card in place. No-op when the
	// lead never got a card.
	RefreshCard(ctx context.Context, lead *entity.Lead) error

	OpenEditForm(ctx context.Context, lead *entity.Lead, triggerID string) error
}

type EnrollmentQueueInterface interface {
	PublishEnrollment(ctx context.Context, payload queue.EnrollmentPayload) error
}

// AlertSender notifies a human when a lead lands in FAILED.
type AlertSender interface {
	SendLeadFailed(lead *entity.Lead, reason string) error
}

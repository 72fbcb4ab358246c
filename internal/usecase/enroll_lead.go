package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/xavierca1/lead-prospector/internal/entity"
	"github.com/xavierca1/lead-prospector/internal/infra/integration/apollo"
)

// EnrollLeadUseCase commits the irreversible side effect: contact creation
// plus sequence enrollment in Apollo. The APPROVED→ENROLLING compare-and-swap
// is the at-most-once lock: only one caller can win that write, everyone
// else sees the claim and backs off.
type EnrollLeadUseCase struct {
	Leads     entity.LeadRepositoryInterface
	Directory ContactDirectory
	Cards     CardPublisher
	Alerts    AlertSender

	MaxAttempts int
	BaseBackoff time.Duration

	// sleep is swapped out in tests so backoff doesn't slow the suite.
	sleep func(time.Duration)
}

func NewEnrollLeadUseCase(
	leads entity.LeadRepositoryInterface,
	directory ContactDirectory,
	cards CardPublisher,
	alerts AlertSender,
) *EnrollLeadUseCase {
	return &EnrollLeadUseCase{
		Leads:       leads,
		Directory:   directory,
		Cards:       cards,
		Alerts:      alerts,
		MaxAttempts: 3,
		BaseBackoff: time.Second,
		sleep:       time.Sleep,
	}
}

// Execute is safe to call any number of times for the same identity;
// at most one enrollment ever takes effect.
func (uc *EnrollLeadUseCase) Execute(ctx context.Context, identity string) error {
	lead, err := uc.Leads.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return &DomainError{Code: CodeNotFound, Message: "no lead for identity " + identity}
		}
		return &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}

	// The authoritative guard. Whatever state says, a set ref means the
	// side effect already happened.
	if lead.EnrollmentRef != "" {
		log.Printf("✔️ [ENROLL] Lead %s already enrolled (%s), nothing to do", shortID(identity), lead.EnrollmentRef)
		return nil
	}

	if lead.State != entity.StateApproved {
		// ENROLLING means another worker holds the claim; terminal states
		// mean the workflow resolved some other way. Either way: not ours.
		log.Printf("↩️ [ENROLL] Lead %s is %s, skipping enrollment attempt", shortID(identity), lead.State)
		return nil
	}

	// Claim the attempt. Losing this write means someone else owns it.
	expected := lead.Version
	lead.State = entity.StateEnrolling
	if err := uc.Leads.UpdateCAS(ctx, lead, expected); err != nil {
		if errors.Is(err, entity.ErrVersionConflict) {
			log.Printf("↩️ [ENROLL] Lost the claim race for %s, backing off", shortID(identity))
			return nil
		}
		return &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}

	contact := lead.BestContact()
	if contact == nil {
		return uc.fail(ctx, lead, "no contact candidate to enroll")
	}

	ref, err := uc.enrollWithRetry(ctx, lead, contact)
	if err != nil {
		return uc.fail(ctx, lead, err.Error())
	}

	now := time.Now()
	lead.EnrollmentRef = ref
	lead.State = entity.StateEnrolled
	lead.LastError = ""
	lead.LastAttemptAt = &now
	if err := uc.saveFinal(ctx, lead); err != nil {
		return err
	}

	log.Printf("🚀 [ENROLL] Lead %s enrolled: %s now in sequence (%s)", shortID(lead.Identity), contact.Name, ref)

	if err := uc.Cards.RefreshCard(ctx, lead); err != nil {
		log.Printf("⚠️ [ENROLL] Card refresh failed for %s: %v", shortID(lead.Identity), err)
	}

	return nil
}

// enrollWithRetry runs the two Apollo calls under the retry budget.
// Transient failures back off exponentially; permanent ones stop at once.
func (uc *EnrollLeadUseCase) enrollWithRetry(ctx context.Context, lead *entity.Lead, contact *entity.Contact) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= uc.MaxAttempts; attempt++ {
		if attempt > 1 {
			uc.sleep(uc.BaseBackoff << (attempt - 2))
		}

		ref, err := uc.enrollOnce(ctx, lead, contact)
		if err == nil {
			return ref, nil
		}

		lastErr = err
		if !isTransient(err) {
			return "", fmt.Errorf("permanent enrollment error: %w", err)
		}

		log.Printf("⚠️ [ENROLL] Attempt %d/%d failed for %s: %v", attempt, uc.MaxAttempts, shortID(lead.Identity), err)
	}

	return "", fmt.Errorf("enrollment retry budget exhausted: %w", lastErr)
}

func (uc *EnrollLeadUseCase) enrollOnce(ctx context.Context, lead *entity.Lead, contact *entity.Contact) (string, error) {
	// Existence check before create: Apollo has no idempotency key on
	// contact creation, so a retry after a timed-out create must find
	// the contact instead of duplicating it.
	contactID, err := uc.Directory.FindContactByEmail(ctx, contact.Email)
	if err != nil {
		return "", fmt.Errorf("contact lookup: %w", err)
	}

	if contactID == "" {
		firstName, lastName := splitName(contact.Name)
		contactID, err = uc.Directory.CreateContact(ctx, apollo.CreateContactInput{
			Email:            contact.Email,
			FirstName:        firstName,
			LastName:         lastName,
			Title:            contact.Title,
			OrganizationName: lead.Signal.Company,
			CustomFields: apollo.ContactCustomFields{
				PersonalizedSubject: lead.Draft.Subject,
				PersonalizedEmail:   lead.Draft.Body,
				I18nSignals:         FormatSignalSummary(lead.Signal),
			},
		})
		if err != nil {
			return "", fmt.Errorf("contact create: %w", err)
		}
	}

	ref, err := uc.Directory.AddToSequence(ctx, contactID, lead.Identity)
	if err != nil {
		return "", fmt.Errorf("sequence add: %w", err)
	}

	return ref, nil
}

func (uc *EnrollLeadUseCase) fail(ctx context.Context, lead *entity.Lead, reason string) error {
	now := time.Now()
	lead.State = entity.StateFailed
	lead.LastError = reason
	lead.LastAttemptAt = &now

	if err := uc.saveFinal(ctx, lead); err != nil {
		return err
	}

	log.Printf("❌ [ENROLL] Lead %s failed: %s", shortID(lead.Identity), reason)

	if err := uc.Cards.RefreshCard(ctx, lead); err != nil {
		log.Printf("⚠️ [ENROLL] Card refresh failed for %s: %v", shortID(lead.Identity), err)
	}
	if uc.Alerts != nil {
		if err := uc.Alerts.SendLeadFailed(lead, reason); err != nil {
			log.Printf("⚠️ [ENROLL] Failed lead alert not sent: %v", err)
		}
	}

	return nil
}

// saveFinal writes a terminal outcome. The holder of the ENROLLING claim
// is the only legal writer here, so a version conflict can only come from
// the janitor reaping a claim it thought was stale. Re-read and retry
// a couple of times rather than losing the result.
func (uc *EnrollLeadUseCase) saveFinal(ctx context.Context, lead *entity.Lead) error {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		err := uc.Leads.UpdateCAS(ctx, lead, lead.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, entity.ErrVersionConflict) {
			return &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
		}

		current, findErr := uc.Leads.FindByIdentity(ctx, lead.Identity)
		if findErr != nil {
			return &TechnicalError{Code: "DATABASE_ERROR", Message: findErr.Error()}
		}
		lead.Version = current.Version
	}

	return &TechnicalError{Code: CodeConcurrencyExhausted, Message: "could not persist terminal state for " + shortID(lead.Identity)}
}

// isTransient decides whether an enrollment error deserves another attempt.
// Timeouts and 5xx-class answers do; everything else is permanent.
func isTransient(err error) bool {
	var apiErr *apollo.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// FormatSignalSummary flattens the signal into the pipe-separated string
// stored in the Apollo custom field.
func FormatSignalSummary(s entity.Signal) string {
	parts := []string{
		"Signal: " + s.Type,
		"Summary: " + s.Summary,
	}
	if len(s.Languages) > 0 {
		parts = append(parts, "Languages: "+strings.Join(s.Languages, ", "))
	}
	if s.URL != "" {
		parts = append(parts, "URL: "+s.URL)
	}
	if s.Author != "" {
		parts = append(parts, "Author: "+s.Author)
	}
	return strings.Join(parts, " | ")
}

func splitName(full string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(full), " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

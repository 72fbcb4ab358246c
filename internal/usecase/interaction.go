package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/xavierca1/lead-prospector/internal/entity"
	"github.com/xavierca1/lead-prospector/internal/infra/queue"
)

// Reviewer actions coming off the Slack card.
const (
	ActionApprove    = "approve"
	ActionEdit       = "edit"
	ActionSubmitEdit = "submit_edit"
	ActionRegenerate = "regenerate"
	ActionSkip       = "skip"
)

// maxCASRetries bounds how often a losing interaction re-reads and tries
// again before giving up with CONCURRENCY_EXHAUSTED.
const maxCASRetries = 3

type InteractionInput struct {
	Identity  string
	Action    string
	Actor     string
	TriggerID string // Slack modal trigger, only set for edit
	Subject   string // submit_edit payload
	Body      string // submit_edit payload
}

type InteractionOutput struct {
	Identity string `json:"identity"`
	State    string `json:"state"`
	Result   string `json:"result"`
}

// HandleInteractionUseCase is the approval state machine. Every reviewer
// click lands here; all writes go through the version-guarded repository,
// so two reviewers racing on the same card resolve to exactly one winner
// and an idempotent answer for the loser.
type HandleInteractionUseCase struct {
	Leads         entity.LeadRepositoryInterface
	Generator     DraftGenerator
	Cards         CardPublisher
	Queue         EnrollmentQueueInterface
	RegenerateCap int
}

func NewHandleInteractionUseCase(
	leads entity.LeadRepositoryInterface,
	generator DraftGenerator,
	cards CardPublisher,
	enrollQueue EnrollmentQueueInterface,
	regenerateCap int,
) *HandleInteractionUseCase {
	return &HandleInteractionUseCase{
		Leads:         leads,
		Generator:     generator,
		Cards:         cards,
		Queue:         enrollQueue,
		RegenerateCap: regenerateCap,
	}
}

func (uc *HandleInteractionUseCase) Execute(ctx context.Context, input InteractionInput) (*InteractionOutput, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		lead, err := uc.Leads.FindByIdentity(ctx, input.Identity)
		if err != nil {
			if errors.Is(err, entity.ErrLeadNotFound) {
				return nil, &DomainError{Code: CodeNotFound, Message: "no lead for identity " + input.Identity}
			}
			return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
		}

		// Replay safety first: a duplicate click after the lead resolved
		// must answer calmly, not error at the reviewer.
		if out, done := uc.replaySafeAnswer(ctx, lead, input); done {
			return out, nil
		}

		out, err := uc.apply(ctx, lead, input)
		if errors.Is(err, entity.ErrVersionConflict) {
			// Someone else committed first. Re-read and decide again.
			log.Printf("🔁 [APPROVAL] Version race on %s (%s by %s), retrying", shortID(input.Identity), input.Action, input.Actor)
			continue
		}
		return out, err
	}

	return nil, &TechnicalError{
		Code:    CodeConcurrencyExhausted,
		Message: fmt.Sprintf("gave up after %d version conflicts on lead %s", maxCASRetries, shortID(input.Identity)),
	}
}

// replaySafeAnswer resolves clicks that arrive after the lead already
// moved on. Returns done=true when no transition should be attempted.
func (uc *HandleInteractionUseCase) replaySafeAnswer(ctx context.Context, lead *entity.Lead, input InteractionInput) (*InteractionOutput, bool) {
	if input.Action == ActionApprove {
		switch lead.State {
		case entity.StateApproved:
			// Duplicate approve (or a lost enqueue). Re-publishing is
			// harmless: the ENROLLING claim and enrollment_ref make the
			// committer a no-op on redelivery.
			uc.publishEnrollment(ctx, lead)
			return &InteractionOutput{Identity: lead.Identity, State: lead.State, Result: "already_approved"}, true
		case entity.StateEnrolling:
			return &InteractionOutput{Identity: lead.Identity, State: lead.State, Result: "already_approved"}, true
		case entity.StateEnrolled:
			return &InteractionOutput{Identity: lead.Identity, State: lead.State, Result: "already_enrolled"}, true
		}
	}

	if lead.IsTerminal() {
		// Card may be stale (e.g. the losing side of an approve/skip
		// race). Re-render so the reviewer sees the real outcome.
		if err := uc.Cards.RefreshCard(ctx, lead); err != nil {
			log.Printf("⚠️ [APPROVAL] Card refresh failed for %s: %v", shortID(lead.Identity), err)
		}
		return &InteractionOutput{Identity: lead.Identity, State: lead.State, Result: "already_final"}, true
	}

	return nil, false
}

func (uc *HandleInteractionUseCase) apply(ctx context.Context, lead *entity.Lead, input InteractionInput) (*InteractionOutput, error) {
	switch input.Action {
	case ActionApprove:
		return uc.approve(ctx, lead, input)
	case ActionEdit:
		return uc.edit(ctx, lead, input)
	case ActionSubmitEdit:
		return uc.submitEdit(ctx, lead, input)
	case ActionRegenerate:
		return uc.regenerate(ctx, lead, input)
	case ActionSkip:
		return uc.skip(ctx, lead, input)
	default:
		return nil, &DomainError{Code: CodeInvalidTransition, Message: "unknown action: " + input.Action}
	}
}

func (uc *HandleInteractionUseCase) approve(ctx context.Context, lead *entity.Lead, input InteractionInput) (*InteractionOutput, error) {
	if lead.State != entity.StatePendingReview {
		return nil, invalidTransition(lead, input.Action)
	}

	expected := lead.Version
	lead.State = entity.StateApproved
	if err := uc.Leads.UpdateCAS(ctx, lead, expected); err != nil {
		return nil, err
	}

	log.Printf("✅ [APPROVAL] Lead %s approved by %s", shortID(lead.Identity), input.Actor)
	uc.publishEnrollment(ctx, lead)

	if err := uc.Cards.RefreshCard(ctx, lead); err != nil {
		log.Printf("⚠️ [APPROVAL] Card refresh failed for %s: %v", shortID(lead.Identity), err)
	}

	return &InteractionOutput{Identity: lead.Identity, State: lead.State, Result: "approved"}, nil
}

func (uc *HandleInteractionUseCase) edit(ctx context.Context, lead *entity.Lead, input InteractionInput) (*InteractionOutput, error) {
	if lead.State != entity.StatePendingReview {
		return nil, invalidTransition(lead, input.Action)
	}

	expected := lead.Version
	lead.State = entity.StateEditing
	if err := uc.Leads.UpdateCAS(ctx, lead, expected); err != nil {
		return nil, err
	}

	if err := uc.Cards.OpenEditForm(ctx, lead, input.TriggerID); err != nil {
		return nil, &TechnicalError{Code: "SLACK_ERROR", Message: "could not open edit form: " + err.Error()}
	}

	return &InteractionOutput{Identity: lead.Identity, State: lead.State, Result: "edit_opened"}, nil
}

func (uc *HandleInteractionUseCase) submitEdit(ctx context.Context, lead *entity.Lead, input InteractionInput) (*InteractionOutput, error) {
	if lead.State != entity.StateEditing {
		return nil, invalidTransition(lead, input.Action)
	}

	expected := lead.Version
	lead.PushDraft(input.Subject, input.Body)
	lead.State = entity.StatePendingReview
	if err := uc.Leads.UpdateCAS(ctx, lead, expected); err != nil {
		return nil, err
	}

	log.Printf("✏️ [APPROVAL] Lead %s draft edited by %s (v%d)", shortID(lead.Identity), input.Actor, lead.Draft.Version)

	if err := uc.Cards.RefreshCard(ctx, lead); err != nil {
		log.Printf("⚠️ [APPROVAL] Card refresh failed for %s: %v", shortID(lead.Identity), err)
	}

	return &InteractionOutput{Identity: lead.Identity, State: lead.State, Result: "edited"}, nil
}

func (uc *HandleInteractionUseCase) regenerate(ctx context.Context, lead *entity.Lead, input InteractionInput) (*InteractionOutput, error) {
	if lead.State != entity.StatePendingReview {
		return nil, invalidTransition(lead, input.Action)
	}

	if lead.RegenerateCount >= uc.RegenerateCap {
		return nil, &DomainError{
			Code:    CodeRegenerateLimit,
			Message: fmt.Sprintf("lead already regenerated %d times (cap %d)", lead.RegenerateCount, uc.RegenerateCap),
		}
	}

	subject, body, err := uc.Generator.Generate(ctx, lead)
	if err != nil {
		// The lead stays reviewable with its current draft; the reviewer
		// can try again once the providers recover.
		now := time.Now()
		lead.LastError = "generation_unavailable: " + err.Error()
		lead.LastAttemptAt = &now
		if casErr := uc.Leads.UpdateCAS(ctx, lead, lead.Version); casErr != nil {
			log.Printf("⚠️ [APPROVAL] Could not record generation failure on %s: %v", shortID(lead.Identity), casErr)
		}
		return nil, &DomainError{Code: CodeGenerationDown, Message: "both AI providers are unavailable"}
	}

	expected := lead.Version
	lead.PushDraft(subject, body)
	lead.RegenerateCount++
	lead.LastError = ""
	if err := uc.Leads.UpdateCAS(ctx, lead, expected); err != nil {
		return nil, err
	}

	log.Printf("🔄 [APPROVAL] Lead %s regenerated by %s (%d/%d)", shortID(lead.Identity), input.Actor, lead.RegenerateCount, uc.RegenerateCap)

	if err := uc.Cards.RefreshCard(ctx, lead); err != nil {
		log.Printf("⚠️ [APPROVAL] Card refresh failed for %s: %v", shortID(lead.Identity), err)
	}

	return &InteractionOutput{Identity: lead.Identity, State: lead.State, Result: "regenerated"}, nil
}

func (uc *HandleInteractionUseCase) skip(ctx context.Context, lead *entity.Lead, input InteractionInput) (*InteractionOutput, error) {
	// Skipping is allowed from EDITING too: a reviewer can open the form,
	// change their mind and kill the lead from the card.
	if lead.State != entity.StatePendingReview && lead.State != entity.StateEditing {
		return nil, invalidTransition(lead, input.Action)
	}

	expected := lead.Version
	lead.State = entity.StateSkipped
	if err := uc.Leads.UpdateCAS(ctx, lead, expected); err != nil {
		return nil, err
	}

	log.Printf("⏭️ [APPROVAL] Lead %s skipped by %s", shortID(lead.Identity), input.Actor)

	if err := uc.Cards.RefreshCard(ctx, lead); err != nil {
		log.Printf("⚠️ [APPROVAL] Card refresh failed for %s: %v", shortID(lead.Identity), err)
	}

	return &InteractionOutput{Identity: lead.Identity, State: lead.State, Result: "skipped"}, nil
}

func (uc *HandleInteractionUseCase) publishEnrollment(ctx context.Context, lead *entity.Lead) {
	payload := queue.EnrollmentPayload{
		Identity: lead.Identity,
		Company:  lead.Signal.Company,
		Origin:   "SLACK_APPROVAL",
	}
	if err := uc.Queue.PublishEnrollment(ctx, payload); err != nil {
		log.Printf("⚠️ CRITICAL: Lead %s approved but enrollment enqueue failed: %v", shortID(lead.Identity), err)
		// Record the lost enqueue on the lead so the janitor finds the
		// stale APPROVED row and re-drives it.
		now := time.Now()
		lead.LastError = "enrollment enqueue failed: " + err.Error()
		lead.LastAttemptAt = &now
		if casErr := uc.Leads.UpdateCAS(ctx, lead, lead.Version); casErr != nil {
			log.Printf("⚠️ [APPROVAL] Could not record enqueue failure on %s: %v", shortID(lead.Identity), casErr)
		}
	}
}

func invalidTransition(lead *entity.Lead, action string) error {
	return &DomainError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("action %q is not allowed while lead is %s", action, lead.State),
	}
}

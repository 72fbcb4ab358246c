package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/xavierca1/lead-prospector/internal/entity"
)

type IngestSignalInput struct {
	Company       string   `json:"company"`
	Domain        string   `json:"domain"`
	SignalType    string   `json:"signal_type"`
	SignalSummary string   `json:"signal_summary"`
	Languages     []string `json:"languages,omitempty"`
	Author        string   `json:"author,omitempty"`
	URL           string   `json:"url,omitempty"`
}

type IngestSignalOutput struct {
	Identity string `json:"identity"`
	Status   string `json:"status"` // pending_approval | duplicate | skipped | failed
	Reason   string `json:"reason,omitempty"`
}

type IngestSignalUseCase struct {
	Leads     entity.LeadRepositoryInterface
	Directory ContactDirectory
	Generator DraftGenerator
	Cards     CardPublisher
	Alerts    AlertSender
}

func NewIngestSignalUseCase(
	leads entity.LeadRepositoryInterface,
	directory ContactDirectory,
	generator DraftGenerator,
	cards CardPublisher,
	alerts AlertSender,
) *IngestSignalUseCase {
	return &IngestSignalUseCase{
		Leads:     leads,
		Directory: directory,
		Generator: generator,
		Cards:     cards,
		Alerts:    alerts,
	}
}

// Execute takes a raw RepoRadar event all the way to PENDING_REVIEW:
// dedup, contact search, draft generation, card post. Re-delivery of the
// same event is a no-op answered with the existing identity.
func (uc *IngestSignalUseCase) Execute(ctx context.Context, input IngestSignalInput) (*IngestSignalOutput, error) {
	if validationErrors := ValidateIngestSignalInput(input); len(validationErrors) > 0 {
		errMsg := "validation failed: "
		for _, e := range validationErrors {
			errMsg += e.Field + " (" + e.Message + "), "
		}
		return nil, &DomainError{Code: CodeValidation, Message: errMsg}
	}

	signal := entity.Signal{
		Company:   input.Company,
		Domain:    input.Domain,
		Type:      input.SignalType,
		Summary:   input.SignalSummary,
		Languages: input.Languages,
		Author:    input.Author,
		URL:       input.URL,
	}
	identity := SignalIdentity(signal)

	// Dedup before creating anything. Webhooks are at-least-once, so the
	// same commit will knock more than once.
	if existing, err := uc.Leads.FindByIdentity(ctx, identity); err == nil {
		return duplicateOutput(existing), nil
	} else if !errors.Is(err, entity.ErrLeadNotFound) {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}

	lead := &entity.Lead{
		Identity: identity,
		State:    entity.StateNew,
		Signal:   signal,
	}

	if err := uc.Leads.Create(ctx, lead); err != nil {
		if errors.Is(err, entity.ErrDuplicateLead) {
			// Two deliveries raced past the read above. The other one won.
			if existing, findErr := uc.Leads.FindByIdentity(ctx, identity); findErr == nil {
				return duplicateOutput(existing), nil
			}
			return &IngestSignalOutput{Identity: identity, Status: "duplicate", Reason: "already_processed"}, nil
		}
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}

	log.Printf("🎯 [INGEST] New lead %s (%s, %s)", shortID(identity), signal.Company, signal.Type)

	return uc.runPipeline(ctx, lead)
}

// runPipeline moves a freshly created lead from NEW to PENDING_REVIEW
// (or a terminal state when contacts or generation are missing).
func (uc *IngestSignalUseCase) runPipeline(ctx context.Context, lead *entity.Lead) (*IngestSignalOutput, error) {
	contacts, err := uc.Directory.SearchPeople(ctx, lead.Signal.Domain)
	if err != nil {
		log.Printf("❌ [INGEST] Apollo search failed for %s: %v", lead.Signal.Domain, err)
		return uc.failLead(ctx, lead, "contact_search_failed: "+err.Error())
	}

	// Only candidates we can actually email are worth reviewing.
	reachable := make([]entity.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.Email != "" {
			reachable = append(reachable, c)
		}
	}

	if len(reachable) == 0 {
		log.Printf("⏭️ [INGEST] No reachable contacts at %s, skipping lead", lead.Signal.Domain)
		lead.State = entity.StateSkipped
		lead.LastError = "no_contacts_found"
		if err := uc.save(ctx, lead); err != nil {
			return nil, err
		}
		return &IngestSignalOutput{Identity: lead.Identity, Status: "skipped", Reason: "no_contacts_found"}, nil
	}

	lead.Contacts = reachable
	lead.State = entity.StateDrafting
	if err := uc.save(ctx, lead); err != nil {
		return nil, err
	}

	subject, body, err := uc.Generator.Generate(ctx, lead)
	if err != nil {
		log.Printf("❌ [INGEST] Draft generation unavailable for %s: %v", shortID(lead.Identity), err)
		return uc.failLead(ctx, lead, "generation_unavailable: "+err.Error())
	}
	lead.PushDraft(subject, body)

	card, err := uc.Cards.PostCard(ctx, lead)
	if err != nil {
		log.Printf("❌ [INGEST] Could not post approval card for %s: %v", shortID(lead.Identity), err)
		return uc.failLead(ctx, lead, "card_post_failed: "+err.Error())
	}

	lead.Card = card
	lead.State = entity.StatePendingReview
	if err := uc.save(ctx, lead); err != nil {
		return nil, err
	}

	log.Printf("📬 [INGEST] Lead %s waiting for review (contact: %s)", shortID(lead.Identity), reachable[0].Name)

	return &IngestSignalOutput{Identity: lead.Identity, Status: "pending_approval"}, nil
}

func (uc *IngestSignalUseCase) failLead(ctx context.Context, lead *entity.Lead, reason string) (*IngestSignalOutput, error) {
	now := time.Now()
	lead.State = entity.StateFailed
	lead.LastError = reason
	lead.LastAttemptAt = &now

	if err := uc.save(ctx, lead); err != nil {
		return nil, err
	}

	if uc.Alerts != nil {
		if err := uc.Alerts.SendLeadFailed(lead, reason); err != nil {
			log.Printf("⚠️ [INGEST] Failed lead alert not sent: %v", err)
		}
	}

	return &IngestSignalOutput{Identity: lead.Identity, Status: "failed", Reason: reason}, nil
}

func (uc *IngestSignalUseCase) save(ctx context.Context, lead *entity.Lead) error {
	if err := uc.Leads.UpdateCAS(ctx, lead, lead.Version); err != nil {
		return &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: fmt.Sprintf("failed to persist lead %s: %v", shortID(lead.Identity), err),
		}
	}
	return nil
}

func duplicateOutput(lead *entity.Lead) *IngestSignalOutput {
	reason := "in_flight"
	if lead.IsTerminal() {
		reason = "already_processed"
	}
	return &IngestSignalOutput{Identity: lead.Identity, Status: "duplicate", Reason: reason}
}

// shortID trims the sha256 identity down to something readable in logs.
func shortID(identity string) string {
	if len(identity) > 12 {
		return identity[:12]
	}
	return identity
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/lead-prospector/internal/entity"
	"github.com/xavierca1/lead-prospector/internal/infra/queue"
)

func newInteractionFixture() (*HandleInteractionUseCase, *MockLeadRepository, *MockDraftGenerator, *MockCardPublisher, *MockEnrollmentQueue) {
	leads := new(MockLeadRepository)
	generator := new(MockDraftGenerator)
	cards := new(MockCardPublisher)
	enrollQueue := new(MockEnrollmentQueue)

	uc := NewHandleInteractionUseCase(leads, generator, cards, enrollQueue, 3)
	return uc, leads, generator, cards, enrollQueue
}

func TestApproveHappyPath(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, cards, enrollQueue := newInteractionFixture()

	lead := testLead(entity.StatePendingReview)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)
	leads.On("UpdateCAS", ctx, lead, 4).Return(nil)
	enrollQueue.On("PublishEnrollment", ctx, mock.Anything).Return(nil)
	cards.On("RefreshCard", ctx, lead).Return(nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionApprove, Actor: "reviewer"})

	assert.NoError(t, err)
	assert.Equal(t, entity.StateApproved, output.State)
	assert.Equal(t, "approved", output.Result)

	enrollQueue.AssertCalled(t, "PublishEnrollment", ctx, queue.EnrollmentPayload{
		Identity: lead.Identity,
		Company:  "Acme GmbH",
		Origin:   "SLACK_APPROVAL",
	})
	cards.AssertCalled(t, "RefreshCard", ctx, lead)
}

func TestApproveEnqueueFailureRecordedOnLead(t *testing.T) {
	// A lost enqueue after a successful approve must leave a trace on
	// the lead so the janitor can find and re-drive it.
	ctx := context.Background()
	uc, leads, _, cards, enrollQueue := newInteractionFixture()

	lead := testLead(entity.StatePendingReview)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)
	leads.On("UpdateCAS", ctx, lead, 4).Return(nil).Once()
	leads.On("UpdateCAS", ctx, lead, 5).Return(nil).Once()
	enrollQueue.On("PublishEnrollment", ctx, mock.Anything).Return(errors.New("broker down"))
	cards.On("RefreshCard", ctx, lead).Return(nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionApprove, Actor: "reviewer"})

	assert.NoError(t, err)
	assert.Equal(t, "approved", output.Result)
	assert.Contains(t, lead.LastError, "broker down")
	assert.NotNil(t, lead.LastAttemptAt)
	leads.AssertNumberOfCalls(t, "UpdateCAS", 2)
}

func TestApproveDuplicateClickRepublishes(t *testing.T) {
	// Second click on an already approved card: no transition, but the
	// enrollment is re-published in case the first enqueue got lost.
	ctx := context.Background()
	uc, leads, _, _, enrollQueue := newInteractionFixture()

	lead := testLead(entity.StateApproved)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)
	enrollQueue.On("PublishEnrollment", ctx, mock.Anything).Return(nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionApprove, Actor: "reviewer"})

	assert.NoError(t, err)
	assert.Equal(t, "already_approved", output.Result)

	enrollQueue.AssertCalled(t, "PublishEnrollment", ctx, mock.Anything)
	leads.AssertNotCalled(t, "UpdateCAS")
}

func TestApproveAfterEnrolled(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, _, enrollQueue := newInteractionFixture()

	lead := testLead(entity.StateEnrolled)
	lead.EnrollmentRef = "campaign-1:contact-1"
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionApprove})

	assert.NoError(t, err)
	assert.Equal(t, "already_enrolled", output.Result)
	enrollQueue.AssertNotCalled(t, "PublishEnrollment")
}

func TestClickOnTerminalLeadRefreshesCard(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, cards, _ := newInteractionFixture()

	lead := testLead(entity.StateSkipped)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)
	cards.On("RefreshCard", ctx, lead).Return(nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionSkip})

	assert.NoError(t, err)
	assert.Equal(t, "already_final", output.Result)
	cards.AssertCalled(t, "RefreshCard", ctx, lead)
}

func TestApproveLosesRaceToSkip(t *testing.T) {
	// Approve and skip race on the same card. The approve write hits a
	// version conflict, re-reads, finds the lead skipped and answers
	// idempotently instead of erroring at the reviewer.
	ctx := context.Background()
	uc, leads, _, cards, enrollQueue := newInteractionFixture()

	pending := testLead(entity.StatePendingReview)
	skipped := testLead(entity.StateSkipped)
	skipped.Version = 5

	leads.On("FindByIdentity", ctx, pending.Identity).Return(pending, nil).Once()
	leads.On("UpdateCAS", ctx, mock.Anything, 4).Return(entity.ErrVersionConflict)
	leads.On("FindByIdentity", ctx, pending.Identity).Return(skipped, nil).Once()
	cards.On("RefreshCard", ctx, skipped).Return(nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: pending.Identity, Action: ActionApprove, Actor: "reviewer"})

	assert.NoError(t, err)
	assert.Equal(t, "already_final", output.Result)
	assert.Equal(t, entity.StateSkipped, output.State)
	enrollQueue.AssertNotCalled(t, "PublishEnrollment")
}

func TestConcurrencyExhausted(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, _, _ := newInteractionFixture()

	// Every re-read hands back a fresh pending lead, every write conflicts.
	for i := 0; i < 3; i++ {
		leads.On("FindByIdentity", ctx, mock.Anything).Return(testLead(entity.StatePendingReview), nil).Once()
	}
	leads.On("UpdateCAS", ctx, mock.Anything, mock.Anything).Return(entity.ErrVersionConflict)

	output, err := uc.Execute(ctx, InteractionInput{Identity: "some-identity", Action: ActionApprove})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, IsTechnicalError(err))
	leads.AssertNumberOfCalls(t, "FindByIdentity", 3)
}

func TestEditOpensForm(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, cards, _ := newInteractionFixture()

	lead := testLead(entity.StatePendingReview)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)
	leads.On("UpdateCAS", ctx, lead, 4).Return(nil)
	cards.On("OpenEditForm", ctx, lead, "trigger-123").Return(nil)

	output, err := uc.Execute(ctx, InteractionInput{
		Identity:  lead.Identity,
		Action:    ActionEdit,
		TriggerID: "trigger-123",
	})

	assert.NoError(t, err)
	assert.Equal(t, entity.StateEditing, output.State)
	assert.Equal(t, "edit_opened", output.Result)
}

func TestSubmitEditPushesDraft(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, cards, _ := newInteractionFixture()

	lead := testLead(entity.StateEditing)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)
	leads.On("UpdateCAS", ctx, lead, 4).Return(nil)
	cards.On("RefreshCard", ctx, lead).Return(nil)

	output, err := uc.Execute(ctx, InteractionInput{
		Identity: lead.Identity,
		Action:   ActionSubmitEdit,
		Subject:  "New subject",
		Body:     "New body",
	})

	assert.NoError(t, err)
	assert.Equal(t, entity.StatePendingReview, output.State)
	assert.Equal(t, "New subject", lead.Draft.Subject)
	assert.Equal(t, 2, lead.Draft.Version)
	assert.Len(t, lead.DraftHistory, 1)
}

func TestSubmitEditOutsideEditing(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, _, _ := newInteractionFixture()

	lead := testLead(entity.StatePendingReview)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionSubmitEdit})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, CodeInvalidTransition, DomainCode(err))
}

func TestRegenerateHappyPath(t *testing.T) {
	ctx := context.Background()
	uc, leads, generator, cards, _ := newInteractionFixture()

	lead := testLead(entity.StatePendingReview)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)
	leads.On("UpdateCAS", ctx, lead, 4).Return(nil)
	generator.On("Generate", ctx, lead).Return("Fresh subject", "Fresh body", nil)
	cards.On("RefreshCard", ctx, lead).Return(nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionRegenerate, Actor: "reviewer"})

	assert.NoError(t, err)
	assert.Equal(t, "regenerated", output.Result)
	assert.Equal(t, 1, lead.RegenerateCount)
	assert.Equal(t, "Fresh subject", lead.Draft.Subject)
	assert.Equal(t, 2, lead.Draft.Version)
}

func TestRegenerateCapExceeded(t *testing.T) {
	ctx := context.Background()
	uc, leads, generator, _, _ := newInteractionFixture()

	lead := testLead(entity.StatePendingReview)
	lead.RegenerateCount = 3
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionRegenerate})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, CodeRegenerateLimit, DomainCode(err))

	generator.AssertNotCalled(t, "Generate")
	leads.AssertNotCalled(t, "UpdateCAS")
}

func TestRegenerateGenerationDownKeepsLeadReviewable(t *testing.T) {
	ctx := context.Background()
	uc, leads, generator, cards, _ := newInteractionFixture()

	lead := testLead(entity.StatePendingReview)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)
	leads.On("UpdateCAS", ctx, lead, mock.Anything).Return(nil)
	generator.On("Generate", ctx, lead).Return("", "", errors.New("both providers down"))

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionRegenerate})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, CodeGenerationDown, DomainCode(err))

	// Current draft is untouched and the lead stays where it was.
	assert.Equal(t, entity.StatePendingReview, lead.State)
	assert.Equal(t, "Quick question about your docs", lead.Draft.Subject)
	cards.AssertNotCalled(t, "RefreshCard")
}

func TestSkipFromPendingReview(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, cards, _ := newInteractionFixture()

	lead := testLead(entity.StatePendingReview)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)
	leads.On("UpdateCAS", ctx, lead, 4).Return(nil)
	cards.On("RefreshCard", ctx, lead).Return(nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionSkip, Actor: "reviewer"})

	assert.NoError(t, err)
	assert.Equal(t, entity.StateSkipped, output.State)
	assert.Equal(t, "skipped", output.Result)
}

func TestSkipFromEditing(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, cards, _ := newInteractionFixture()

	lead := testLead(entity.StateEditing)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)
	leads.On("UpdateCAS", ctx, lead, 4).Return(nil)
	cards.On("RefreshCard", ctx, lead).Return(nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionSkip})

	assert.NoError(t, err)
	assert.Equal(t, entity.StateSkipped, output.State)
}

func TestApproveFromEditingRejected(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, _, enrollQueue := newInteractionFixture()

	lead := testLead(entity.StateEditing)
	leads.On("FindByIdentity", ctx, lead.Identity).Return(lead, nil)

	output, err := uc.Execute(ctx, InteractionInput{Identity: lead.Identity, Action: ActionApprove})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, CodeInvalidTransition, DomainCode(err))
	enrollQueue.AssertNotCalled(t, "PublishEnrollment")
}

func TestInteractionLeadNotFound(t *testing.T) {
	ctx := context.Background()
	uc, leads, _, _, _ := newInteractionFixture()

	leads.On("FindByIdentity", ctx, "ghost").Return(nil, entity.ErrLeadNotFound)

	output, err := uc.Execute(ctx, InteractionInput{Identity: "ghost", Action: ActionApprove})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, CodeNotFound, DomainCode(err))
}

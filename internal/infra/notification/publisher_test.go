package notification

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/xavierca1/lead-prospector/internal/entity"
)

type fakeMessenger struct {
	postedChannel string
	postedBlocks  []any
	updatedTS     string
	updatedBlocks []any
	openedView    any
	openedTrigger string
	postCalls     int
	updateCalls   int
}

func (f *fakeMessenger) PostMessage(ctx context.Context, channel, fallbackText string, blocks []any) (string, string, error) {
	f.postCalls++
	f.postedChannel = channel
	f.postedBlocks = blocks
	return channel, "1724.001", nil
}

func (f *fakeMessenger) UpdateMessage(ctx context.Context, channel, ts, fallbackText string, blocks []any) error {
	f.updateCalls++
	f.updatedTS = ts
	f.updatedBlocks = blocks
	return nil
}

func (f *fakeMessenger) OpenView(ctx context.Context, triggerID string, view any) error {
	f.openedTrigger = triggerID
	f.openedView = view
	return nil
}

func cardLead(state string) *entity.Lead {
	return &entity.Lead{
		Identity: "lead-1",
		State:    state,
		Signal: entity.Signal{
			Company:   "Acme GmbH",
			Domain:    "acme.dev",
			Type:      "NEW_LANG_FILE",
			Summary:   "Added de.json",
			Languages: []string{"de"},
		},
		Contacts: []entity.Contact{{Name: "Eva Martin", Title: "Head of Localization", Email: "eva@acme.dev"}},
		Draft:    entity.Draft{Subject: "A subject", Body: "A body", Version: 2},
		Card:     &entity.CardRef{Channel: "C123", MessageTS: "1724.001"},
	}
}

func blocksJSON(t *testing.T, blocks []any) string {
	t.Helper()
	raw, err := json.Marshal(blocks)
	assert.NoError(t, err)
	return string(raw)
}

func TestPostCardPendingLayout(t *testing.T) {
	messenger := &fakeMessenger{}
	p := NewPublisher(messenger, "C123")

	card, err := p.PostCard(context.Background(), cardLead(entity.StatePendingReview))

	assert.NoError(t, err)
	assert.Equal(t, "C123", card.Channel)
	assert.Equal(t, "1724.001", card.MessageTS)

	raw := blocksJSON(t, messenger.postedBlocks)
	assert.Contains(t, raw, "🎯 New Lead: Acme GmbH")
	assert.Contains(t, raw, "Eva Martin")
	assert.Contains(t, raw, "Email Preview (v2)")
	assert.Contains(t, raw, "approve_lead")
	assert.Contains(t, raw, "edit_lead")
	assert.Contains(t, raw, "regenerate_lead")
	assert.Contains(t, raw, "skip_lead")
	assert.Contains(t, raw, `"value":"lead-1"`)
}

func TestPostCardPreviewTruncatesOnRuneBoundary(t *testing.T) {
	messenger := &fakeMessenger{}
	p := NewPublisher(messenger, "C123")

	lead := cardLead(entity.StatePendingReview)
	lead.Draft.Body = strings.Repeat("ü", 600)

	_, err := p.PostCard(context.Background(), lead)

	assert.NoError(t, err)
	raw := blocksJSON(t, messenger.postedBlocks)
	assert.True(t, utf8.ValidString(raw))
	assert.Contains(t, raw, strings.Repeat("ü", 500)+"...")
	assert.NotContains(t, raw, strings.Repeat("ü", 501))
}

func TestRefreshCardTerminalStatesCollapseToBanner(t *testing.T) {
	cases := []struct {
		state  string
		expect string
	}{
		{entity.StateEnrolled, "ENROLLED"},
		{entity.StateApproved, "APPROVED"},
		{entity.StateEnrolling, "APPROVED"},
		{entity.StateSkipped, "SKIPPED"},
		{entity.StateFailed, "FAILED"},
	}

	for _, tc := range cases {
		t.Run(tc.state, func(t *testing.T) {
			messenger := &fakeMessenger{}
			p := NewPublisher(messenger, "C123")

			lead := cardLead(tc.state)
			lead.LastError = "something broke"

			assert.NoError(t, p.RefreshCard(context.Background(), lead))
			assert.Equal(t, "1724.001", messenger.updatedTS)

			raw := blocksJSON(t, messenger.updatedBlocks)
			assert.Contains(t, raw, tc.expect)
			assert.NotContains(t, raw, "approve_lead") // no buttons on resolved cards
		})
	}
}

func TestRefreshCardFailedShowsReason(t *testing.T) {
	messenger := &fakeMessenger{}
	p := NewPublisher(messenger, "C123")

	lead := cardLead(entity.StateFailed)
	lead.LastError = "enrollment retry budget exhausted"

	assert.NoError(t, p.RefreshCard(context.Background(), lead))
	assert.Contains(t, blocksJSON(t, messenger.updatedBlocks), "enrollment retry budget exhausted")
}

func TestRefreshCardWithoutCardIsNoOp(t *testing.T) {
	messenger := &fakeMessenger{}
	p := NewPublisher(messenger, "C123")

	lead := cardLead(entity.StateSkipped)
	lead.Card = nil

	assert.NoError(t, p.RefreshCard(context.Background(), lead))
	assert.Equal(t, 0, messenger.updateCalls)
}

func TestOpenEditFormPrefillsDraft(t *testing.T) {
	messenger := &fakeMessenger{}
	p := NewPublisher(messenger, "C123")

	lead := cardLead(entity.StateEditing)
	assert.NoError(t, p.OpenEditForm(context.Background(), lead, "trigger-1"))

	assert.Equal(t, "trigger-1", messenger.openedTrigger)

	raw, err := json.Marshal(messenger.openedView)
	assert.NoError(t, err)
	view := string(raw)

	assert.Contains(t, view, `"callback_id":"submit_edit"`)
	assert.Contains(t, view, `"private_metadata":"lead-1"`)
	assert.Contains(t, view, "subject_block")
	assert.Contains(t, view, "body_block")
	assert.Contains(t, view, `"initial_value":"A subject"`)
	assert.Contains(t, view, `"initial_value":"A body"`)
}

package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/xavierca1/lead-prospector/internal/entity"
)

// Messenger is the slice of the Slack client the publisher needs.
type Messenger interface {
	PostMessage(ctx context.Context, channel, fallbackText string, blocks []any) (string, string, error)
	UpdateMessage(ctx context.Context, channel, ts, fallbackText string, blocks []any) error
	OpenView(ctx context.Context, triggerID string, view any) error
}

// Publisher turns lead state into card content. It owns all rendering so
// the state machine never knows what Block Kit looks like.
type Publisher struct {
	Slack     Messenger
	ChannelID string
}

func NewPublisher(slack Messenger, channelID string) *Publisher {
	return &Publisher{Slack: slack, ChannelID: channelID}
}

func (p *Publisher) PostCard(ctx context.Context, lead *entity.Lead) (*entity.CardRef, error) {
	blocks := p.renderCard(lead)
	fallback := "New lead approval request: " + lead.Signal.Company

	channel, ts, err := p.Slack.PostMessage(ctx, p.ChannelID, fallback, blocks)
	if err != nil {
		return nil, err
	}

	return &entity.CardRef{Channel: channel, MessageTS: ts}, nil
}

// RefreshCard overwrites the existing message so retries and duplicate
// clicks never spawn extra cards.
func (p *Publisher) RefreshCard(ctx context.Context, lead *entity.Lead) error {
	if lead.Card == nil {
		return nil
	}

	blocks := p.renderCard(lead)
	fallback := fmt.Sprintf("Lead %s: %s", lead.Signal.Company, lead.State)

	return p.Slack.UpdateMessage(ctx, lead.Card.Channel, lead.Card.MessageTS, fallback, blocks)
}

func (p *Publisher) OpenEditForm(ctx context.Context, lead *entity.Lead, triggerID string) error {
	return p.Slack.OpenView(ctx, triggerID, p.renderEditModal(lead))
}

func (p *Publisher) renderCard(lead *entity.Lead) []any {
	switch lead.State {
	case entity.StateEnrolled:
		return statusBanner("✅ *ENROLLED* - "+lead.Signal.Company, lead)
	case entity.StateApproved, entity.StateEnrolling:
		return statusBanner("⏳ *APPROVED* - enrolling "+contactName(lead)+"...", lead)
	case entity.StateSkipped:
		return statusBanner("❌ *SKIPPED* - "+lead.Signal.Company, lead)
	case entity.StateFailed:
		return statusBanner(fmt.Sprintf("🛑 *FAILED* - %s\nReason: %s", lead.Signal.Company, lead.LastError), lead)
	default:
		return p.renderPendingCard(lead)
	}
}

func (p *Publisher) renderPendingCard(lead *entity.Lead) []any {
	contact := lead.BestContact()

	preview := lead.Draft.Body
	if r := []rune(preview); len(r) > 500 {
		preview = string(r[:500]) + "..."
	}

	header := map[string]any{
		"type": "header",
		"text": map[string]any{
			"type":  "plain_text",
			"text":  "🎯 New Lead: " + lead.Signal.Company,
			"emoji": true,
		},
	}

	fields := map[string]any{
		"type": "section",
		"fields": []any{
			mrkdwn("*Domain:*\n" + lead.Signal.Domain),
			mrkdwn("*Contact:*\n" + contactName(lead)),
			mrkdwn("*Title:*\n" + orNA(contactTitle(contact))),
			mrkdwn("*Email:*\n" + orNA(contactEmail(contact))),
		},
	}

	signal := map[string]any{
		"type": "section",
		"text": mrkdwn("*i18n Signal:*\n" + lead.Signal.Summary + languagesSuffix(lead)),
	}

	subject := map[string]any{
		"type": "section",
		"text": mrkdwn(fmt.Sprintf("*📧 Email Preview (v%d)*\n*Subject:* %s", lead.Draft.Version, lead.Draft.Subject)),
	}

	body := map[string]any{
		"type": "section",
		"text": mrkdwn("```" + preview + "```"),
	}

	actions := map[string]any{
		"type": "actions",
		"elements": []any{
			button("✅ Approve", "approve_lead", lead.Identity, "primary"),
			button("✏️ Edit", "edit_lead", lead.Identity, ""),
			button("🔄 Regenerate", "regenerate_lead", lead.Identity, ""),
			button("⏭️ Skip", "skip_lead", lead.Identity, "danger"),
		},
	}

	return []any{header, fields, signal, map[string]any{"type": "divider"}, subject, body, actions}
}

func (p *Publisher) renderEditModal(lead *entity.Lead) map[string]any {
	return map[string]any{
		"type":             "modal",
		"callback_id":      "submit_edit",
		"private_metadata": lead.Identity,
		"title":            plainText("Edit outreach email"),
		"submit":           plainText("Save"),
		"close":            plainText("Cancel"),
		"blocks": []any{
			map[string]any{
				"type":     "input",
				"block_id": "subject_block",
				"label":    plainText("Subject"),
				"element": map[string]any{
					"type":          "plain_text_input",
					"action_id":     "subject_input",
					"initial_value": lead.Draft.Subject,
				},
			},
			map[string]any{
				"type":     "input",
				"block_id": "body_block",
				"label":    plainText("Body"),
				"element": map[string]any{
					"type":          "plain_text_input",
					"action_id":     "body_input",
					"multiline":     true,
					"initial_value": lead.Draft.Body,
				},
			},
		},
	}
}

func statusBanner(text string, lead *entity.Lead) []any {
	banner := map[string]any{
		"type": "section",
		"text": mrkdwn(text + "\nContact: " + contactName(lead)),
	}
	return []any{banner}
}

func mrkdwn(text string) map[string]any {
	return map[string]any{"type": "mrkdwn", "text": text}
}

func plainText(text string) map[string]any {
	return map[string]any{"type": "plain_text", "text": text, "emoji": true}
}

func button(label, actionID, value, style string) map[string]any {
	b := map[string]any{
		"type":      "button",
		"text":      plainText(label),
		"action_id": actionID,
		"value":     value,
	}
	if style != "" {
		b["style"] = style
	}
	return b
}

func contactName(lead *entity.Lead) string {
	if c := lead.BestContact(); c != nil {
		return c.Name
	}
	return "N/A"
}

func contactTitle(c *entity.Contact) string {
	if c == nil {
		return ""
	}
	return c.Title
}

func contactEmail(c *entity.Contact) string {
	if c == nil {
		return ""
	}
	return c.Email
}

func languagesSuffix(lead *entity.Lead) string {
	if len(lead.Signal.Languages) == 0 {
		return ""
	}
	return "\nLanguages: " + strings.Join(lead.Signal.Languages, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

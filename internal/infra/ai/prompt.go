package ai

import (
	"fmt"
	"strings"

	"github.com/xavierca1/lead-prospector/internal/entity"
)

// BuildPrompt assembles the generation prompt from the signal and the
// contact the email is being personalized for.
func BuildPrompt(lead *entity.Lead) string {
	contact := lead.BestContact()

	var b strings.Builder

	b.WriteString("You are a sales development representative for a localization/internationalization platform.\n\n")
	b.WriteString("Generate a personalized cold email based on the following i18n signal detected at the prospect's company:\n\n")

	fmt.Fprintf(&b, "COMPANY: %s\n", lead.Signal.Company)
	fmt.Fprintf(&b, "DOMAIN: %s\n", lead.Signal.Domain)
	fmt.Fprintf(&b, "SIGNAL TYPE: %s\n", lead.Signal.Type)
	fmt.Fprintf(&b, "SIGNAL SUMMARY: %s\n", lead.Signal.Summary)

	languages := "Not specified"
	if len(lead.Signal.Languages) > 0 {
		languages = strings.Join(lead.Signal.Languages, ", ")
	}
	fmt.Fprintf(&b, "LANGUAGES DETECTED: %s\n", languages)

	if lead.Signal.URL != "" {
		fmt.Fprintf(&b, "COMMIT/PR URL: %s\n", lead.Signal.URL)
	}

	b.WriteString("\nCONTACT INFO:\n")
	if contact != nil {
		fmt.Fprintf(&b, "- Name: %s\n", contact.Name)
		fmt.Fprintf(&b, "- Title: %s\n", orUnknown(contact.Title))
	}
	fmt.Fprintf(&b, "- Company: %s\n", lead.Signal.Company)

	b.WriteString(`
REQUIREMENTS:
1. Subject line must be compelling and under 50 characters
2. Use Apollo.io dynamic variables: {{first_name}} for greeting, {{company}} in body, {{sender_first_name}} for signature
3. NEVER use {{first_name}} in the subject line (triggers spam filters)
4. Reference the specific i18n activity you detected
5. Keep the email under 150 words
6. End with a soft CTA (question, not a demand)
7. Be conversational, not salesy
8. Don't mention that you "detected" or "noticed" their activity - instead, frame it as industry awareness

OUTPUT FORMAT:
SUBJECT: [your subject line here]
BODY:
[your email body here]`)

	return b.String()
}

// ParseResponse pulls subject and body out of the SUBJECT:/BODY: format.
// Models occasionally ignore instructions, so there's a best-effort
// fallback instead of a hard failure.
func ParseResponse(response string) (subject, body string) {
	lines := strings.Split(strings.TrimSpace(response), "\n")

	var bodyLines []string
	inBody := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "SUBJECT:"):
			subject = strings.TrimSpace(strings.TrimPrefix(line, "SUBJECT:"))
		case strings.HasPrefix(line, "BODY:"):
			inBody = true
		case inBody:
			bodyLines = append(bodyLines, line)
		}
	}

	body = strings.TrimSpace(strings.Join(bodyLines, "\n"))

	if subject == "" && len(lines) > 0 {
		subject = lines[0]
		if r := []rune(subject); len(r) > 50 {
			subject = string(r[:50])
		}
	}
	if body == "" {
		body = strings.TrimSpace(response)
	}

	return subject, body
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

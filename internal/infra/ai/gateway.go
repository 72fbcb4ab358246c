package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/xavierca1/lead-prospector/internal/entity"
)

// Provider is anything that can turn a prompt into text. Anthropic and
// Gemini both fit; the gateway doesn't care which is which.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gateway tries the primary provider and falls back to the secondary.
// Both down means GenerationUnavailable for the caller. No internal
// retry loop here, a reviewer can hit Regenerate later.
type Gateway struct {
	Primary   Provider
	Secondary Provider // may be nil
}

func NewGateway(primary, secondary Provider) *Gateway {
	return &Gateway{Primary: primary, Secondary: secondary}
}

func (g *Gateway) Generate(ctx context.Context, lead *entity.Lead) (string, string, error) {
	prompt := BuildPrompt(lead)

	if g.Primary == nil {
		if g.Secondary == nil {
			return "", "", fmt.Errorf("generation unavailable: no provider configured")
		}
		g = &Gateway{Primary: g.Secondary}
	}

	text, err := g.Primary.Complete(ctx, prompt)
	if err == nil {
		subject, body := ParseResponse(text)
		return subject, body, nil
	}

	log.Printf("⚠️ AI: %s failed (%v), trying fallback", g.Primary.Name(), err)

	if g.Secondary == nil {
		return "", "", fmt.Errorf("generation unavailable: %s failed and no fallback configured: %w", g.Primary.Name(), err)
	}

	text, fallbackErr := g.Secondary.Complete(ctx, prompt)
	if fallbackErr != nil {
		return "", "", fmt.Errorf("generation unavailable: %s (%v) and %s (%v) both failed", g.Primary.Name(), err, g.Secondary.Name(), fallbackErr)
	}

	subject, body := ParseResponse(text)
	return subject, body, nil
}

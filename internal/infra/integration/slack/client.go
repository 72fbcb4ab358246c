package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const defaultBaseURL = "https://slack.com/api"

type Client struct {
	botToken string
	baseURL  string
	http     *http.Client
}

func NewClient(botToken string) *Client {
	return &Client{
		botToken: botToken,
		baseURL:  defaultBaseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithBaseURL exists for tests pointing at an httptest server.
func NewClientWithBaseURL(botToken, baseURL string) *Client {
	c := NewClient(botToken)
	c.baseURL = baseURL
	return c
}

// PostMessage posts a card and returns channel + message ts.
func (c *Client) PostMessage(ctx context.Context, channel, fallbackText string, blocks []any) (string, string, error) {
	payload := postMessageRequest{
		Channel: channel,
		Text:    fallbackText,
		Blocks:  blocks,
	}

	resp, err := c.call(ctx, "chat.postMessage", payload)
	if err != nil {
		return "", "", err
	}

	return resp.Channel, resp.TS, nil
}

// UpdateMessage re-renders an existing card in place.
func (c *Client) UpdateMessage(ctx context.Context, channel, ts, fallbackText string, blocks []any) error {
	payload := updateMessageRequest{
		Channel: channel,
		TS:      ts,
		Text:    fallbackText,
		Blocks:  blocks,
	}

	_, err := c.call(ctx, "chat.update", payload)
	return err
}

// OpenView opens a modal against the interaction's trigger_id. Trigger IDs
// expire after 3 seconds, so this must be called promptly.
func (c *Client) OpenView(ctx context.Context, triggerID string, view any) error {
	payload := openViewRequest{TriggerID: triggerID, View: view}

	_, err := c.call(ctx, "views.open", payload)
	return err
}

func (c *Client) call(ctx context.Context, method string, payload any) (*apiResponse, error) {
	if c.botToken == "" {
		log.Println("⚠️ Slack: SLACK_BOT_TOKEN not configured")
		return nil, fmt.Errorf("slack not configured")
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("slack marshal %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, method)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack request %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slack %s: status %d", method, resp.StatusCode)
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("slack decode %s: %w", method, err)
	}

	if !result.OK {
		log.Printf("❌ Slack %s: %s", method, result.Error)
		return nil, fmt.Errorf("slack %s: %s", method, result.Error)
	}

	return &result, nil
}

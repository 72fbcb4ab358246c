package slack

import "encoding/json"

// Block Kit payloads are built as loose maps elsewhere; these are the
// typed envelopes for what the Slack Web API answers back.

type apiResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	TS      string `json:"ts,omitempty"`
	Channel string `json:"channel,omitempty"`
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	Blocks  []any  `json:"blocks,omitempty"`
}

type updateMessageRequest struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
	Text    string `json:"text"`
	Blocks  []any  `json:"blocks,omitempty"`
}

type openViewRequest struct {
	TriggerID string `json:"trigger_id"`
	View      any    `json:"view"`
}

// InteractionPayload is the form-encoded JSON Slack posts back when a
// reviewer presses a button or submits the edit modal.
type InteractionPayload struct {
	Type string `json:"type"` // block_actions | view_submission
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	TriggerID string `json:"trigger_id"`
	Channel   struct {
		ID string `json:"id"`
	} `json:"channel"`
	Message struct {
		TS string `json:"ts"`
	} `json:"message"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
	View struct {
		PrivateMetadata string          `json:"private_metadata"`
		State           json.RawMessage `json:"state"`
	} `json:"view"`
}

// ViewState mirrors view.state.values for the edit modal submission.
type ViewState struct {
	Values map[string]map[string]struct {
		Value string `json:"value"`
	} `json:"values"`
}

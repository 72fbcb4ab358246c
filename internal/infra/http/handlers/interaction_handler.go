package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/xavierca1/lead-prospector/internal/infra/http/middleware"
	"github.com/xavierca1/lead-prospector/internal/infra/integration/slack"
	"github.com/xavierca1/lead-prospector/internal/usecase"
)

// Slack action ids on the card, mapped to state machine actions.
var actionIDs = map[string]string{
	"approve_lead":    usecase.ActionApprove,
	"edit_lead":       usecase.ActionEdit,
	"regenerate_lead": usecase.ActionRegenerate,
	"skip_lead":       usecase.ActionSkip,
}

const replayWindow = 5 * time.Minute

type InteractionHandler struct {
	Interactions  *usecase.HandleInteractionUseCase
	SigningSecret string

	// now is swapped in tests to pin the replay window.
	now func() time.Time
}

func NewInteractionHandler(interactions *usecase.HandleInteractionUseCase, signingSecret string) *InteractionHandler {
	return &InteractionHandler{
		Interactions:  interactions,
		SigningSecret: signingSecret,
		now:           time.Now,
	}
}

func (h *InteractionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	if !h.verifySlackSignature(body, r.Header.Get("X-Slack-Request-Timestamp"), r.Header.Get("X-Slack-Signature")) {
		log.Println("⚠️ [SLACK] Invalid interaction signature")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_signature"})
		return
	}

	// Slack sends the interaction as form-encoded JSON in "payload".
	values, err := url.ParseQuery(string(body))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad form"})
		return
	}

	var payload slack.InteractionPayload
	if err := json.Unmarshal([]byte(values.Get("payload")), &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad payload"})
		return
	}

	input, err := toInteractionInput(payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	output, err := h.Interactions.Execute(r.Context(), input)
	if err != nil {
		middleware.RecordInteraction(input.Action, "error")
		h.writeError(w, err)
		return
	}

	middleware.RecordInteraction(input.Action, output.Result)
	writeJSON(w, http.StatusOK, output)
}

func (h *InteractionHandler) writeError(w http.ResponseWriter, err error) {
	switch usecase.DomainCode(err) {
	case usecase.CodeNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "request not found"})
	case usecase.CodeInvalidTransition, usecase.CodeRegenerateLimit, usecase.CodeGenerationDown:
		// User-visible policy answers. Slack renders our message; a 4xx/5xx
		// would just show the reviewer a generic failure banner.
		writeJSON(w, http.StatusOK, map[string]string{"result": usecase.DomainCode(err), "message": err.Error()})
	default:
		log.Printf("❌ [SLACK] Interaction failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toInteractionInput(payload slack.InteractionPayload) (usecase.InteractionInput, error) {
	switch payload.Type {
	case "block_actions":
		if len(payload.Actions) == 0 {
			return usecase.InteractionInput{}, fmt.Errorf("no action in payload")
		}
		action, ok := actionIDs[payload.Actions[0].ActionID]
		if !ok {
			return usecase.InteractionInput{}, fmt.Errorf("unknown action")
		}
		return usecase.InteractionInput{
			Identity:  payload.Actions[0].Value,
			Action:    action,
			Actor:     payload.User.Username,
			TriggerID: payload.TriggerID,
		}, nil

	case "view_submission":
		var state slack.ViewState
		if err := json.Unmarshal(payload.View.State, &state); err != nil {
			return usecase.InteractionInput{}, fmt.Errorf("bad view state")
		}
		return usecase.InteractionInput{
			Identity: payload.View.PrivateMetadata,
			Action:   usecase.ActionSubmitEdit,
			Actor:    payload.User.Username,
			Subject:  state.Values["subject_block"]["subject_input"].Value,
			Body:     state.Values["body_block"]["body_input"].Value,
		}, nil

	default:
		return usecase.InteractionInput{}, fmt.Errorf("unknown interaction type")
	}
}

// verifySlackSignature implements Slack's v0 signing scheme with the
// replay-attack window.
func (h *InteractionHandler) verifySlackSignature(body []byte, timestamp, signature string) bool {
	if h.SigningSecret == "" {
		return true
	}
	if timestamp == "" || signature == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if math.Abs(h.now().Sub(time.Unix(ts, 0)).Seconds()) > replayWindow.Seconds() {
		return false
	}

	base := fmt.Sprintf("v0:%s:%s", timestamp, string(body))
	mac := hmac.New(sha256.New, []byte(h.SigningSecret))
	mac.Write([]byte(base))
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

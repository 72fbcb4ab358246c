package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/xavierca1/lead-prospector/internal/infra/http/middleware"
	"github.com/xavierca1/lead-prospector/internal/usecase"
)

// SignalHandler receives RepoRadar webhooks. Delivery is at-least-once on
// their side, so the answer for a replay is a calm 200, not an error.
type SignalHandler struct {
	Ingest        *usecase.IngestSignalUseCase
	WebhookSecret string
}

func NewSignalHandler(ingest *usecase.IngestSignalUseCase, webhookSecret string) *SignalHandler {
	return &SignalHandler{Ingest: ingest, WebhookSecret: webhookSecret}
}

func (h *SignalHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-RepoRadar-Signature")) {
		log.Println("⚠️ [WEBHOOK] Invalid RepoRadar signature")
		middleware.RecordSignal("unauthorized")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_signature"})
		return
	}

	var input usecase.IngestSignalInput
	if err := json.Unmarshal(body, &input); err != nil {
		middleware.RecordSignal("invalid")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	output, err := h.Ingest.Execute(r.Context(), input)
	if err != nil {
		if usecase.DomainCode(err) == usecase.CodeValidation {
			middleware.RecordSignal("invalid")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload", "details": err.Error()})
			return
		}
		log.Printf("❌ [WEBHOOK] Signal processing failed: %v", err)
		middleware.RecordSignal("error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	middleware.RecordSignal(output.Status)

	status := http.StatusOK
	if output.Status == "pending_approval" {
		status = http.StatusAccepted
	}

	writeJSON(w, status, output)
}

// verifySignature checks the shared-secret HMAC. No secret configured
// means checks are off, acceptable for local dev only.
func (h *SignalHandler) verifySignature(body []byte, signature string) bool {
	if h.WebhookSecret == "" {
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

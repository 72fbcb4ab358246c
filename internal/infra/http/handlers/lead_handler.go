package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/lead-prospector/internal/entity"
	"github.com/xavierca1/lead-prospector/internal/usecase"
)

type LeadHandler struct {
	leadRepo entity.LeadRepositoryInterface
}

func NewLeadHandler(leadRepo entity.LeadRepositoryInterface) *LeadHandler {
	return &LeadHandler{leadRepo: leadRepo}
}

type LeadSummary struct {
	Identity        string `json:"identity"`
	Company         string `json:"company"`
	Domain          string `json:"domain"`
	State           string `json:"state"`
	SignalType      string `json:"signal_type"`
	DraftVersion    int    `json:"draft_version"`
	RegenerateCount int    `json:"regenerate_count"`
	UpdatedAt       string `json:"updated_at"`
}

type ListLeadsResponse struct {
	Count int           `json:"count"`
	Leads []LeadSummary `json:"leads"`
}

// ListPending returns the leads waiting on a reviewer, oldest first.
func (h *LeadHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leadRepo.ListByState(r.Context(), entity.StatePendingReview)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list leads"})
		return
	}

	summaries := make([]LeadSummary, 0, len(leads))
	for _, lead := range leads {
		summaries = append(summaries, toSummary(lead))
	}

	writeJSON(w, http.StatusOK, ListLeadsResponse{Count: len(summaries), Leads: summaries})
}

// GetLead returns a single lead by identity, draft included.
func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	lead, err := h.leadRepo.FindByIdentity(r.Context(), identity)
	if err != nil {
		if err == entity.ErrLeadNotFound {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": usecase.CodeNotFound})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load lead"})
		return
	}

	writeJSON(w, http.StatusOK, lead)
}

func toSummary(lead *entity.Lead) LeadSummary {
	return LeadSummary{
		Identity:        lead.Identity,
		Company:         lead.Signal.Company,
		Domain:          lead.Signal.Domain,
		State:           lead.State,
		SignalType:      lead.Signal.Type,
		DraftVersion:    lead.Draft.Version,
		RegenerateCount: lead.RegenerateCount,
		UpdatedAt:       lead.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

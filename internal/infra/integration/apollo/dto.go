package apollo

import "fmt"

type CreateContactInput struct {
	Email            string
	FirstName        string
	LastName         string
	Title            string
	OrganizationName string
	CustomFields     ContactCustomFields
}

// ContactCustomFields land in Apollo's typed custom fields so the sequence
// templates can splice the personalized copy in.
type ContactCustomFields struct {
	PersonalizedSubject string `json:"personalized_subject"`
	PersonalizedEmail   string `json:"personalized_email_1"`
	I18nSignals         string `json:"i18n_signals"`
}

// APIError carries the Apollo status code so the committer can tell
// retryable trouble from a hard no.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apollo api error (status %d): %s", e.StatusCode, e.Body)
}

// Transient reports whether the call is worth retrying.
func (e *APIError) Transient() bool {
	if e.StatusCode == 408 || e.StatusCode == 429 {
		return true
	}
	return e.StatusCode >= 500
}

// --- internal payloads: what we send to Apollo ---

type peopleSearchRequest struct {
	APIKey       string   `json:"api_key"`
	Domains      string   `json:"q_organization_domains"`
	PersonTitles []string `json:"person_titles"`
	Page         int      `json:"page"`
	PerPage      int      `json:"per_page"`
}

type createContactRequest struct {
	APIKey            string              `json:"api_key"`
	Email             string              `json:"email"`
	FirstName         string              `json:"first_name"`
	LastName          string              `json:"last_name"`
	Title             string              `json:"title,omitempty"`
	OrganizationName  string              `json:"organization_name"`
	TypedCustomFields ContactCustomFields `json:"typed_custom_fields"`
}

type contactSearchRequest struct {
	APIKey   string `json:"api_key"`
	Keywords string `json:"q_keywords"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
}

type addToSequenceRequest struct {
	APIKey     string   `json:"api_key"`
	ContactIDs []string `json:"contact_ids"`
	CampaignID string   `json:"emailer_campaign_id"`
	// Apollo has no first-class idempotency key; we pass the lead
	// identity as a label so duplicate submissions are traceable.
	Label string `json:"label,omitempty"`
}

// --- responses: what Apollo gives back ---

type apolloPerson struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Email        string `json:"email"`
	LinkedinURL  string `json:"linkedin_url"`
	Organization struct {
		Name string `json:"name"`
	} `json:"organization"`
}

type peopleSearchResponse struct {
	People []apolloPerson `json:"people"`
}

type contactSearchResponse struct {
	Contacts []apolloPerson `json:"contacts"`
}

type createContactResponse struct {
	Contact struct {
		ID string `json:"id"`
	} `json:"contact"`
}

type addToSequenceResponse struct {
	EmailerCampaign struct {
		ID string `json:"id"`
	} `json:"emailer_campaign"`
	Contacts []struct {
		ID string `json:"id"`
	} `json:"contacts"`
}

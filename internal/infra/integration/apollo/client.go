package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/xavierca1/lead-prospector/internal/entity"
)

// Titles worth pitching a localization platform to.
var defaultTitles = []string{
	"localization",
	"internationalization",
	"i18n",
	"translation",
	"globalization",
	"product",
	"engineering",
	"VP Engineering",
	"Head of Product",
	"CTO",
	"Director of Engineering",
}

type Client struct {
	baseURL    string
	apiKey     string
	sequenceID string
	http       *http.Client
}

func NewClient(apiKey, sequenceID, baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		sequenceID: sequenceID,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// SearchPeople looks up decision makers at a company domain.
func (c *Client) SearchPeople(ctx context.Context, domain string) ([]entity.Contact, error) {
	payload := peopleSearchRequest{
		APIKey:       c.apiKey,
		Domains:      domain,
		PersonTitles: defaultTitles,
		Page:         1,
		PerPage:      10,
	}

	var response peopleSearchResponse
	if err := c.post(ctx, "mixed_people/search", payload, &response); err != nil {
		return nil, err
	}

	contacts := make([]entity.Contact, 0, len(response.People))
	for _, p := range response.People {
		contacts = append(contacts, toContact(p))
	}

	log.Printf("🔎 Apollo: %d contacts found at %s", len(contacts), domain)
	return contacts, nil
}

// FindContactByEmail returns the existing contact ID or "" when Apollo
// has never seen this email as a contact.
func (c *Client) FindContactByEmail(ctx context.Context, email string) (string, error) {
	payload := contactSearchRequest{
		APIKey:   c.apiKey,
		Keywords: email,
		Page:     1,
		PerPage:  5,
	}

	var response contactSearchResponse
	if err := c.post(ctx, "contacts/search", payload, &response); err != nil {
		return "", err
	}

	for _, contact := range response.Contacts {
		if contact.Email == email {
			return contact.ID, nil
		}
	}

	return "", nil
}

func (c *Client) CreateContact(ctx context.Context, input CreateContactInput) (string, error) {
	payload := createContactRequest{
		APIKey:            c.apiKey,
		Email:             input.Email,
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Title:             input.Title,
		OrganizationName:  input.OrganizationName,
		TypedCustomFields: input.CustomFields,
	}

	var response createContactResponse
	if err := c.post(ctx, "contacts", payload, &response); err != nil {
		return "", err
	}

	if response.Contact.ID == "" {
		return "", &APIError{StatusCode: 200, Body: "contact created without an id"}
	}

	log.Printf("👤 Apollo: contact created %s (%s)", response.Contact.ID, input.Email)
	return response.Contact.ID, nil
}

// AddToSequence enrolls the contact into the configured outreach sequence.
func (c *Client) AddToSequence(ctx context.Context, contactID, idempotencyKey string) (string, error) {
	payload := addToSequenceRequest{
		APIKey:     c.apiKey,
		ContactIDs: []string{contactID},
		CampaignID: c.sequenceID,
		Label:      idempotencyKey,
	}

	var response addToSequenceResponse
	if err := c.post(ctx, "emailer_campaigns/add_contact_ids", payload, &response); err != nil {
		return "", err
	}

	campaignID := response.EmailerCampaign.ID
	if campaignID == "" {
		campaignID = c.sequenceID
	}

	ref := fmt.Sprintf("%s:%s", campaignID, contactID)
	log.Printf("📨 Apollo: contact %s enrolled in sequence %s", contactID, campaignID)
	return ref, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("apollo marshal %s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apollo request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("❌ Apollo %s: status %d", endpoint, resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apollo decode %s: %w", endpoint, err)
	}

	return nil
}

func toContact(p apolloPerson) entity.Contact {
	name := p.Name
	if name == "" {
		name = fmt.Sprintf("%s %s", p.FirstName, p.LastName)
	}
	return entity.Contact{
		ID:       p.ID,
		Name:     name,
		Title:    p.Title,
		Email:    p.Email,
		LinkedIn: p.LinkedinURL,
	}
}

package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/lead-prospector/internal/entity"
	"github.com/xavierca1/lead-prospector/internal/infra/integration/apollo"
	"github.com/xavierca1/lead-prospector/internal/infra/queue"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByIdentity(ctx context.Context, identity string) (*entity.Lead, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListByState(ctx context.Context, state string) ([]*entity.Lead, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateCAS(ctx context.Context, lead *entity.Lead, expectedVersion int) error {
	args := m.Called(ctx, lead, expectedVersion)
	if args.Error(0) == nil {
		lead.Version = expectedVersion + 1
	}
	return args.Error(0)
}

// MockContactDirectory
type MockContactDirectory struct {
	mock.Mock
}

func (m *MockContactDirectory) SearchPeople(ctx context.Context, domain string) ([]entity.Contact, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Contact), args.Error(1)
}

func (m *MockContactDirectory) FindContactByEmail(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockContactDirectory) CreateContact(ctx context.Context, input apollo.CreateContactInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockContactDirectory) AddToSequence(ctx context.Context, contactID, idempotencyKey string) (string, error) {
	args := m.Called(ctx, contactID, idempotencyKey)
	return args.String(0), args.Error(1)
}

// MockDraftGenerator
type MockDraftGenerator struct {
	mock.Mock
}

func (m *MockDraftGenerator) Generate(ctx context.Context, lead *entity.Lead) (string, string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.String(1), args.Error(2)
}

// MockCardPublisher
type MockCardPublisher struct {
	mock.Mock
}

func (m *MockCardPublisher) PostCard(ctx context.Context, lead *entity.Lead) (*entity.CardRef, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CardRef), args.Error(1)
}

func (m *MockCardPublisher) RefreshCard(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockCardPublisher) OpenEditForm(ctx context.Context, lead *entity.Lead, triggerID string) error {
	args := m.Called(ctx, lead, triggerID)
	return args.Error(0)
}

// MockEnrollmentQueue
type MockEnrollmentQueue struct {
	mock.Mock
}

func (m *MockEnrollmentQueue) PublishEnrollment(ctx context.Context, payload queue.EnrollmentPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// MockAlertSender
type MockAlertSender struct {
	mock.Mock
}

func (m *MockAlertSender) SendLeadFailed(lead *entity.Lead, reason string) error {
	args := m.Called(lead, reason)
	return args.Error(0)
}

func testSignal() entity.Signal {
	return entity.Signal{
		Company:   "Acme GmbH",
		Domain:    "acme.dev",
		Type:      "NEW_LANG_FILE",
		Summary:   "Added de.json and fr.json to the docs site",
		Languages: []string{"de", "fr"},
		Author:    "jdoe",
		URL:       "https://github.com/acme/docs/commit/abc123",
	}
}

func testLead(state string) *entity.Lead {
	signal := testSignal()
	return &entity.Lead{
		Identity: SignalIdentity(signal),
		State:    state,
		Signal:   signal,
		Contacts: []entity.Contact{
			{ID: "apollo-1", Name: "Eva Martin", Title: "Head of Localization", Email: "eva@acme.dev"},
		},
		Draft:   entity.Draft{Subject: "Quick question about your docs", Body: "Hi {{first_name}},\n...", Version: 1},
		Version: 4,
	}
}

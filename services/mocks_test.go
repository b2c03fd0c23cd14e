package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/egor/omnidesk/models"
)

// ============================================================================
// Моки хранилищ
// ============================================================================

type MockCustomerStore struct {
	mock.Mock
}

func (m *MockCustomerStore) GetCustomerByExternal(ctx context.Context, externalID, platform string) (*models.Customer, error) {
	args := m.Called(ctx, externalID, platform)
	if result := args.Get(0); result != nil {
		return result.(*models.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerStore) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*models.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	args := m.Called(ctx, c)
	// имитируем генерацию ID хранилищем
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockCustomerStore) UpdateCustomerProfile(ctx context.Context, id uuid.UUID, name string, profileImage *string) error {
	args := m.Called(ctx, id, name, profileImage)
	return args.Error(0)
}

type MockConversationStore struct {
	mock.Mock
}

func (m *MockConversationStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConversationStore) FindOpenConversation(ctx context.Context, customerID uuid.UUID, channel string) (*models.Conversation, error) {
	args := m.Called(ctx, customerID, channel)
	if result := args.Get(0); result != nil {
		return result.(*models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConversationStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockConversationStore) UpdateConversationProfile(ctx context.Context, id uuid.UUID, name string, profileImage *string) error {
	args := m.Called(ctx, id, name, profileImage)
	return args.Error(0)
}

func (m *MockConversationStore) TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockConversationStore) AssignAgent(ctx context.Context, convID, agentID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, convID, agentID, at)
	return args.Error(0)
}

func (m *MockConversationStore) SetConversationStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockConversationStore) CountOpenByAgent(ctx context.Context, agentID uuid.UUID) (int, error) {
	args := m.Called(ctx, agentID)
	return args.Int(0), args.Error(1)
}

func (m *MockConversationStore) CountClosedByAgentSince(ctx context.Context, agentID uuid.UUID, since time.Time) (int, error) {
	args := m.Called(ctx, agentID, since)
	return args.Int(0), args.Error(1)
}

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) AddMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockMessageStore) RecentMessages(ctx context.Context, convID uuid.UUID, limit int) ([]models.Message, error) {
	args := m.Called(ctx, convID, limit)
	if result := args.Get(0); result != nil {
		return result.([]models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageStore) SetMessageStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockMessageStore) CountMessagesByAgent(ctx context.Context, agentID uuid.UUID) (int, error) {
	args := m.Called(ctx, agentID)
	return args.Int(0), args.Error(1)
}

type MockAgentStore struct {
	mock.Mock
}

func (m *MockAgentStore) GetAgent(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAgentStore) AssignableAgents(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		return result.([]models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockHoursStore struct {
	mock.Mock
}

func (m *MockHoursStore) GetBusinessDay(ctx context.Context, dayOfWeek int) (*models.BusinessHours, error) {
	args := m.Called(ctx, dayOfWeek)
	if result := args.Get(0); result != nil {
		return result.(*models.BusinessHours), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHoursStore) ListBusinessWeek(ctx context.Context) ([]models.BusinessHours, error) {
	args := m.Called(ctx)
	if result := args.Get(0); result != nil {
		return result.([]models.BusinessHours), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHoursStore) SaveBusinessDay(ctx context.Context, bh *models.BusinessHours) error {
	args := m.Called(ctx, bh)
	return args.Error(0)
}

// ============================================================================
// Моки инфраструктуры
// ============================================================================

type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) SendToClient(clientID string, data []byte) {
	m.Called(clientID, data)
}

func (m *MockBroadcaster) BroadcastToAgents(data []byte, exclude string) {
	m.Called(data, exclude)
}

type MockResponder struct {
	mock.Mock
}

func (m *MockResponder) Generate(ctx context.Context, userMessage string, history []models.Message) (string, error) {
	args := m.Called(ctx, userMessage, history)
	return args.String(0), args.Error(1)
}

// fakeHours — фиксированный результат проверки рабочих часов.
type fakeHours struct {
	open bool
	err  error
}

func (f *fakeHours) IsOpenNow(ctx context.Context, timezone string) (bool, error) {
	return f.open, f.err
}

// ============================================================================
// Вспомогательные фабрики
// ============================================================================

// testAgent создает оператора-кандидата на автораспределение.
func testAgent(name string, capacity int) models.User {
	return models.User{
		ID:                 uuid.New(),
		Email:              name + "@example.com",
		Name:               name,
		Role:               models.RoleAgent,
		Active:             true,
		Status:             models.AgentOnline,
		AutoAssign:         true,
		MaxConcurrentChats: capacity,
		CreatedAt:          time.Now(),
	}
}

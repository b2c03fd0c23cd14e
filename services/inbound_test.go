package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/egor/omnidesk/models"
)

// inboundFixture — полный пайплайн на моках. open/freeAgents управляют
// политикой автоответа.
type inboundFixture struct {
	svc       *InboundService
	customers *MockCustomerStore
	convs     *MockConversationStore
	msgs      *MockMessageStore
	agents    *MockAgentStore
	responder *MockResponder
	hub       *MockBroadcaster
	dedup     *MockDeduper
}

func newInboundFixture(open bool, dedup *MockDeduper) *inboundFixture {
	f := &inboundFixture{
		customers: new(MockCustomerStore),
		convs:     new(MockConversationStore),
		msgs:      new(MockMessageStore),
		agents:    new(MockAgentStore),
		responder: new(MockResponder),
		hub:       new(MockBroadcaster),
		dedup:     dedup,
	}

	assignment := NewAssignmentService(f.agents, f.convs, f.msgs)
	policy := NewAutoResponsePolicy(&fakeHours{open: open}, assignment, "UTC")

	var d Deduper
	if dedup != nil {
		d = dedup
	}
	f.svc = NewInboundService(f.customers, f.convs, f.msgs, assignment, policy, f.responder, f.hub, d)
	return f
}

func widgetMessage(content string) models.IncomingMessage {
	return models.IncomingMessage{
		Platform:   models.ChannelWidget,
		ExternalID: "visitor-1",
		Name:       "홍길동",
		Content:    content,
	}
}

func TestProcessInboundMessage_BlankContentIsNoOp(t *testing.T) {
	f := newInboundFixture(true, nil)

	result, err := f.svc.ProcessInboundMessage(context.Background(), widgetMessage("   \n\t  "))

	// Ни результата, ни ошибки — и ни одного побочного эффекта
	assert.NoError(t, err)
	assert.Nil(t, result)
	f.customers.AssertNotCalled(t, "GetCustomerByExternal", mock.Anything, mock.Anything, mock.Anything)
	f.msgs.AssertNotCalled(t, "AddMessage", mock.Anything, mock.Anything)
	f.hub.AssertNotCalled(t, "BroadcastToAgents", mock.Anything, mock.Anything)
}

func TestProcessInboundMessage_DuplicateEventSkipped(t *testing.T) {
	dedup := new(MockDeduper)
	dedup.On("Seen", mock.Anything, "evt-42").Return(true, nil)
	f := newInboundFixture(true, dedup)

	in := widgetMessage("안녕하세요")
	in.EventID = "evt-42"

	result, err := f.svc.ProcessInboundMessage(context.Background(), in)

	assert.NoError(t, err)
	assert.Nil(t, result)
	f.customers.AssertNotCalled(t, "GetCustomerByExternal", mock.Anything, mock.Anything, mock.Anything)
	f.msgs.AssertNotCalled(t, "AddMessage", mock.Anything, mock.Anything)
}

func TestProcessInboundMessage_GreetingOutsideHoursGetsAutoResponse(t *testing.T) {
	// Вне рабочих часов, новый посетитель виджета, простое приветствие
	f := newInboundFixture(false, nil)

	f.customers.On("GetCustomerByExternal", mock.Anything, "visitor-1", models.ChannelWidget).Return(nil, nil)
	f.customers.On("CreateCustomer", mock.Anything, mock.Anything).Return(nil)
	f.convs.On("FindOpenConversation", mock.Anything, mock.Anything, models.ChannelWidget).Return(nil, nil)
	f.convs.On("CreateConversation", mock.Anything, mock.Anything).Return(nil)
	// автоназначение best-effort: диалог «не найден» не срывает пайплайн
	f.convs.On("GetConversation", mock.Anything, mock.Anything).Return(nil, nil)
	f.msgs.On("AddMessage", mock.Anything, mock.Anything).Return(nil)
	f.convs.On("TouchConversation", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.msgs.On("RecentMessages", mock.Anything, mock.Anything, historyLimit).Return(nil, nil)
	f.responder.On("Generate", mock.Anything, "안녕하세요", mock.Anything).Return("안녕하세요! 무엇을 도와드릴까요?", nil)
	f.hub.On("BroadcastToAgents", mock.Anything, "").Return()
	f.hub.On("SendToClient", "widget_visitor-1", mock.Anything).Return()

	result, err := f.svc.ProcessInboundMessage(context.Background(), widgetMessage("안녕하세요"))

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.True(t, result.AIResponded)
	// два сообщения: клиента и бота
	f.msgs.AssertNumberOfCalls(t, "AddMessage", 2)
	// автоответ ушел и в виджет посетителя
	f.hub.AssertCalled(t, "SendToClient", "widget_visitor-1", mock.Anything)
}

func TestProcessInboundMessage_ComplexKeywordWaitsForHuman(t *testing.T) {
	// Рабочие часы, но вопрос про договор и суд — только живой оператор
	f := newInboundFixture(true, nil)

	customer := &models.Customer{
		ID:         uuid.New(),
		ExternalID: "visitor-1",
		Platform:   models.ChannelWidget,
		Name:       "홍길동",
	}
	conv := &models.Conversation{
		ID:          uuid.New(),
		CustomerID:  customer.ID,
		ChannelType: models.ChannelWidget,
		Status:      models.ConversationOpen,
	}

	f.customers.On("GetCustomerByExternal", mock.Anything, "visitor-1", models.ChannelWidget).Return(customer, nil)
	f.convs.On("FindOpenConversation", mock.Anything, customer.ID, models.ChannelWidget).Return(conv, nil)
	f.convs.On("UpdateConversationProfile", mock.Anything, conv.ID, mock.Anything, mock.Anything).Return(nil)
	f.msgs.On("AddMessage", mock.Anything, mock.Anything).Return(nil)
	f.convs.On("TouchConversation", mock.Anything, conv.ID, mock.Anything).Return(nil)
	f.hub.On("BroadcastToAgents", mock.Anything, "").Return()

	result, err := f.svc.ProcessInboundMessage(context.Background(), widgetMessage("계약 관련 소송 문의"))

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.False(t, result.AIResponded)
	assert.Equal(t, conv.ID, result.ConversationID)
	f.responder.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	f.msgs.AssertNumberOfCalls(t, "AddMessage", 1)
}

func TestProcessInboundMessage_ReusesCustomerAndOpenConversation(t *testing.T) {
	f := newInboundFixture(true, nil)

	customer := &models.Customer{
		ID:         uuid.New(),
		ExternalID: "visitor-1",
		Platform:   models.ChannelWidget,
		Name:       "홍길동",
	}
	name := customer.Name
	conv := &models.Conversation{
		ID:          uuid.New(),
		CustomerID:  customer.ID,
		ChannelType: models.ChannelWidget,
		Status:      models.ConversationOpen,
		ProfileName: &name,
	}
	agent := testAgent("상담원", 5)

	f.customers.On("GetCustomerByExternal", mock.Anything, "visitor-1", models.ChannelWidget).Return(customer, nil)
	f.convs.On("FindOpenConversation", mock.Anything, customer.ID, models.ChannelWidget).Return(conv, nil)
	f.msgs.On("AddMessage", mock.Anything, mock.Anything).Return(nil)
	f.convs.On("TouchConversation", mock.Anything, conv.ID, mock.Anything).Return(nil)
	f.agents.On("AssignableAgents", mock.Anything).Return([]models.User{agent}, nil)
	f.convs.On("CountOpenByAgent", mock.Anything, agent.ID).Return(0, nil)
	f.hub.On("BroadcastToAgents", mock.Anything, "").Return()

	result, err := f.svc.ProcessInboundMessage(context.Background(), widgetMessage("주문 취소해 주세요"))

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, conv.ID, result.ConversationID)
	assert.False(t, result.AIResponded)
	// существующие клиент и диалог, ничего не создаем
	f.customers.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
	f.convs.AssertNotCalled(t, "CreateConversation", mock.Anything, mock.Anything)
}

func TestProcessInboundMessage_UpdatesChangedProfile(t *testing.T) {
	f := newInboundFixture(true, nil)

	customer := &models.Customer{
		ID:         uuid.New(),
		ExternalID: "visitor-1",
		Platform:   models.ChannelWidget,
		Name:       "старое имя",
	}
	name := customer.Name
	conv := &models.Conversation{
		ID:          uuid.New(),
		CustomerID:  customer.ID,
		ChannelType: models.ChannelWidget,
		Status:      models.ConversationOpen,
		ProfileName: &name,
	}
	agent := testAgent("상담원", 5)

	f.customers.On("GetCustomerByExternal", mock.Anything, "visitor-1", models.ChannelWidget).Return(customer, nil)
	f.customers.On("UpdateCustomerProfile", mock.Anything, customer.ID, "홍길동", mock.Anything).Return(nil)
	f.convs.On("FindOpenConversation", mock.Anything, customer.ID, models.ChannelWidget).Return(conv, nil)
	f.convs.On("UpdateConversationProfile", mock.Anything, conv.ID, "홍길동", mock.Anything).Return(nil)
	f.msgs.On("AddMessage", mock.Anything, mock.Anything).Return(nil)
	f.convs.On("TouchConversation", mock.Anything, conv.ID, mock.Anything).Return(nil)
	f.agents.On("AssignableAgents", mock.Anything).Return([]models.User{agent}, nil)
	f.convs.On("CountOpenByAgent", mock.Anything, agent.ID).Return(0, nil)
	f.hub.On("BroadcastToAgents", mock.Anything, "").Return()

	_, err := f.svc.ProcessInboundMessage(context.Background(), widgetMessage("주문 취소해 주세요"))

	assert.NoError(t, err)
	f.customers.AssertCalled(t, "UpdateCustomerProfile", mock.Anything, customer.ID, "홍길동", mock.Anything)
}

func TestProcessInboundMessage_ResponderFailureDegrades(t *testing.T) {
	// Генерация упала — клиент просто ждет оператора, ошибки наружу нет
	f := newInboundFixture(false, nil)

	f.customers.On("GetCustomerByExternal", mock.Anything, "visitor-1", models.ChannelWidget).Return(nil, nil)
	f.customers.On("CreateCustomer", mock.Anything, mock.Anything).Return(nil)
	f.convs.On("FindOpenConversation", mock.Anything, mock.Anything, models.ChannelWidget).Return(nil, nil)
	f.convs.On("CreateConversation", mock.Anything, mock.Anything).Return(nil)
	f.convs.On("GetConversation", mock.Anything, mock.Anything).Return(nil, nil)
	f.msgs.On("AddMessage", mock.Anything, mock.Anything).Return(nil)
	f.convs.On("TouchConversation", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.msgs.On("RecentMessages", mock.Anything, mock.Anything, historyLimit).Return(nil, nil)
	f.responder.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", assert.AnError)
	f.hub.On("BroadcastToAgents", mock.Anything, "").Return()

	result, err := f.svc.ProcessInboundMessage(context.Background(), widgetMessage("배송 문의합니다"))

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.False(t, result.AIResponded)
	f.msgs.AssertNumberOfCalls(t, "AddMessage", 1)
	f.hub.AssertNotCalled(t, "SendToClient", mock.Anything, mock.Anything)
}

func TestProcessInboundMessage_HistoryDropsJustSavedMessage(t *testing.T) {
	// Последнее сообщение истории — только что сохраненное сообщение
	// клиента; в промпт оно уходит отдельно и из истории вырезается
	f := newInboundFixture(false, nil)

	customer := &models.Customer{
		ID: uuid.New(), ExternalID: "visitor-1", Platform: models.ChannelWidget, Name: "홍길동",
	}
	name := customer.Name
	conv := &models.Conversation{
		ID: uuid.New(), CustomerID: customer.ID, ChannelType: models.ChannelWidget,
		Status: models.ConversationOpen, ProfileName: &name,
	}

	history := []models.Message{
		{SenderType: models.SenderBot, Content: "무엇을 도와드릴까요?"},
		{SenderType: models.SenderCustomer, Content: "배송 언제 오나요"},
	}

	f.customers.On("GetCustomerByExternal", mock.Anything, "visitor-1", models.ChannelWidget).Return(customer, nil)
	f.convs.On("FindOpenConversation", mock.Anything, customer.ID, models.ChannelWidget).Return(conv, nil)
	f.msgs.On("AddMessage", mock.Anything, mock.Anything).Return(nil)
	f.convs.On("TouchConversation", mock.Anything, conv.ID, mock.Anything).Return(nil)
	f.msgs.On("RecentMessages", mock.Anything, conv.ID, historyLimit).Return(history, nil)
	f.responder.On("Generate", mock.Anything, "배송 언제 오나요", mock.MatchedBy(func(h []models.Message) bool {
		return len(h) == 1 && h[0].SenderType == models.SenderBot
	})).Return("곧 도착합니다", nil)
	f.hub.On("BroadcastToAgents", mock.Anything, "").Return()
	f.hub.On("SendToClient", mock.Anything, mock.Anything).Return()

	result, err := f.svc.ProcessInboundMessage(context.Background(), widgetMessage("배송 언제 오나요"))

	assert.NoError(t, err)
	assert.True(t, result.AIResponded)
	f.responder.AssertExpectations(t)
}

func TestClientIDConventions(t *testing.T) {
	agentID := uuid.New()
	assert.Equal(t, "agent_"+agentID.String(), AgentClientID(agentID))
	assert.Equal(t, "widget_visitor-1", WidgetClientID("visitor-1"))
}

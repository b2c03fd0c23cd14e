package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/egor/omnidesk/models"
)

func newAssignmentFixture() (*AssignmentService, *MockAgentStore, *MockConversationStore, *MockMessageStore) {
	agents := new(MockAgentStore)
	convs := new(MockConversationStore)
	msgs := new(MockMessageStore)
	return NewAssignmentService(agents, convs, msgs), agents, convs, msgs
}

func TestAvailableAgents_FiltersFullAgents(t *testing.T) {
	svc, agents, convs, _ := newAssignmentFixture()

	// Два кандидата: у первого есть запас, второй занят под завязку
	free := testAgent("김지은", 5)
	full := testAgent("박민수", 3)
	agents.On("AssignableAgents", mock.Anything).Return([]models.User{free, full}, nil)
	convs.On("CountOpenByAgent", mock.Anything, free.ID).Return(2, nil)
	convs.On("CountOpenByAgent", mock.Anything, full.ID).Return(3, nil)

	available, err := svc.AvailableAgents(context.Background())

	assert.NoError(t, err)
	assert.Len(t, available, 1)
	assert.Equal(t, free.ID, available[0].Agent.ID)
	assert.Equal(t, 2, available[0].CurrentLoad)
	assert.Equal(t, 5, available[0].Capacity)
}

func TestAvailableAgents_SortedByLoadAscending(t *testing.T) {
	svc, agents, convs, _ := newAssignmentFixture()

	busy := testAgent("busy", 10)
	idle := testAgent("idle", 10)
	agents.On("AssignableAgents", mock.Anything).Return([]models.User{busy, idle}, nil)
	convs.On("CountOpenByAgent", mock.Anything, busy.ID).Return(4, nil)
	convs.On("CountOpenByAgent", mock.Anything, idle.ID).Return(0, nil)

	available, err := svc.AvailableAgents(context.Background())

	assert.NoError(t, err)
	assert.Len(t, available, 2)
	assert.Equal(t, idle.ID, available[0].Agent.ID)
	assert.Equal(t, busy.ID, available[1].Agent.ID)
}

func TestAvailableAgents_EqualLoadKeepsStoreOrder(t *testing.T) {
	svc, agents, convs, _ := newAssignmentFixture()

	// Хранилище отдает кандидатов по created_at; при равной нагрузке
	// этот порядок должен сохраниться
	first := testAgent("first", 5)
	second := testAgent("second", 5)
	agents.On("AssignableAgents", mock.Anything).Return([]models.User{first, second}, nil)
	convs.On("CountOpenByAgent", mock.Anything, first.ID).Return(1, nil)
	convs.On("CountOpenByAgent", mock.Anything, second.ID).Return(1, nil)

	available, err := svc.AvailableAgents(context.Background())

	assert.NoError(t, err)
	assert.Len(t, available, 2)
	assert.Equal(t, first.ID, available[0].Agent.ID)
}

func TestAssignToConversation_PicksLeastLoaded(t *testing.T) {
	svc, agents, convs, _ := newAssignmentFixture()
	convID := uuid.New()

	loaded := testAgent("loaded", 5)
	light := testAgent("light", 3)
	conv := &models.Conversation{ID: convID, Status: models.ConversationOpen}

	convs.On("GetConversation", mock.Anything, convID).Return(conv, nil)
	agents.On("AssignableAgents", mock.Anything).Return([]models.User{loaded, light}, nil)
	convs.On("CountOpenByAgent", mock.Anything, loaded.ID).Return(2, nil)
	convs.On("CountOpenByAgent", mock.Anything, light.ID).Return(1, nil)
	convs.On("AssignAgent", mock.Anything, convID, light.ID, mock.Anything).Return(nil)

	ok, err := svc.AssignToConversation(context.Background(), convID)

	assert.NoError(t, err)
	assert.True(t, ok)
	convs.AssertCalled(t, "AssignAgent", mock.Anything, convID, light.ID, mock.Anything)
}

func TestAssignToConversation_IdempotentWhenAlreadyAssigned(t *testing.T) {
	svc, agents, convs, _ := newAssignmentFixture()
	convID := uuid.New()
	agentID := uuid.New()

	conv := &models.Conversation{ID: convID, AssignedAgentID: &agentID}
	convs.On("GetConversation", mock.Anything, convID).Return(conv, nil)

	ok, err := svc.AssignToConversation(context.Background(), convID)

	assert.NoError(t, err)
	assert.True(t, ok)
	agents.AssertNotCalled(t, "AssignableAgents", mock.Anything)
	convs.AssertNotCalled(t, "AssignAgent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignToConversation_NoAgentsAvailable(t *testing.T) {
	svc, agents, convs, _ := newAssignmentFixture()
	convID := uuid.New()

	conv := &models.Conversation{ID: convID}
	convs.On("GetConversation", mock.Anything, convID).Return(conv, nil)
	agents.On("AssignableAgents", mock.Anything).Return([]models.User{}, nil)

	// «Некому назначить» — валидный исход, не ошибка
	ok, err := svc.AssignToConversation(context.Background(), convID)

	assert.NoError(t, err)
	assert.False(t, ok)
	convs.AssertNotCalled(t, "AssignAgent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignToConversation_ConversationMissing(t *testing.T) {
	svc, _, convs, _ := newAssignmentFixture()
	convID := uuid.New()

	convs.On("GetConversation", mock.Anything, convID).Return(nil, nil)

	ok, err := svc.AssignToConversation(context.Background(), convID)

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAssignToConversation_StoreError(t *testing.T) {
	svc, _, convs, _ := newAssignmentFixture()
	convID := uuid.New()

	convs.On("GetConversation", mock.Anything, convID).Return(nil, errors.New("база недоступна"))

	ok, err := svc.AssignToConversation(context.Background(), convID)

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestReassign_SkipsCapacityCheck(t *testing.T) {
	svc, agents, convs, _ := newAssignmentFixture()
	convID := uuid.New()

	// Оператор на пределе лимита — ручное переназначение все равно проходит
	agent := testAgent("перегруженный", 3)
	conv := &models.Conversation{ID: convID}

	convs.On("GetConversation", mock.Anything, convID).Return(conv, nil)
	agents.On("GetAgent", mock.Anything, agent.ID).Return(&agent, nil)
	convs.On("AssignAgent", mock.Anything, convID, agent.ID, mock.Anything).Return(nil)

	ok, err := svc.Reassign(context.Background(), convID, agent.ID)

	assert.NoError(t, err)
	assert.True(t, ok)
	convs.AssertNotCalled(t, "CountOpenByAgent", mock.Anything, mock.Anything)
}

func TestReassign_RejectsNonAgent(t *testing.T) {
	svc, agents, convs, _ := newAssignmentFixture()
	convID := uuid.New()

	admin := testAgent("admin", 5)
	admin.Role = models.RoleAdmin
	conv := &models.Conversation{ID: convID}

	convs.On("GetConversation", mock.Anything, convID).Return(conv, nil)
	agents.On("GetAgent", mock.Anything, admin.ID).Return(&admin, nil)

	ok, err := svc.Reassign(context.Background(), convID, admin.ID)

	assert.NoError(t, err)
	assert.False(t, ok)
	convs.AssertNotCalled(t, "AssignAgent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReassign_UnknownAgent(t *testing.T) {
	svc, agents, convs, _ := newAssignmentFixture()
	convID := uuid.New()
	agentID := uuid.New()

	conv := &models.Conversation{ID: convID}
	convs.On("GetConversation", mock.Anything, convID).Return(conv, nil)
	agents.On("GetAgent", mock.Anything, agentID).Return(nil, nil)

	ok, err := svc.Reassign(context.Background(), convID, agentID)

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAgentStatistics(t *testing.T) {
	svc, _, convs, msgs := newAssignmentFixture()
	agentID := uuid.New()

	now := time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	todayStart := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	convs.On("CountOpenByAgent", mock.Anything, agentID).Return(3, nil)
	convs.On("CountClosedByAgentSince", mock.Anything, agentID, todayStart).Return(7, nil)
	msgs.On("CountMessagesByAgent", mock.Anything, agentID).Return(120, nil)

	stats, err := svc.AgentStatistics(context.Background(), agentID)

	assert.NoError(t, err)
	assert.Equal(t, 3, stats.ActiveChats)
	assert.Equal(t, 7, stats.ClosedToday)
	assert.Equal(t, 120, stats.TotalMessages)
}

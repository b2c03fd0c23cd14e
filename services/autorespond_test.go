package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/egor/omnidesk/models"
)

// policyFixture собирает политику с управляемыми рабочими часами
// и заданным числом свободных операторов.
func policyFixture(open bool, freeAgents int) *AutoResponsePolicy {
	agents := new(MockAgentStore)
	convs := new(MockConversationStore)
	msgs := new(MockMessageStore)

	var candidates []models.User
	for i := 0; i < freeAgents; i++ {
		a := testAgent("agent", 5)
		convs.On("CountOpenByAgent", mock.Anything, a.ID).Return(0, nil)
		candidates = append(candidates, a)
	}
	agents.On("AssignableAgents", mock.Anything).Return(candidates, nil)

	assignment := NewAssignmentService(agents, convs, msgs)
	return NewAutoResponsePolicy(&fakeHours{open: open}, assignment, "UTC")
}

func TestShouldAutoRespond_ComplexKeywordAlwaysWins(t *testing.T) {
	// Сложный ключ перебивает все: даже вне рабочих часов и без
	// свободных операторов такое сообщение ждет живого человека
	policy := policyFixture(false, 0)

	assert.False(t, policy.ShouldAutoRespond(context.Background(), "계약 관련 소송 문의드립니다"))
	assert.False(t, policy.ShouldAutoRespond(context.Background(), "urgent: need legal help"))
	assert.False(t, policy.ShouldAutoRespond(context.Background(), "соедините с оператором"))
}

func TestShouldAutoRespond_OutsideBusinessHours(t *testing.T) {
	policy := policyFixture(false, 3)

	assert.True(t, policy.ShouldAutoRespond(context.Background(), "배송 일정이 어떻게 되나요"))
}

func TestShouldAutoRespond_NoAvailableAgents(t *testing.T) {
	// Рабочие часы, но все операторы заняты
	policy := policyFixture(true, 0)

	assert.True(t, policy.ShouldAutoRespond(context.Background(), "배송 문제가 있어요"))
}

func TestShouldAutoRespond_SimpleKeyword(t *testing.T) {
	// Рабочие часы, операторы свободны, но вопрос простой — бот справится
	policy := policyFixture(true, 2)

	assert.True(t, policy.ShouldAutoRespond(context.Background(), "안녕하세요!"))
	assert.True(t, policy.ShouldAutoRespond(context.Background(), "hello there"))
}

func TestShouldAutoRespond_DefaultIsHuman(t *testing.T) {
	// Обычное сообщение в рабочее время со свободными операторами
	policy := policyFixture(true, 2)

	assert.False(t, policy.ShouldAutoRespond(context.Background(), "주문 취소해 주세요"))
}

func TestShouldAutoRespond_HoursErrorTreatedAsOpen(t *testing.T) {
	agents := new(MockAgentStore)
	convs := new(MockConversationStore)
	msgs := new(MockMessageStore)
	a := testAgent("agent", 5)
	agents.On("AssignableAgents", mock.Anything).Return([]models.User{a}, nil)
	convs.On("CountOpenByAgent", mock.Anything, a.ID).Return(0, nil)

	assignment := NewAssignmentService(agents, convs, msgs)
	hours := &fakeHours{err: errors.New("база недоступна")}
	policy := NewAutoResponsePolicy(hours, assignment, "UTC")

	// Сбой проверки часов трактуем как «работаем»: операторы свободны,
	// сообщение без простых ключей ждет человека
	assert.False(t, policy.ShouldAutoRespond(context.Background(), "주문 취소해 주세요"))
}

// Package services содержит ядро: распределение операторов, проверку
// рабочих часов, политику автоответа и пайплайн входящих сообщений.
// Хранилище описано интерфейсами, реализуемыми пакетом database, —
// сервисы конструируются явно и тестируются на моках.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
)

// CustomerStore — операции над клиентами.
type CustomerStore interface {
	GetCustomerByExternal(ctx context.Context, externalID, platform string) (*models.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	UpdateCustomerProfile(ctx context.Context, id uuid.UUID, name string, profileImage *string) error
}

// ConversationStore — операции над диалогами.
type ConversationStore interface {
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindOpenConversation(ctx context.Context, customerID uuid.UUID, channel string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	UpdateConversationProfile(ctx context.Context, id uuid.UUID, name string, profileImage *string) error
	TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error
	AssignAgent(ctx context.Context, convID, agentID uuid.UUID, at time.Time) error
	SetConversationStatus(ctx context.Context, id uuid.UUID, status string) error
	CountOpenByAgent(ctx context.Context, agentID uuid.UUID) (int, error)
	CountClosedByAgentSince(ctx context.Context, agentID uuid.UUID, since time.Time) (int, error)
}

// MessageStore — операции над сообщениями.
type MessageStore interface {
	AddMessage(ctx context.Context, m *models.Message) error
	RecentMessages(ctx context.Context, convID uuid.UUID, limit int) ([]models.Message, error)
	SetMessageStatus(ctx context.Context, id uuid.UUID, status string) error
	CountMessagesByAgent(ctx context.Context, agentID uuid.UUID) (int, error)
}

// AgentStore — операции над операторами.
type AgentStore interface {
	GetAgent(ctx context.Context, id uuid.UUID) (*models.User, error)
	AssignableAgents(ctx context.Context) ([]models.User, error)
}

// HoursStore — таблица рабочих часов.
type HoursStore interface {
	GetBusinessDay(ctx context.Context, dayOfWeek int) (*models.BusinessHours, error)
	ListBusinessWeek(ctx context.Context) ([]models.BusinessHours, error)
	SaveBusinessDay(ctx context.Context, bh *models.BusinessHours) error
}

// Deduper отсеивает повторные события вебхуков. Может быть nil.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Broadcaster — доставка событий в живые соединения.
type Broadcaster interface {
	SendToClient(clientID string, data []byte)
	BroadcastToAgents(data []byte, exclude string)
}

// Responder генерирует ответ автоответчика.
// Пустая строка без ошибки означает «ответа не будет».
type Responder interface {
	Generate(ctx context.Context, userMessage string, history []models.Message) (string, error)
}

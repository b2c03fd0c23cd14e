package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы диалога
const (
	ConversationOpen      = "open"
	ConversationConnected = "connected" // оператор явно взял диалог в работу
	ConversationWaiting   = "waiting"
	ConversationClosed    = "closed"
)

// Типы каналов
const (
	ChannelWidget    = "widget"
	ChannelKakao     = "kakao"
	ChannelInstagram = "instagram"
	ChannelFacebook  = "facebook"
	ChannelEmail     = "email"
)

// Conversation представляет собой один диалог клиента с поддержкой в одном канале.
// Инвариант: не более одного открытого диалога на пару (клиент, канал).
type Conversation struct {
	ID          uuid.UUID `json:"id"`
	CustomerID  uuid.UUID `json:"customerId"`
	ChannelType string    `json:"channelType"` // widget/kakao/instagram/facebook/email
	Status      string    `json:"status"`      // open/connected/waiting/closed

	// Назначение оператора
	AssignedAgentID *uuid.UUID `json:"assignedAgentId,omitempty"`
	AssignedAt      *time.Time `json:"assignedAt,omitempty"`
	Priority        int        `json:"priority"`

	// Агрегаты
	UnreadCount   int        `json:"unreadCount"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`

	// Денормализованный снимок профиля клиента для отображения
	ProfileName  *string `json:"profileName,omitempty"`
	ProfileImage *string `json:"profileImage,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConversationSummary для списка диалогов на фронтенде
type ConversationSummary struct {
	Conversation
	CustomerName string   `json:"customerName"`
	LastMessage  *Message `json:"lastMessage,omitempty"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы отправителей
const (
	SenderCustomer = "customer"
	SenderAgent    = "agent"
	SenderBot      = "bot"
	SenderSystem   = "system"
)

// Статусы доставки
const (
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
	MessageFailed    = "failed"
)

// Message представляет собой одно сообщение в диалоге.
// Сообщения append-only: после создания меняется только статус доставки.
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	SenderType     string     `json:"senderType"` // customer/agent/bot/system
	SenderID       *uuid.UUID `json:"senderId,omitempty"`
	Content        string     `json:"content"`
	Channel        string     `json:"channel"`     // из какого канала пришло
	MessageType    string     `json:"messageType"` // text/image/video/file/...

	// Файловые поля
	FileURL      *string `json:"fileUrl,omitempty"`
	FileType     *string `json:"fileType,omitempty"`
	FileSize     *int64  `json:"fileSize,omitempty"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`

	Status      string     `json:"status"` // sent/delivered/read/failed
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// IncomingMessage представляет собой нормализованное входящее сообщение из любого канала.
type IncomingMessage struct {
	Platform     string  `json:"platform"`
	ExternalID   string  `json:"externalId"`
	Name         string  `json:"name"`
	Content      string  `json:"content"`
	ProfileImage *string `json:"profileImage,omitempty"`
	MessageType  string  `json:"messageType,omitempty"`
	EventID      string  `json:"eventId,omitempty"` // ID события платформы для дедупликации ретраев
}

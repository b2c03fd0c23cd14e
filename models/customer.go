package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer представляет собой клиента, написавшего из внешнего канала.
// Пара (ExternalID, Platform) уникальна: один и тот же человек из двух каналов —
// это две разные записи, объединение не выполняется.
type Customer struct {
	ID           uuid.UUID `json:"id"`
	ExternalID   string    `json:"externalId"` // ID в источнике: SNS ID, телефон, cookie виджета
	Platform     string    `json:"platform"`   // kakao / instagram / facebook / widget / email
	Name         string    `json:"name"`
	Phone        *string   `json:"phone,omitempty"`
	ProfileImage *string   `json:"profileImage,omitempty"`
	Gender       *string   `json:"gender,omitempty"`
	Age          *string   `json:"age,omitempty"`
	Tags         *string   `json:"tags,omitempty"` // через запятую: VIP, 신규고객 и т.д.
	Memo         *string   `json:"memo,omitempty"` // заметки оператора
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

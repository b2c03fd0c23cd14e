package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли сотрудников
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// Статусы оператора
const (
	AgentOnline  = "online"
	AgentOffline = "offline"
	AgentAway    = "away"
	AgentBusy    = "busy"
)

// User представляет собой сотрудника: оператора поддержки или администратора.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // "admin" или "agent"
	Active       bool      `json:"active"`

	// Состояние оператора для автоматического распределения
	Status             string `json:"status"`             // online / offline / away / busy
	AutoAssign         bool   `json:"autoAssign"`         // участвует ли в автораспределении
	MaxConcurrentChats int    `json:"maxConcurrentChats"` // лимит одновременных диалогов

	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// AgentLoad — оператор вместе с его текущей нагрузкой.
type AgentLoad struct {
	Agent       User `json:"agent"`
	CurrentLoad int  `json:"currentLoad"`
	Capacity    int  `json:"capacity"`
}

// AgentStats — статистика работы оператора.
type AgentStats struct {
	ActiveChats   int `json:"activeChats"`
	ClosedToday   int `json:"closedToday"`
	TotalMessages int `json:"totalMessages"`
}

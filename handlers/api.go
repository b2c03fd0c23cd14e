// Package handlers связывает HTTP/WebSocket слой с сервисами ядра.
// Все зависимости передаются явно через конструктор — глобальных
// синглтонов нет, обработчики тестируются с подменой сервисов.
package handlers

import (
	"github.com/egor/omnidesk/database"
	"github.com/egor/omnidesk/services"
	"github.com/egor/omnidesk/websocket"
)

// PaginationResponse стандартная структура ответа с пагинацией
type PaginationResponse struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalItems int         `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}

// API — набор HTTP-обработчиков со всеми зависимостями.
type API struct {
	store      *database.Store
	hub        *websocket.Hub
	inbound    *services.InboundService
	assignment *services.AssignmentService
	reply      *services.ReplyService
	policy     *services.AutoResponsePolicy
	hours      *services.HoursService
}

// NewAPI создает обработчики с внедренными зависимостями.
func NewAPI(
	store *database.Store,
	hub *websocket.Hub,
	inbound *services.InboundService,
	assignment *services.AssignmentService,
	reply *services.ReplyService,
	policy *services.AutoResponsePolicy,
	hours *services.HoursService,
) *API {
	return &API{
		store:      store,
		hub:        hub,
		inbound:    inbound,
		assignment: assignment,
		reply:      reply,
		policy:     policy,
		hours:      hours,
	}
}

func totalPages(totalItems, pageSize int) int {
	pages := (totalItems + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

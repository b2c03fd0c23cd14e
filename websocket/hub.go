package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Role — роль подключения. Храним явную роль вместо разбора префикса ID,
// чтобы случайное совпадение префикса не попадало в рассылку операторам.
type Role int

const (
	RoleOther Role = iota
	RoleAgent
	RoleWidget
)

// Hub хранит живые соединения по логическому ID клиента
// (по соглашению "agent_<uuid>" / "widget_<externalID>") и доставляет им сообщения.
// Доставка best-effort: офлайн-клиенты молча пропускаются, очередей нет.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register регистрирует клиента под его ID. Прежняя запись с тем же ID
// вытесняется (last-write-wins): старое соединение закрывается.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	old, existed := h.clients[c.ClientID]
	h.clients[c.ClientID] = c
	total := len(h.clients)
	h.mu.Unlock()

	if existed && old != c {
		close(old.send)
		log.Printf("[hub] клиент %s переподключился, старое соединение закрыто", c.ClientID)
	}
	log.Printf("[hub] клиент %s подключился. Всего клиентов: %d", c.ClientID, total)
}

// Unregister удаляет клиента, если он все еще зарегистрирован под своим ID.
// Идемпотентно: повторный вызов или незнакомый клиент — no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.ClientID]
	if ok && current == c {
		delete(h.clients, c.ClientID)
	} else {
		ok = false
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
		log.Printf("[hub] клиент %s отключился. Всего клиентов: %d", c.ClientID, total)
	}
}

// SendToClient доставляет данные клиенту с указанным ID.
// Если клиент не подключен — молча no-op. Ошибка доставки логируется,
// клиент остается зарегистрированным: снятие только через Unregister.
func (h *Hub) SendToClient(clientID string, data []byte) {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.deliver(c, data)
}

// BroadcastAll доставляет данные всем подключенным клиентам.
// Ошибка доставки одному получателю не прерывает рассылку остальным.
func (h *Hub) BroadcastAll(data []byte) {
	for _, c := range h.snapshot() {
		h.deliver(c, data)
	}
}

// BroadcastToAgents доставляет данные только соединениям с ролью оператора,
// опционально исключая одного (чтобы не возвращать отправителю его же действие).
func (h *Hub) BroadcastToAgents(data []byte, exclude string) {
	for _, c := range h.snapshot() {
		if c.Role != RoleAgent {
			continue
		}
		if exclude != "" && c.ClientID == exclude {
			continue
		}
		h.deliver(c, data)
	}
}

// BroadcastToAgentsJSON сериализует объект и рассылает его операторам.
func (h *Hub) BroadcastToAgentsJSON(payload interface{}, exclude string) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[hub] ошибка при маршализации сообщения: %v", err)
		return
	}
	h.BroadcastToAgents(data, exclude)
}

// Count возвращает число подключенных клиентов.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// snapshot копирует текущий список клиентов, чтобы не держать блокировку
// на время доставки.
func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// deliver кладет данные в исходящий канал клиента. Переполненный или
// закрытый канал — ошибка доставки, не причина падения.
func (h *Hub) deliver(c *Client, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			// канал закрыт между проверкой и отправкой — клиент как раз отключался
			log.Printf("[hub] доставка клиенту %s не удалась: %v", c.ClientID, r)
		}
	}()

	select {
	case c.send <- data:
	default:
		log.Printf("[hub] буфер клиента %s переполнен, сообщение отброшено", c.ClientID)
	}
}

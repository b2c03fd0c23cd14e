package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/egor/omnidesk/middleware"
	"github.com/egor/omnidesk/models"
	"github.com/egor/omnidesk/services"
	"github.com/egor/omnidesk/websocket"
)

// wsUpgrader апгрейдит HTTP→WebSocket с проверкой Origin
var wsUpgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// checkOrigin проверяет, разрешен ли Origin для подключения
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Разрешаем локальные подключения без Origin
		host := r.Host
		return strings.HasPrefix(host, "localhost:") || strings.HasPrefix(host, "127.0.0.1:")
	}

	allowedOrigins := []string{}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}
	if additional := os.Getenv("ADDITIONAL_ALLOWED_ORIGINS"); additional != "" {
		for _, url := range strings.Split(additional, ",") {
			url = strings.TrimSpace(url)
			if url != "" {
				allowedOrigins = append(allowedOrigins, url)
			}
		}
	}

	for _, allowed := range allowedOrigins {
		if allowed == origin {
			return true
		}
	}

	// Для разработки можно разрешить все origins
	if os.Getenv("ALLOW_ALL_ORIGINS") == "true" {
		log.Printf("ВНИМАНИЕ: Разрешен origin %s (ALLOW_ALL_ORIGINS=true)", origin)
		return true
	}

	log.Printf("Отклонен origin: %s", origin)
	return false
}

// ServeWs обрабатывает WebSocket соединение оператора или виджета
func (a *API) ServeWs(c *gin.Context) {
	log.Printf("ServeWs: новое соединение от %s, origin: %s",
		c.ClientIP(), c.Request.Header.Get("Origin"))

	token := c.Query("token")
	clientType := c.DefaultQuery("type", "agent")
	externalID := c.Query("external_id")

	var clientID string
	var role websocket.Role
	var agentID uuid.UUID

	switch {
	case clientType == "agent" && token != "":
		claims, err := middleware.ValidateToken(token)
		if err != nil {
			log.Printf("ServeWs: ошибка валидации токена: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный токен"})
			return
		}
		agentID, err = uuid.Parse(claims.AgentID)
		if err != nil {
			log.Printf("ServeWs: ошибка парсинга agentID: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный agentID"})
			return
		}
		clientID = services.AgentClientID(agentID)
		role = websocket.RoleAgent
		log.Printf("ServeWs: аутентифицирован оператор %s", agentID)

	case clientType == "widget":
		if externalID == "" {
			log.Printf("ServeWs: для виджета отсутствует external_id")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Для виджета обязателен параметр external_id"})
			return
		}
		clientID = services.WidgetClientID(externalID)
		role = websocket.RoleWidget
		log.Printf("ServeWs: подключение виджета, external_id: %s", externalID)

	default:
		log.Printf("ServeWs: неверный тип клиента или отсутствует токен")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный тип клиента или отсутствует токен"})
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ServeWs: ошибка апгрейда соединения: %v", err)
		return
	}

	client := websocket.NewClient(a.hub, conn, clientID, role, agentID)
	a.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(a.processWebSocketMessage)

	log.Printf("ServeWs: клиент %s успешно подключен (всего: %d)", clientID, a.hub.Count())
}

// processWebSocketMessage обрабатывает входящие WebSocket сообщения
func (a *API) processWebSocketMessage(client *websocket.Client, raw []byte) {
	var ev websocket.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		client.SendError("invalid_json", "Некорректный формат JSON")
		return
	}

	switch ev.Type {
	case "message":
		a.processWidgetMessage(client, ev.Payload)
	case "typing":
		a.processTyping(client, ev.Payload)
	case "markAsRead":
		a.processMarkAsRead(client, ev.Payload)
	default:
		client.SendError("unknown_type", "Неизвестный тип сообщения: "+ev.Type)
	}
}

// processWidgetMessage принимает сообщение посетителя через WebSocket —
// тот же путь нормализации, что и вебхук виджета
func (a *API) processWidgetMessage(client *websocket.Client, payload json.RawMessage) {
	if client.Role != websocket.RoleWidget {
		client.SendError("access_denied", "Отправка сообщений доступна только виджету")
		return
	}

	var p struct {
		Content string `json:"content"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		client.SendError("invalid_payload", "Некорректный формат данных для message")
		return
	}

	externalID := strings.TrimPrefix(client.ClientID, "widget_")

	result, err := a.inbound.ProcessInboundMessage(context.Background(), models.IncomingMessage{
		Platform:   models.ChannelWidget,
		ExternalID: externalID,
		Name:       p.Name,
		Content:    p.Content,
	})
	if err != nil {
		log.Printf("processWidgetMessage: ошибка обработки сообщения: %v", err)
		client.SendError("processing_error", "Ошибка при обработке сообщения")
		return
	}
	if result == nil {
		// пустое или повторное сообщение
		return
	}

	confirm := map[string]interface{}{
		"type": "messageAccepted",
		"payload": map[string]interface{}{
			"conversationID": result.ConversationID.String(),
			"aiResponded":    result.AIResponded,
		},
	}
	if err := client.SendJSON(confirm); err != nil {
		log.Printf("processWidgetMessage: ошибка отправки подтверждения: %v", err)
	}
}

// processTyping транслирует индикатор набора текста
func (a *API) processTyping(client *websocket.Client, payload json.RawMessage) {
	var p struct {
		ConversationID string `json:"conversationID"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		client.SendError("invalid_payload", "Некорректный формат данных для typing")
		return
	}

	convID, err := uuid.Parse(p.ConversationID)
	if err != nil {
		client.SendError("invalid_uuid", "Некорректный формат conversationID")
		return
	}

	from := "agent"
	if client.Role == websocket.RoleWidget {
		from = "customer"
	}

	data, err := websocket.NewTypingEvent(convID, from)
	if err != nil {
		log.Printf("processTyping: ошибка формирования сообщения: %v", err)
		return
	}

	if client.Role == websocket.RoleWidget {
		// Посетитель печатает — видят операторы
		a.hub.BroadcastToAgents(data, "")
		return
	}

	// Оператор печатает — показываем виджету и остальным операторам
	conv, err := a.store.GetConversation(context.Background(), convID)
	if err == nil && conv != nil && conv.ChannelType == models.ChannelWidget {
		if customer, err := a.store.GetCustomer(context.Background(), conv.CustomerID); err == nil && customer != nil {
			a.hub.SendToClient(services.WidgetClientID(customer.ExternalID), data)
		}
	}
	a.hub.BroadcastToAgents(data, client.ClientID)
}

// processMarkAsRead отмечает сообщения клиента прочитанными
func (a *API) processMarkAsRead(client *websocket.Client, payload json.RawMessage) {
	if client.Role != websocket.RoleAgent {
		client.SendError("access_denied", "Операция доступна только оператору")
		return
	}

	var p struct {
		ConversationID string `json:"conversationID"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		client.SendError("invalid_payload", "Некорректный формат данных для markAsRead")
		return
	}

	convID, err := uuid.Parse(p.ConversationID)
	if err != nil {
		client.SendError("invalid_uuid", "Некорректный формат conversationID")
		return
	}

	if err := a.store.MarkMessagesRead(context.Background(), convID); err != nil {
		log.Printf("processMarkAsRead: ошибка: %v", err)
		client.SendError("db_error", "Ошибка при обновлении статуса сообщений")
		return
	}

	statusMsg, err := websocket.NewEvent("messagesRead", map[string]interface{}{
		"conversationID": convID.String(),
		"readBy":         client.ClientID,
	})
	if err == nil {
		a.hub.BroadcastToAgents(statusMsg, client.ClientID)
	}

	confirm := map[string]interface{}{
		"type": "markAsReadConfirmed",
		"payload": map[string]interface{}{
			"conversationID": convID.String(),
			"status":         "success",
		},
	}
	if err := client.SendJSON(confirm); err != nil {
		log.Printf("processMarkAsRead: ошибка отправки подтверждения: %v", err)
	}
}

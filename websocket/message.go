package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
)

// Event представляет сообщение для WebSocket
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent создает новое событие с указанным типом и данными
func NewEvent(eventType string, payload interface{}) ([]byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Event{
		Type:    eventType,
		Payload: payloadJSON,
	})
}

// CustomerMessagePayload — данные события о новом сообщении клиента.
type CustomerMessagePayload struct {
	ConversationID uuid.UUID       `json:"conversationId"`
	CustomerID     uuid.UUID       `json:"customerId"`
	CustomerName   string          `json:"customerName"`
	ProfileImage   *string         `json:"profileImage,omitempty"`
	Channel        string          `json:"channel"`
	Message        *models.Message `json:"message"`
	AIResponded    bool            `json:"aiResponded"`
}

// NewCustomerMessageEvent создает событие о новом сообщении клиента для операторов
func NewCustomerMessageEvent(customer *models.Customer, conv *models.Conversation, msg *models.Message, aiResponded bool) ([]byte, error) {
	return NewEvent("new_customer_message", CustomerMessagePayload{
		ConversationID: conv.ID,
		CustomerID:     customer.ID,
		CustomerName:   customer.Name,
		ProfileImage:   customer.ProfileImage,
		Channel:        conv.ChannelType,
		Message:        msg,
		AIResponded:    aiResponded,
	})
}

// NewAgentMessageEvent создает событие об исходящем сообщении оператора
func NewAgentMessageEvent(conv *models.Conversation, msg *models.Message) ([]byte, error) {
	payload := struct {
		Conversation *models.Conversation `json:"conversation"`
		Message      *models.Message      `json:"message"`
	}{
		Conversation: conv,
		Message:      msg,
	}
	return NewEvent("new_agent_message", payload)
}

// NewConversationEndedEvent создает событие о завершении диалога
func NewConversationEndedEvent(conversationID uuid.UUID, reason string) ([]byte, error) {
	payload := struct {
		ConversationID uuid.UUID `json:"conversationId"`
		Reason         string    `json:"reason"`
	}{
		ConversationID: conversationID,
		Reason:         reason,
	}
	return NewEvent("conversation_ended", payload)
}

// NewAgentStatusEvent создает событие о смене статуса оператора
func NewAgentStatusEvent(agentID uuid.UUID, status string) ([]byte, error) {
	payload := struct {
		AgentID   uuid.UUID `json:"agentId"`
		Status    string    `json:"status"`
		UpdatedAt time.Time `json:"updatedAt"`
	}{
		AgentID:   agentID,
		Status:    status,
		UpdatedAt: time.Now(),
	}
	return NewEvent("agent_status", payload)
}

// NewTypingEvent создает событие «собеседник печатает»
func NewTypingEvent(conversationID uuid.UUID, from string) ([]byte, error) {
	payload := struct {
		ConversationID uuid.UUID `json:"conversationId"`
		From           string    `json:"from"`
	}{
		ConversationID: conversationID,
		From:           from,
	}
	return NewEvent("typing", payload)
}

// NewErrorEvent создает сообщение об ошибке
func NewErrorEvent(code, message string) ([]byte, error) {
	payload := struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}{
		Code:  code,
		Error: message,
	}
	return NewEvent("error", payload)
}

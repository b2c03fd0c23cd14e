package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/egor/omnidesk/channels"
	"github.com/egor/omnidesk/models"
	"github.com/egor/omnidesk/websocket"
)

var (
	// ErrConversationNotFound — диалог с таким ID отсутствует.
	ErrConversationNotFound = errors.New("диалог не найден")
	// ErrEmptyContent — пустой текст сообщения.
	ErrEmptyContent = errors.New("пустое сообщение")
)

// ReplyService отправляет ответы оператора: сохраняет сообщение,
// доставляет его во внешний канал и рассылает события.
type ReplyService struct {
	customers CustomerStore
	convs     ConversationStore
	msgs      MessageStore
	senders   *channels.Registry
	hub       Broadcaster
}

// NewReplyService создает сервис исходящих ответов.
func NewReplyService(customers CustomerStore, convs ConversationStore, msgs MessageStore, senders *channels.Registry, hub Broadcaster) *ReplyService {
	return &ReplyService{
		customers: customers,
		convs:     convs,
		msgs:      msgs,
		senders:   senders,
		hub:       hub,
	}
}

// SendAgentReply сохраняет ответ оператора и доставляет его клиенту.
// Сбой доставки во внешний канал не является ошибкой вызова: сообщение
// остается в базе со статусом failed, оператор видит это в интерфейсе.
func (s *ReplyService) SendAgentReply(ctx context.Context, conversationID, agentID uuid.UUID, content, messageType string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	conv, err := s.convs.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderType:     models.SenderAgent,
		SenderID:       &agentID,
		Content:        content,
		Channel:        conv.ChannelType,
		MessageType:    messageType,
	}
	if err := s.msgs.AddMessage(ctx, msg); err != nil {
		return nil, err
	}

	// Доставка клиенту зависит от канала
	s.deliver(ctx, conv, msg)

	// Операторам — событие, кроме самого отправителя
	if data, err := websocket.NewAgentMessageEvent(conv, msg); err == nil {
		s.hub.BroadcastToAgents(data, AgentClientID(agentID))
	}

	return msg, nil
}

// CloseConversation закрывает диалог и оповещает операторов.
func (s *ReplyService) CloseConversation(ctx context.Context, conversationID uuid.UUID, reason string) error {
	conv, err := s.convs.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}

	if err := s.convs.SetConversationStatus(ctx, conversationID, models.ConversationClosed); err != nil {
		return err
	}

	if data, err := websocket.NewConversationEndedEvent(conversationID, reason); err == nil {
		s.hub.BroadcastToAgents(data, "")
	}
	log.Printf("[reply] диалог %s закрыт (%s)", conversationID, reason)
	return nil
}

// deliver передает сообщение во внешний канал или в виджет.
// Ошибки логируются и понижают статус сообщения до failed.
func (s *ReplyService) deliver(ctx context.Context, conv *models.Conversation, msg *models.Message) {
	customer, err := s.customers.GetCustomer(ctx, conv.CustomerID)
	if err != nil || customer == nil {
		log.Printf("[reply] клиент диалога %s недоступен: %v", conv.ID, err)
		return
	}

	// Виджет получает сообщение напрямую через WebSocket
	if conv.ChannelType == models.ChannelWidget {
		if data, err := websocket.NewAgentMessageEvent(conv, msg); err == nil {
			s.hub.SendToClient(WidgetClientID(customer.ExternalID), data)
		}
		return
	}

	sender := s.senders.For(conv.ChannelType)
	if sender == nil {
		log.Printf("[reply] для канала %s нет отправителя, сообщение %s останется в веб-интерфейсе",
			conv.ChannelType, msg.ID)
		return
	}

	if err := sender.Send(ctx, customer.ExternalID, msg.Content); err != nil {
		log.Printf("[reply] доставка в %s не удалась: %v", conv.ChannelType, err)
		msg.Status = models.MessageFailed
		if err := s.msgs.SetMessageStatus(ctx, msg.ID, models.MessageFailed); err != nil {
			log.Printf("[reply] не удалось пометить сообщение %s как failed: %v", msg.ID, err)
		}
	}
}

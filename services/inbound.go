package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
	"github.com/egor/omnidesk/websocket"
)

// historyLimit — сколько последних сообщений уходит в контекст автоответчика.
const historyLimit = 10

// InboundResult — итог обработки входящего сообщения.
type InboundResult struct {
	ConversationID uuid.UUID `json:"conversationId"`
	AIResponded    bool      `json:"aiResponded"`
}

// InboundService нормализует входящие сообщения любого канала:
// клиент → диалог → сообщение → политика автоответа → рассылка операторам.
// Шаги коммитятся независимо, общей транзакции нет: частичный сбой после
// шага N оставляет шаги 1..N сохраненными.
type InboundService struct {
	customers  CustomerStore
	convs      ConversationStore
	msgs       MessageStore
	assignment *AssignmentService
	policy     *AutoResponsePolicy
	responder  Responder
	hub        Broadcaster
	dedup      Deduper // может быть nil

	genTimeout time.Duration
}

// NewInboundService создает пайплайн входящих сообщений.
func NewInboundService(
	customers CustomerStore,
	convs ConversationStore,
	msgs MessageStore,
	assignment *AssignmentService,
	policy *AutoResponsePolicy,
	responder Responder,
	hub Broadcaster,
	dedup Deduper,
) *InboundService {
	return &InboundService{
		customers:  customers,
		convs:      convs,
		msgs:       msgs,
		assignment: assignment,
		policy:     policy,
		responder:  responder,
		hub:        hub,
		dedup:      dedup,
		genTimeout: 30 * time.Second,
	}
}

// ProcessInboundMessage проводит сообщение через весь пайплайн.
// Пустой/пробельный текст — no-op без единой записи в базу и без рассылки.
// Повторное событие платформы (по EventID) тоже no-op: (nil, nil).
func (s *InboundService) ProcessInboundMessage(ctx context.Context, in models.IncomingMessage) (*InboundResult, error) {
	// Пустое сообщение обрывает пайплайн до каких-либо побочных эффектов
	if strings.TrimSpace(in.Content) == "" {
		log.Printf("[inbound] пустое сообщение из %s, игнорируем", in.Platform)
		return nil, nil
	}

	// Ретрай платформы — уже обработано
	if s.dedup != nil && in.EventID != "" {
		seen, err := s.dedup.Seen(ctx, in.EventID)
		if err != nil {
			log.Printf("[inbound] ошибка дедупликации события %s: %v", in.EventID, err)
		} else if seen {
			log.Printf("[inbound] повторное событие %s из %s, пропускаем", in.EventID, in.Platform)
			return nil, nil
		}
	}

	// 1) Клиент: находим или создаем по (external_id, platform)
	customer, err := s.resolveCustomer(ctx, in)
	if err != nil {
		return nil, err
	}

	// 2) Диалог: открытый для (клиент, канал) или новый с автоназначением
	conv, err := s.resolveConversation(ctx, customer, in)
	if err != nil {
		return nil, err
	}

	// 3) Сообщение клиента
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderType:     models.SenderCustomer,
		Content:        in.Content,
		Channel:        in.Platform,
		MessageType:    in.MessageType,
	}
	if err := s.msgs.AddMessage(ctx, msg); err != nil {
		return nil, err
	}

	// 4) Агрегаты диалога: last_message_at + unread_count
	if err := s.convs.TouchConversation(ctx, conv.ID, msg.CreatedAt); err != nil {
		return nil, err
	}

	// 5–6) Автоответ
	botMsg := s.maybeAutoRespond(ctx, conv, in)

	// 7) Событие операторам
	if data, err := websocket.NewCustomerMessageEvent(customer, conv, msg, botMsg != nil); err == nil {
		s.hub.BroadcastToAgents(data, "")
	} else {
		log.Printf("[inbound] ошибка сборки события: %v", err)
	}

	// Автоответ доставляем и в виджет клиента
	if botMsg != nil && in.Platform == models.ChannelWidget {
		if data, err := websocket.NewAgentMessageEvent(conv, botMsg); err == nil {
			s.hub.SendToClient(WidgetClientID(in.ExternalID), data)
		}
	}

	log.Printf("[inbound] %s: сообщение обработано, диалог %s, автоответ=%v",
		in.Platform, conv.ID, botMsg != nil)

	return &InboundResult{
		ConversationID: conv.ID,
		AIResponded:    botMsg != nil,
	}, nil
}

// resolveCustomer находит клиента по (external_id, platform) или создает
// нового; у существующего обновляет имя/картинку, если канал прислал новые.
func (s *InboundService) resolveCustomer(ctx context.Context, in models.IncomingMessage) (*models.Customer, error) {
	customer, err := s.customers.GetCustomerByExternal(ctx, in.ExternalID, in.Platform)
	if err != nil {
		return nil, err
	}

	if customer == nil {
		name := in.Name
		if name == "" {
			name = fmt.Sprintf("%s_user", in.Platform)
		}
		customer = &models.Customer{
			ExternalID:   in.ExternalID,
			Platform:     in.Platform,
			Name:         name,
			ProfileImage: in.ProfileImage,
		}
		if err := s.customers.CreateCustomer(ctx, customer); err != nil {
			return nil, err
		}
		log.Printf("[inbound] новый клиент %s (%s)", customer.Name, in.Platform)
		return customer, nil
	}

	changed := in.Name != "" && in.Name != customer.Name
	if !changed && in.ProfileImage != nil {
		changed = customer.ProfileImage == nil || *customer.ProfileImage != *in.ProfileImage
	}
	if changed {
		name := customer.Name
		if in.Name != "" {
			name = in.Name
		}
		if err := s.customers.UpdateCustomerProfile(ctx, customer.ID, name, in.ProfileImage); err != nil {
			return nil, err
		}
		customer.Name = name
		if in.ProfileImage != nil {
			customer.ProfileImage = in.ProfileImage
		}
	}
	return customer, nil
}

// resolveConversation возвращает открытый диалог для (клиент, канал)
// или создает новый. Автоназначение на новом диалоге best-effort:
// неудача не прерывает обработку сообщения.
func (s *InboundService) resolveConversation(ctx context.Context, customer *models.Customer, in models.IncomingMessage) (*models.Conversation, error) {
	conv, err := s.convs.FindOpenConversation(ctx, customer.ID, in.Platform)
	if err != nil {
		return nil, err
	}

	if conv == nil {
		conv = &models.Conversation{
			CustomerID:   customer.ID,
			ChannelType:  in.Platform,
			Status:       models.ConversationOpen,
			ProfileName:  &customer.Name,
			ProfileImage: customer.ProfileImage,
		}
		if err := s.convs.CreateConversation(ctx, conv); err != nil {
			return nil, err
		}
		log.Printf("[inbound] новый диалог %s (%s)", conv.ID, in.Platform)

		if _, err := s.assignment.AssignToConversation(ctx, conv.ID); err != nil {
			log.Printf("[inbound] автоназначение для диалога %s не удалось: %v", conv.ID, err)
		}
		return conv, nil
	}

	if in.Name != "" && (conv.ProfileName == nil || *conv.ProfileName != in.Name) {
		if err := s.convs.UpdateConversationProfile(ctx, conv.ID, in.Name, in.ProfileImage); err != nil {
			log.Printf("[inbound] обновление профиля диалога %s не удалось: %v", conv.ID, err)
		}
	}
	return conv, nil
}

// maybeAutoRespond выполняет политику автоответа и, если нужно, генерирует
// и сохраняет ответ бота. Любой сбой генерации деградирует до «без ответа»:
// клиент просто ждет живого оператора, ошибки наружу не выходят.
func (s *InboundService) maybeAutoRespond(ctx context.Context, conv *models.Conversation, in models.IncomingMessage) *models.Message {
	if s.responder == nil || !s.policy.ShouldAutoRespond(ctx, in.Content) {
		return nil
	}

	// Последние сообщения диалога, от старых к новым; новое сообщение
	// клиента уже сохранено и придет последним — его в историю не дублируем
	history, err := s.msgs.RecentMessages(ctx, conv.ID, historyLimit)
	if err != nil {
		log.Printf("[inbound] ошибка чтения истории диалога %s: %v", conv.ID, err)
		history = nil
	}
	if n := len(history); n > 0 && history[n-1].SenderType == models.SenderCustomer {
		history = history[:n-1]
	}

	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()

	reply, err := s.responder.Generate(genCtx, in.Content, history)
	if err != nil {
		log.Printf("[inbound] генерация автоответа не удалась: %v", err)
		return nil
	}
	if strings.TrimSpace(reply) == "" {
		return nil
	}

	botMsg := &models.Message{
		ConversationID: conv.ID,
		SenderType:     models.SenderBot,
		Content:        reply,
		Channel:        in.Platform,
	}
	if err := s.msgs.AddMessage(ctx, botMsg); err != nil {
		log.Printf("[inbound] сохранение автоответа не удалось: %v", err)
		return nil
	}

	log.Printf("[inbound] автоответ для диалога %s: %.50s", conv.ID, reply)
	return botMsg
}

// ─────────────────────────── client id convention

// AgentClientID возвращает ID соединения оператора в реестре.
func AgentClientID(agentID uuid.UUID) string {
	return "agent_" + agentID.String()
}

// WidgetClientID возвращает ID соединения виджета в реестре.
func WidgetClientID(externalID string) string {
	return "widget_" + externalID
}

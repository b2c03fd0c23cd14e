package services

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
)

// AssignmentService распределяет диалоги по операторам:
// свободные кандидаты, наименее загруженный первым.
type AssignmentService struct {
	agents AgentStore
	convs  ConversationStore
	msgs   MessageStore
	now    func() time.Time
}

// NewAssignmentService создает сервис распределения.
func NewAssignmentService(agents AgentStore, convs ConversationStore, msgs MessageStore) *AssignmentService {
	return &AssignmentService{
		agents: agents,
		convs:  convs,
		msgs:   msgs,
		now:    time.Now,
	}
}

// AvailableAgents возвращает операторов, готовых принять новый диалог:
// онлайн, auto_assign включен, нагрузка строго ниже лимита.
// Сортировка по нагрузке по возрастанию; при равной нагрузке порядок
// кандидатов из хранилища сохраняется (стабильная сортировка).
func (s *AssignmentService) AvailableAgents(ctx context.Context) ([]models.AgentLoad, error) {
	candidates, err := s.agents.AssignableAgents(ctx)
	if err != nil {
		return nil, err
	}

	var available []models.AgentLoad
	for _, agent := range candidates {
		load, err := s.convs.CountOpenByAgent(ctx, agent.ID)
		if err != nil {
			return nil, err
		}
		if load < agent.MaxConcurrentChats {
			available = append(available, models.AgentLoad{
				Agent:       agent,
				CurrentLoad: load,
				Capacity:    agent.MaxConcurrentChats,
			})
		}
	}

	sort.SliceStable(available, func(i, j int) bool {
		return available[i].CurrentLoad < available[j].CurrentLoad
	})
	return available, nil
}

// AssignToConversation автоматически назначает оператора на диалог.
// Идемпотентно: уже назначенный диалог не переназначается.
// false без ошибки — валидный исход «некому назначить», диалог остается
// без оператора, очереди ожидания нет.
func (s *AssignmentService) AssignToConversation(ctx context.Context, conversationID uuid.UUID) (bool, error) {
	conv, err := s.convs.GetConversation(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if conv == nil {
		log.Printf("[assignment] диалог %s не найден", conversationID)
		return false, nil
	}

	// Уже назначен — успех без изменений
	if conv.AssignedAgentID != nil {
		return true, nil
	}

	available, err := s.AvailableAgents(ctx)
	if err != nil {
		return false, err
	}
	if len(available) == 0 {
		log.Printf("[assignment] нет доступных операторов, диалог %s остается без назначения", conversationID)
		return false, nil
	}

	selected := available[0]
	if err := s.convs.AssignAgent(ctx, conversationID, selected.Agent.ID, s.now()); err != nil {
		return false, err
	}

	log.Printf("[assignment] диалог %s → оператор %s (нагрузка %d/%d)",
		conversationID, selected.Agent.Name, selected.CurrentLoad, selected.Capacity)
	return true, nil
}

// Reassign принудительно переназначает диалог на указанного оператора.
// Лимит нагрузки намеренно не проверяется: это ручной административный
// обход автораспределения.
func (s *AssignmentService) Reassign(ctx context.Context, conversationID, newAgentID uuid.UUID) (bool, error) {
	conv, err := s.convs.GetConversation(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if conv == nil {
		return false, nil
	}

	agent, err := s.agents.GetAgent(ctx, newAgentID)
	if err != nil {
		return false, err
	}
	if agent == nil || agent.Role != models.RoleAgent {
		return false, nil
	}

	if err := s.convs.AssignAgent(ctx, conversationID, newAgentID, s.now()); err != nil {
		return false, err
	}

	log.Printf("[assignment] диалог %s переназначен на оператора %s", conversationID, agent.Name)
	return true, nil
}

// AgentStatistics возвращает сводку по оператору: активные диалоги,
// закрытые за сегодня, всего отправленных сообщений.
func (s *AssignmentService) AgentStatistics(ctx context.Context, agentID uuid.UUID) (*models.AgentStats, error) {
	active, err := s.convs.CountOpenByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	closedToday, err := s.convs.CountClosedByAgentSince(ctx, agentID, todayStart)
	if err != nil {
		return nil, err
	}

	total, err := s.msgs.CountMessagesByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	return &models.AgentStats{
		ActiveChats:   active,
		ClosedToday:   closedToday,
		TotalMessages: total,
	}, nil
}

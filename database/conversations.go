package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
)

// ─────────────────────────── GetConversation

// GetConversation возвращает диалог по ID. (nil, nil), если не найден.
func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = convSelect + ` WHERE id = $1`

	row := s.db.QueryRowContext(ctx, q, id)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetConversation: %w", err)
	}
	return conv, nil
}

// FindOpenConversation ищет открытый диалог клиента в указанном канале.
// Фильтр по status='open' обеспечивает инвариант «один открытый диалог
// на пару (клиент, канал)»: после закрытия следующее сообщение создаст новый.
func (s *Store) FindOpenConversation(ctx context.Context, customerID uuid.UUID, channel string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = convSelect + `
		WHERE customer_id = $1 AND channel_type = $2 AND status = 'open'
		ORDER BY created_at DESC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, q, customerID, channel)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindOpenConversation: %w", err)
	}
	return conv, nil
}

// ─────────────────────────── CreateConversation

// CreateConversation сохраняет новый диалог со статусом open.
func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	if conv.Status == "" {
		conv.Status = models.ConversationOpen
	}
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	const q = `
		INSERT INTO conversations
			(id, customer_id, channel_type, status, assigned_agent_id, assigned_at,
			 priority, unread_count, last_message_at, profile_name, profile_image,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	if _, err := s.db.ExecContext(ctx, q,
		conv.ID, conv.CustomerID, conv.ChannelType, conv.Status,
		conv.AssignedAgentID, conv.AssignedAt, conv.Priority, conv.UnreadCount,
		conv.LastMessageAt, conv.ProfileName, conv.ProfileImage,
		conv.CreatedAt, conv.UpdatedAt,
	); err != nil {
		return fmt.Errorf("CreateConversation: %w", err)
	}
	return nil
}

// ─────────────────────────── updates

// UpdateConversationProfile обновляет отображаемые имя/картинку диалога.
func (s *Store) UpdateConversationProfile(ctx context.Context, id uuid.UUID, name string, profileImage *string) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		UPDATE conversations
		SET profile_name = $2,
		    profile_image = COALESCE($3, profile_image),
		    updated_at = NOW()
		WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, id, name, profileImage); err != nil {
		return fmt.Errorf("UpdateConversationProfile: %w", err)
	}
	return nil
}

// TouchConversation отмечает новое входящее сообщение: атомарный инкремент
// unread_count прямо в SQL, чтобы параллельные сообщения не теряли счетчик.
func (s *Store) TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		UPDATE conversations
		SET unread_count = unread_count + 1,
		    last_message_at = $2,
		    updated_at = NOW()
		WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, id, at); err != nil {
		return fmt.Errorf("TouchConversation: %w", err)
	}
	return nil
}

// AssignAgent назначает оператора и ставит отметку времени назначения.
// Статус остается open: connected выставляется только когда оператор
// явно берет диалог в работу.
func (s *Store) AssignAgent(ctx context.Context, convID, agentID uuid.UUID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		UPDATE conversations
		SET assigned_agent_id = $2,
		    assigned_at = $3,
		    status = 'open',
		    updated_at = NOW()
		WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, convID, agentID, at); err != nil {
		return fmt.Errorf("AssignAgent: %w", err)
	}
	return nil
}

// SetConversationStatus меняет статус диалога.
func (s *Store) SetConversationStatus(ctx context.Context, id uuid.UUID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		UPDATE conversations
		SET status = $2, updated_at = NOW()
		WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, id, status); err != nil {
		return fmt.Errorf("SetConversationStatus: %w", err)
	}
	return nil
}

// ─────────────────────────── counts

// CountOpenByAgent возвращает число открытых диалогов, назначенных оператору.
func (s *Store) CountOpenByAgent(ctx context.Context, agentID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT COUNT(*)
		FROM conversations
		WHERE assigned_agent_id = $1 AND status = 'open'`

	var n int
	if err := s.db.QueryRowContext(ctx, q, agentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountOpenByAgent: %w", err)
	}
	return n, nil
}

// CountClosedByAgentSince возвращает число диалогов оператора,
// закрытых начиная с указанного момента.
func (s *Store) CountClosedByAgentSince(ctx context.Context, agentID uuid.UUID, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT COUNT(*)
		FROM conversations
		WHERE assigned_agent_id = $1 AND status = 'closed' AND updated_at >= $2`

	var n int
	if err := s.db.QueryRowContext(ctx, q, agentID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountClosedByAgentSince: %w", err)
	}
	return n, nil
}

// ─────────────────────────── ListConversations

// ListConversations возвращает страницу диалогов с последним сообщением
// и именем клиента, свежие сверху.
func (s *Store) ListConversations(ctx context.Context, page, size int) ([]models.ConversationSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	// 1) общее количество
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListConversations: count: %w", err)
	}

	// 2) сами диалоги
	const q = `
		SELECT
			c.id, c.customer_id, c.channel_type, c.status,
			c.assigned_agent_id, c.assigned_at, c.priority,
			c.unread_count, c.last_message_at, c.profile_name, c.profile_image,
			c.created_at, c.updated_at,
			cu.name,
			l.id, l.sender_type, l.content, l.created_at
		FROM conversations c
		JOIN customers cu ON cu.id = c.customer_id
		LEFT JOIN LATERAL (
			SELECT id, sender_type, content, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC
			LIMIT 1
		) l ON TRUE
		ORDER BY c.updated_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, q, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("ListConversations: %w", err)
	}
	defer rows.Close()

	var result []models.ConversationSummary
	for rows.Next() {
		var (
			item       models.ConversationSummary
			agentID    sql.NullString
			assignedAt sql.NullTime
			lastMsgAt  sql.NullTime
			profName   sql.NullString
			profImage  sql.NullString
			lastID     sql.NullString
			lastSender sql.NullString
			lastCont   sql.NullString
			lastTime   sql.NullTime
		)

		if err := rows.Scan(
			&item.ID, &item.CustomerID, &item.ChannelType, &item.Status,
			&agentID, &assignedAt, &item.Priority,
			&item.UnreadCount, &lastMsgAt, &profName, &profImage,
			&item.CreatedAt, &item.UpdatedAt,
			&item.CustomerName,
			&lastID, &lastSender, &lastCont, &lastTime,
		); err != nil {
			return nil, 0, fmt.Errorf("ListConversations: scan: %w", err)
		}

		if item.AssignedAgentID, err = nullUUIDToPointer(agentID); err != nil {
			return nil, 0, fmt.Errorf("ListConversations: agent id: %w", err)
		}
		item.AssignedAt = nullTimeToPointer(assignedAt)
		item.LastMessageAt = nullTimeToPointer(lastMsgAt)
		item.ProfileName = nullStringToPointer(profName)
		item.ProfileImage = nullStringToPointer(profImage)

		if lastID.Valid {
			msgID, err := uuid.Parse(lastID.String)
			if err == nil {
				item.LastMessage = &models.Message{
					ID:             msgID,
					ConversationID: item.ID,
					SenderType:     lastSender.String,
					Content:        lastCont.String,
					CreatedAt:      lastTime.Time,
				}
			}
		}

		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListConversations: rows: %w", err)
	}
	return result, total, nil
}

// ─────────────────────────── scan

const convSelect = `
		SELECT id, customer_id, channel_type, status,
		       assigned_agent_id, assigned_at, priority,
		       unread_count, last_message_at, profile_name, profile_image,
		       created_at, updated_at
		FROM conversations`

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var (
		conv       models.Conversation
		agentID    sql.NullString
		assignedAt sql.NullTime
		lastMsgAt  sql.NullTime
		profName   sql.NullString
		profImage  sql.NullString
	)
	if err := row.Scan(
		&conv.ID, &conv.CustomerID, &conv.ChannelType, &conv.Status,
		&agentID, &assignedAt, &conv.Priority,
		&conv.UnreadCount, &lastMsgAt, &profName, &profImage,
		&conv.CreatedAt, &conv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if conv.AssignedAgentID, err = nullUUIDToPointer(agentID); err != nil {
		return nil, err
	}
	conv.AssignedAt = nullTimeToPointer(assignedAt)
	conv.LastMessageAt = nullTimeToPointer(lastMsgAt)
	conv.ProfileName = nullStringToPointer(profName)
	conv.ProfileImage = nullStringToPointer(profImage)
	return &conv, nil
}

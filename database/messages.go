package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
)

// ─────────────────────────── AddMessage

// AddMessage сохраняет новое сообщение. Сообщения append-only:
// после вставки меняется только статус доставки.
func (s *Store) AddMessage(ctx context.Context, m *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.MessageType == "" {
		m.MessageType = "text"
	}
	if m.Status == "" {
		m.Status = models.MessageSent
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	const q = `
		INSERT INTO messages
			(id, conversation_id, sender_type, sender_id, content, channel,
			 message_type, file_url, file_type, file_size, thumbnail_url,
			 status, delivered_at, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	if _, err := s.db.ExecContext(ctx, q,
		m.ID, m.ConversationID, m.SenderType, m.SenderID, m.Content, m.Channel,
		m.MessageType, m.FileURL, m.FileType, m.FileSize, m.ThumbnailURL,
		m.Status, m.DeliveredAt, m.ReadAt, m.CreatedAt,
	); err != nil {
		return fmt.Errorf("AddMessage: %w", err)
	}
	return nil
}

// ─────────────────────────── RecentMessages

// RecentMessages возвращает последние limit сообщений диалога
// в порядке от старых к новым (для промпта автоответчика).
func (s *Store) RecentMessages(ctx context.Context, convID uuid.UUID, limit int) ([]models.Message, error) {
	if limit < 1 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT * FROM (` + msgSelect + `
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) sub ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, q, convID, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentMessages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// MessagesPage возвращает страницу сообщений диалога (свежие первыми)
// и общее число сообщений.
func (s *Store) MessagesPage(ctx context.Context, convID uuid.UUID, page, size int) ([]models.Message, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	var total int
	const countQ = `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`
	if err := s.db.QueryRowContext(ctx, countQ, convID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("MessagesPage: count: %w", err)
	}

	const q = msgSelect + `
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, q, convID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("MessagesPage: %w", err)
	}
	defer rows.Close()

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// ─────────────────────────── status updates

// MarkMessagesRead помечает прочитанными все входящие сообщения диалога.
func (s *Store) MarkMessagesRead(ctx context.Context, convID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		UPDATE messages
		SET status = 'read', read_at = NOW()
		WHERE conversation_id = $1 AND sender_type = 'customer' AND status <> 'read'`

	if _, err := s.db.ExecContext(ctx, q, convID); err != nil {
		return fmt.Errorf("MarkMessagesRead: %w", err)
	}
	return nil
}

// SetMessageStatus меняет статус доставки одного сообщения.
func (s *Store) SetMessageStatus(ctx context.Context, id uuid.UUID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `UPDATE messages SET status = $2 WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, id, status); err != nil {
		return fmt.Errorf("SetMessageStatus: %w", err)
	}
	return nil
}

// CountMessagesByAgent возвращает общее число сообщений оператора.
func (s *Store) CountMessagesByAgent(ctx context.Context, agentID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT COUNT(*)
		FROM messages
		WHERE sender_type = 'agent' AND sender_id = $1`

	var n int
	if err := s.db.QueryRowContext(ctx, q, agentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountMessagesByAgent: %w", err)
	}
	return n, nil
}

// ─────────────────────────── scan

const msgSelect = `
		SELECT id, conversation_id, sender_type, sender_id, content, channel,
		       message_type, file_url, file_type, file_size, thumbnail_url,
		       status, delivered_at, read_at, created_at
		FROM messages`

func collectMessages(rows *sql.Rows) ([]models.Message, error) {
	var result []models.Message
	for rows.Next() {
		var (
			m           models.Message
			senderID    sql.NullString
			fileURL     sql.NullString
			fileType    sql.NullString
			fileSize    sql.NullInt64
			thumbURL    sql.NullString
			deliveredAt sql.NullTime
			readAt      sql.NullTime
		)
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.SenderType, &senderID, &m.Content, &m.Channel,
			&m.MessageType, &fileURL, &fileType, &fileSize, &thumbURL,
			&m.Status, &deliveredAt, &readAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("collectMessages: %w", err)
		}

		var err error
		if m.SenderID, err = nullUUIDToPointer(senderID); err != nil {
			return nil, fmt.Errorf("collectMessages: sender id: %w", err)
		}
		m.FileURL = nullStringToPointer(fileURL)
		m.FileType = nullStringToPointer(fileType)
		if fileSize.Valid {
			size := fileSize.Int64
			m.FileSize = &size
		}
		m.ThumbnailURL = nullStringToPointer(thumbURL)
		m.DeliveredAt = nullTimeToPointer(deliveredAt)
		m.ReadAt = nullTimeToPointer(readAt)

		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collectMessages: rows: %w", err)
	}
	return result, nil
}

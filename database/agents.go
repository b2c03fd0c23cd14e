package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
)

// ─────────────────────────── GetUserByEmail

// GetUserByEmail возвращает сотрудника по email. (nil, nil), если не найден.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = userSelect + ` WHERE email = $1`

	row := s.db.QueryRowContext(ctx, q, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserByEmail: %w", err)
	}
	return u, nil
}

// GetAgent возвращает сотрудника по ID. (nil, nil), если не найден.
func (s *Store) GetAgent(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = userSelect + ` WHERE id = $1`

	row := s.db.QueryRowContext(ctx, q, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetAgent: %w", err)
	}
	return u, nil
}

// ─────────────────────────── AssignableAgents

// AssignableAgents возвращает кандидатов на автораспределение:
// активные операторы онлайн с включенным auto_assign.
// Порядок по created_at — это и есть тай-брейк при равной нагрузке.
func (s *Store) AssignableAgents(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = userSelect + `
		WHERE role = 'agent' AND active = TRUE
		  AND status = 'online' AND auto_assign = TRUE
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("AssignableAgents: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("AssignableAgents: scan: %w", err)
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("AssignableAgents: rows: %w", err)
	}
	return result, nil
}

// ─────────────────────────── SetAgentStatus

// SetAgentStatus обновляет статус оператора (online/offline/away/busy).
func (s *Store) SetAgentStatus(ctx context.Context, id uuid.UUID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `UPDATE users SET status = $2 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return fmt.Errorf("SetAgentStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TouchLastLogin ставит отметку последнего входа.
func (s *Store) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("TouchLastLogin: %w", err)
	}
	return nil
}

// ─────────────────────────── scan

const userSelect = `
		SELECT id, email, name, password_hash, role, active,
		       status, auto_assign, max_concurrent_chats,
		       created_at, last_login_at
		FROM users`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		lastLogin sql.NullTime
	)
	if err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Active,
		&u.Status, &u.AutoAssign, &u.MaxConcurrentChats,
		&u.CreatedAt, &lastLogin,
	); err != nil {
		return nil, err
	}
	u.LastLoginAt = nullTimeToPointer(lastLogin)
	return &u, nil
}

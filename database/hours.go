package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
)

// ─────────────────────────── GetBusinessDay

// GetBusinessDay возвращает окно работы для дня недели (0 = понедельник).
// (nil, nil), если запись не настроена — вызывающий трактует это как fail-open.
func (s *Store) GetBusinessDay(ctx context.Context, dayOfWeek int) (*models.BusinessHours, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT id, day_of_week, open_time, close_time, active, timezone
		FROM business_hours
		WHERE day_of_week = $1`

	var bh models.BusinessHours
	if err := s.db.QueryRowContext(ctx, q, dayOfWeek).Scan(
		&bh.ID, &bh.DayOfWeek, &bh.OpenTime, &bh.CloseTime, &bh.Active, &bh.Timezone,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("GetBusinessDay: %w", err)
	}
	return &bh, nil
}

// ListBusinessWeek возвращает всю недельную таблицу.
func (s *Store) ListBusinessWeek(ctx context.Context) ([]models.BusinessHours, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT id, day_of_week, open_time, close_time, active, timezone
		FROM business_hours
		ORDER BY day_of_week`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListBusinessWeek: %w", err)
	}
	defer rows.Close()

	var result []models.BusinessHours
	for rows.Next() {
		var bh models.BusinessHours
		if err := rows.Scan(&bh.ID, &bh.DayOfWeek, &bh.OpenTime, &bh.CloseTime, &bh.Active, &bh.Timezone); err != nil {
			return nil, fmt.Errorf("ListBusinessWeek: scan: %w", err)
		}
		result = append(result, bh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListBusinessWeek: rows: %w", err)
	}
	return result, nil
}

// SaveBusinessDay вставляет или обновляет окно для дня недели.
// На день недели существует не более одной авторитетной записи.
func (s *Store) SaveBusinessDay(ctx context.Context, bh *models.BusinessHours) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	if bh.ID == uuid.Nil {
		bh.ID = uuid.New()
	}

	const q = `
		INSERT INTO business_hours (id, day_of_week, open_time, close_time, active, timezone)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (day_of_week) DO UPDATE
		SET open_time = EXCLUDED.open_time,
		    close_time = EXCLUDED.close_time,
		    active = EXCLUDED.active,
		    timezone = EXCLUDED.timezone`

	if _, err := s.db.ExecContext(ctx, q,
		bh.ID, bh.DayOfWeek, bh.OpenTime, bh.CloseTime, bh.Active, bh.Timezone,
	); err != nil {
		return fmt.Errorf("SaveBusinessDay: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egor/omnidesk/models"
)

// ─────────────────────────── GetCustomerByExternal

// GetCustomerByExternal ищет клиента по паре (external_id, platform).
// Возвращает (nil, nil), если клиент не найден.
func (s *Store) GetCustomerByExternal(ctx context.Context, externalID, platform string) (*models.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT id, external_id, platform, name, phone, profile_image,
		       gender, age, tags, memo, created_at, updated_at
		FROM customers
		WHERE external_id = $1 AND platform = $2`

	row := s.db.QueryRowContext(ctx, q, externalID, platform)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetCustomerByExternal: %w", err)
	}
	return c, nil
}

// GetCustomer возвращает клиента по ID. (nil, nil), если не найден.
func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		SELECT id, external_id, platform, name, phone, profile_image,
		       gender, age, tags, memo, created_at, updated_at
		FROM customers
		WHERE id = $1`

	row := s.db.QueryRowContext(ctx, q, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetCustomer: %w", err)
	}
	return c, nil
}

// ─────────────────────────── CreateCustomer

// CreateCustomer сохраняет нового клиента. ID и таймстемпы проставляются здесь.
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	const q = `
		INSERT INTO customers
			(id, external_id, platform, name, phone, profile_image,
			 gender, age, tags, memo, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := s.db.ExecContext(ctx, q,
		c.ID, c.ExternalID, c.Platform, c.Name, c.Phone, c.ProfileImage,
		c.Gender, c.Age, c.Tags, c.Memo, c.CreatedAt, c.UpdatedAt,
	); err != nil {
		return fmt.Errorf("CreateCustomer: %w", err)
	}
	return nil
}

// ─────────────────────────── UpdateCustomerProfile

// UpdateCustomerProfile обновляет денормализованные поля профиля
// (имя и картинку), когда канал прислал новые значения.
func (s *Store) UpdateCustomerProfile(ctx context.Context, id uuid.UUID, name string, profileImage *string) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	const q = `
		UPDATE customers
		SET name = $2,
		    profile_image = COALESCE($3, profile_image),
		    updated_at = NOW()
		WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, q, id, name, profileImage); err != nil {
		return fmt.Errorf("UpdateCustomerProfile: %w", err)
	}
	return nil
}

// ─────────────────────────── DeleteCustomer

// DeleteCustomer удаляет клиента. Диалоги не трогаются — каскадная очистка
// на совести вызывающего.
func (s *Store) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbQueryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeleteCustomer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ─────────────────────────── scan

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var (
		c            models.Customer
		phone        sql.NullString
		profileImage sql.NullString
		gender       sql.NullString
		age          sql.NullString
		tags         sql.NullString
		memo         sql.NullString
	)
	if err := row.Scan(
		&c.ID, &c.ExternalID, &c.Platform, &c.Name, &phone, &profileImage,
		&gender, &age, &tags, &memo, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Phone = nullStringToPointer(phone)
	c.ProfileImage = nullStringToPointer(profileImage)
	c.Gender = nullStringToPointer(gender)
	c.Age = nullStringToPointer(age)
	c.Tags = nullStringToPointer(tags)
	c.Memo = nullStringToPointer(memo)
	return &c, nil
}

package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	dbQueryTimeout  = 5 * time.Second
)

// Store реализует доступ к Postgres. Конструируется один раз при старте
// и передается сервисам явно — никакого глобального состояния кроме пула.
type Store struct {
	db *sql.DB
}

// NewStore создает Store поверх пула соединений.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func VerifyPassword(pw, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}

// ─────────────────────────────── null-helpers

// nullStringToPointer превращает sql.NullString → *string.
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		s := ns.String
		return &s
	}
	return nil
}

// nullTimeToPointer превращает sql.NullTime → *time.Time.
func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time
		return &t
	}
	return nil
}

// nullUUIDToPointer превращает sql.NullString → *uuid.UUID.
func nullUUIDToPointer(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid {
		return nil, nil
	}
	u, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Загружаем переменные окружения из .env файла
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	// Подключаемся к базе данных
	db, err := sql.Open("pgx", buildDSN())
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Ошибка проверки соединения с БД: %v", err)
	}
	log.Println("Успешное подключение к базе данных")

	createTables(db)
	seedAgents(db)
	seedBusinessHours(db)

	log.Println("База данных успешно инициализирована")
}

func buildDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		env("PG_HOST", "localhost"),
		env("PG_PORT", "5432"),
		env("PG_USER", "postgres"),
		env("PG_PASSWORD", "postgres"),
		env("PG_DATABASE", "omnidesk"),
		env("PG_SSL_MODE", "disable"),
	)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Создание таблиц базы данных
func createTables(db *sql.DB) {
	// Таблица операторов
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'agent',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			status TEXT NOT NULL DEFAULT 'offline',
			auto_assign BOOLEAN NOT NULL DEFAULT TRUE,
			max_concurrent_chats INT NOT NULL DEFAULT 5,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		log.Fatalf("Ошибка создания таблицы users: %v", err)
	}

	// Таблица клиентов: один клиент на пару (external_id, platform)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS customers (
			id UUID PRIMARY KEY,
			external_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			name TEXT NOT NULL,
			phone TEXT,
			profile_image TEXT,
			gender TEXT,
			age INT,
			tags TEXT,
			memo TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (external_id, platform)
		)
	`)
	if err != nil {
		log.Fatalf("Ошибка создания таблицы customers: %v", err)
	}

	// Таблица диалогов
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			customer_id UUID NOT NULL REFERENCES customers (id),
			channel_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			assigned_agent_id UUID REFERENCES users (id),
			assigned_at TIMESTAMPTZ,
			priority INT NOT NULL DEFAULT 0,
			unread_count INT NOT NULL DEFAULT 0,
			last_message_at TIMESTAMPTZ,
			profile_name TEXT,
			profile_image TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Fatalf("Ошибка создания таблицы conversations: %v", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_conversations_open
		ON conversations (customer_id, channel_type)
		WHERE status = 'open'
	`)
	if err != nil {
		log.Fatalf("Ошибка создания индекса conversations: %v", err)
	}

	// Таблица сообщений (только добавление, без правок)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES conversations (id),
			sender_type TEXT NOT NULL,
			sender_id TEXT,
			content TEXT NOT NULL,
			channel TEXT NOT NULL,
			message_type TEXT NOT NULL DEFAULT 'text',
			file_url TEXT,
			file_type TEXT,
			file_size BIGINT,
			thumbnail_url TEXT,
			status TEXT NOT NULL DEFAULT 'sent',
			delivered_at TIMESTAMPTZ,
			read_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Fatalf("Ошибка создания таблицы messages: %v", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages (conversation_id, created_at)
	`)
	if err != nil {
		log.Fatalf("Ошибка создания индекса messages: %v", err)
	}

	// Рабочие часы: одна строка на день недели, 0 = понедельник
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS business_hours (
			id UUID PRIMARY KEY,
			day_of_week INT NOT NULL UNIQUE,
			open_time TEXT NOT NULL,
			close_time TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			timezone TEXT NOT NULL DEFAULT 'Asia/Seoul'
		)
	`)
	if err != nil {
		log.Fatalf("Ошибка создания таблицы business_hours: %v", err)
	}

	log.Println("Все таблицы успешно созданы")
}

// seedAgents создает администратора и пару тестовых операторов
func seedAgents(db *sql.DB) {
	agents := []struct {
		name     string
		email    string
		role     string
		capacity int
	}{
		{"Администратор", "admin@example.com", "admin", 10},
		{"김지은", "jieun@example.com", "agent", 5},
		{"박민수", "minsu@example.com", "agent", 3},
	}

	for _, a := range agents {
		passwordHash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Ошибка хеширования пароля: %v", err)
		}

		id := uuid.New()
		_, err = db.Exec(`
			INSERT INTO users (id, email, name, password_hash, role, active, status, auto_assign, max_concurrent_chats)
			VALUES ($1, $2, $3, $4, $5, TRUE, 'offline', TRUE, $6)
			ON CONFLICT (email) DO NOTHING
		`, id, a.email, a.name, string(passwordHash), a.role, a.capacity)
		if err != nil {
			log.Fatalf("Ошибка создания оператора %s: %v", a.email, err)
		}
		log.Printf("Создан оператор %s (%s) с ID: %s", a.name, a.email, id)
	}
}

// seedBusinessHours заполняет рабочую неделю по умолчанию:
// будни 09:00-18:00, выходные закрыты. 0 = понедельник.
func seedBusinessHours(db *sql.DB) {
	for day := 0; day < 7; day++ {
		active := day < 5

		_, err := db.Exec(`
			INSERT INTO business_hours (id, day_of_week, open_time, close_time, active, timezone)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (day_of_week) DO NOTHING
		`, uuid.New(), day, "09:00", "18:00", active, "Asia/Seoul")
		if err != nil {
			log.Fatalf("Ошибка заполнения рабочих часов (день %d): %v", day, err)
		}
	}

	log.Println("Рабочие часы по умолчанию заполнены")
}

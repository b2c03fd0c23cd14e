package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper отсеивает повторные доставки вебхуков: платформы (Meta, Kakao)
// ретраят события, и без дедупликации одно сообщение клиента обрабатывалось бы дважды.
type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDeduper подключается к Redis по переменным окружения.
// Возвращает (nil, nil), если REDIS_ADDR не задан — дедупликация опциональна.
func NewRedisDeduper() (*RedisDeduper, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Println("[dedup] REDIS_ADDR не задан, дедупликация вебхуков отключена")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Println("[dedup] Redis connected ✓")
	return &RedisDeduper{
		rdb: rdb,
		ttl: 24 * time.Hour,
	}, nil
}

// Seen атомарно помечает событие обработанным. true — событие уже встречалось.
func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, "webhook:event:"+eventID, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: %w", err)
	}
	return !ok, nil
}

// Close закрывает соединение с Redis.
func (d *RedisDeduper) Close() error {
	return d.rdb.Close()
}

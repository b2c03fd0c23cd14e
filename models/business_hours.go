package models

import "github.com/google/uuid"

// BusinessHours — окно работы поддержки для одного дня недели.
// DayOfWeek: 0 = понедельник ... 6 = воскресенье.
// Отсутствие записи на сегодня трактуется как «работаем» (fail-open).
type BusinessHours struct {
	ID        uuid.UUID `json:"id"`
	DayOfWeek int       `json:"dayOfWeek"`
	OpenTime  string    `json:"openTime"`  // "09:00"
	CloseTime string    `json:"closeTime"` // "18:00"
	Active    bool      `json:"active"`
	Timezone  string    `json:"timezone"`
}

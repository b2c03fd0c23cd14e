package services

import (
	"context"
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/egor/omnidesk/models"
)

// DefaultTimezone — часовой пояс поддержки по умолчанию.
const DefaultTimezone = "Asia/Seoul"

// HoursService отвечает на вопрос «работает ли поддержка прямо сейчас».
// Недельная таблица читается через TTL-кэш: проверка выполняется на каждое
// входящее сообщение, а расписание меняется редко.
type HoursService struct {
	store HoursStore
	cache *gocache.Cache
	now   func() time.Time
}

// NewHoursService создает сервис рабочих часов.
func NewHoursService(store HoursStore) *HoursService {
	return &HoursService{
		store: store,
		cache: gocache.New(5*time.Minute, 10*time.Minute),
		now:   time.Now,
	}
}

// IsOpenNow сообщает, попадает ли текущее время в окно работы для данного
// часового пояса. Правила:
//   - нет записи на сегодня → открыто (fail-open);
//   - запись неактивна → закрыто весь день;
//   - границы окна включительные: сообщение ровно в close_time еще «в часах».
func (s *HoursService) IsOpenNow(ctx context.Context, timezone string) (bool, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("[hours] неизвестный часовой пояс %q, используем UTC: %v", timezone, err)
		loc = time.UTC
	}

	now := s.now().In(loc)
	// 0 = понедельник, как в таблице
	day := (int(now.Weekday()) + 6) % 7

	bh, err := s.businessDay(ctx, day)
	if err != nil {
		return false, err
	}
	if bh == nil {
		// расписание на сегодня не настроено — считаем, что работаем
		return true, nil
	}
	if !bh.Active {
		return false, nil
	}

	openMin, err := parseWallClock(bh.OpenTime)
	if err != nil {
		log.Printf("[hours] некорректное open_time %q (день %d), fail-open: %v", bh.OpenTime, day, err)
		return true, nil
	}
	closeMin, err := parseWallClock(bh.CloseTime)
	if err != nil {
		log.Printf("[hours] некорректное close_time %q (день %d), fail-open: %v", bh.CloseTime, day, err)
		return true, nil
	}

	cur := now.Hour()*60 + now.Minute()
	return openMin <= cur && cur <= closeMin, nil
}

// ClosedMessage возвращает текст для клиента, написавшего вне рабочих часов.
func (s *HoursService) ClosedMessage(ctx context.Context) string {
	day := (int(s.now().Weekday()) + 6) % 7
	bh, err := s.businessDay(ctx, day)
	if err != nil || bh == nil || !bh.Active {
		return "현재 운영시간이 아닙니다. 나중에 다시 문의해주세요."
	}
	return fmt.Sprintf(
		"안녕하세요! 현재는 운영시간이 아닙니다.\n운영시간: %s ~ %s\n지금은 AI 상담사가 도움을 드릴 수 있습니다.",
		bh.OpenTime, bh.CloseTime,
	)
}

// Week возвращает всю недельную таблицу, минуя кэш.
func (s *HoursService) Week(ctx context.Context) ([]models.BusinessHours, error) {
	return s.store.ListBusinessWeek(ctx)
}

// SetDay сохраняет окно для дня недели и сбрасывает его в кэше.
func (s *HoursService) SetDay(ctx context.Context, bh *models.BusinessHours) error {
	if bh.DayOfWeek < 0 || bh.DayOfWeek > 6 {
		return fmt.Errorf("некорректный день недели: %d", bh.DayOfWeek)
	}
	if _, err := parseWallClock(bh.OpenTime); err != nil {
		return fmt.Errorf("некорректное open_time %q: %w", bh.OpenTime, err)
	}
	if _, err := parseWallClock(bh.CloseTime); err != nil {
		return fmt.Errorf("некорректное close_time %q: %w", bh.CloseTime, err)
	}
	if bh.Timezone == "" {
		bh.Timezone = DefaultTimezone
	}

	if err := s.store.SaveBusinessDay(ctx, bh); err != nil {
		return err
	}
	s.cache.Delete(fmt.Sprintf("day:%d", bh.DayOfWeek))
	return nil
}

// EnsureDefaultWeek заполняет пустую таблицу рабочей неделей по умолчанию:
// будни 09:00-18:00, выходные закрыты. Непустая таблица не трогается.
func (s *HoursService) EnsureDefaultWeek(ctx context.Context) error {
	week, err := s.store.ListBusinessWeek(ctx)
	if err != nil {
		return err
	}
	if len(week) > 0 {
		return nil
	}

	for day := 0; day < 7; day++ {
		bh := &models.BusinessHours{
			DayOfWeek: day,
			OpenTime:  "09:00",
			CloseTime: "18:00",
			Active:    day < 5,
			Timezone:  DefaultTimezone,
		}
		if err := s.store.SaveBusinessDay(ctx, bh); err != nil {
			return err
		}
	}
	log.Printf("[hours] таблица рабочих часов пуста, заполнена неделей по умолчанию")
	return nil
}

// businessDay читает запись дня через кэш.
func (s *HoursService) businessDay(ctx context.Context, day int) (*models.BusinessHours, error) {
	key := fmt.Sprintf("day:%d", day)
	if v, ok := s.cache.Get(key); ok {
		return v.(*models.BusinessHours), nil
	}

	bh, err := s.store.GetBusinessDay(ctx, day)
	if err != nil {
		return nil, err
	}
	// кэшируем и отсутствие записи (nil)
	s.cache.Set(key, bh, gocache.DefaultExpiration)
	return bh, nil
}

// parseWallClock превращает "09:00" в минуты от полуночи.
func parseWallClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

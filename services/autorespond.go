package services

import (
	"context"
	"log"

	"github.com/egor/omnidesk/llm"
)

// hoursEvaluator — минимальный контракт проверки рабочих часов,
// чтобы тестировать политику независимо от реального сервиса.
type hoursEvaluator interface {
	IsOpenNow(ctx context.Context, timezone string) (bool, error)
}

// AutoResponsePolicy решает, отвечает ли на сообщение автоответчик
// вместо живого оператора.
type AutoResponsePolicy struct {
	hours      hoursEvaluator
	assignment *AssignmentService
	timezone   string
}

// NewAutoResponsePolicy создает политику автоответа.
func NewAutoResponsePolicy(hours hoursEvaluator, assignment *AssignmentService, timezone string) *AutoResponsePolicy {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	return &AutoResponsePolicy{
		hours:      hours,
		assignment: assignment,
		timezone:   timezone,
	}
}

// ShouldAutoRespond возвращает true, если отвечать должен автоответчик.
// Порядок проверок фиксирован:
//  1. сложный ключ (договор, юридический вопрос, просьба позвать оператора) —
//     всегда живой оператор, даже вне рабочих часов;
//  2. вне рабочих часов — автоответ;
//  3. в рабочие часы, но свободных операторов нет — автоответ;
//  4. простой вопрос (приветствие, FAQ) — автоответ;
//  5. иначе — ждем оператора.
func (p *AutoResponsePolicy) ShouldAutoRespond(ctx context.Context, messageText string) bool {
	if llm.ContainsComplexKeyword(messageText) {
		return false
	}

	open, err := p.hours.IsOpenNow(ctx, p.timezone)
	if err != nil {
		log.Printf("[policy] ошибка проверки рабочих часов: %v", err)
		open = true // при ошибке считаем, что работаем
	}
	if !open {
		return true
	}

	available, err := p.assignment.AvailableAgents(ctx)
	if err != nil {
		log.Printf("[policy] ошибка проверки доступности операторов: %v", err)
	} else if len(available) == 0 {
		return true
	}

	return llm.ContainsSimpleKeyword(messageText)
}

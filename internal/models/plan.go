// Package models содержит доменные структуры ядра контроля доступа:
// пользователя, подписку, запись о платеже и закрытые перечисления статусов.
// Отображаемые подписи для статусов здесь не хранятся, это забота слоя представления.
package models

import (
	"errors"
	"time"
)

// ErrUnknownPlan возвращается при разборе неизвестного тарифа.
var ErrUnknownPlan = errors.New("unknown plan")

// Plan тариф доступа.
type Plan string

const (
	PlanTrial      Plan = "trial"
	PlanSevenDays  Plan = "7days"
	PlanThirtyDays Plan = "30days"
	PlanNone       Plan = "none"
)

// Day длительность одних суток, единица для всех расчётов окна доступа.
const Day = 24 * time.Hour

// ParsePlan разбирает строковое значение тарифа.
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(s); p {
	case PlanTrial, PlanSevenDays, PlanThirtyDays, PlanNone:
		return p, nil
	}
	return "", ErrUnknownPlan
}

// IsPaid сообщает, является ли тариф платным (7 или 30 дней).
func (p Plan) IsPaid() bool {
	return p == PlanSevenDays || p == PlanThirtyDays
}

// Duration возвращает длительность платного окна для тарифа.
// Для бесплатных тарифов второй результат false.
func (p Plan) Duration() (time.Duration, bool) {
	switch p {
	case PlanSevenDays:
		return 7 * Day, true
	case PlanThirtyDays:
		return 30 * Day, true
	}
	return 0, false
}

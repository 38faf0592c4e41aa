// Package access вычисляет текущее состояние доступа пользователя к премиум-контенту.
//
// Политика чистая: результат зависит только от (подписка, начало пробного периода, now).
// Ничего не кешируется, так как часы идут, и ошибок не бывает: при любых
// неполных данных ответ по умолчанию "доступа нет".
package access

import (
	"time"

	"github.com/magabrotheeeer/premium-access/internal/models"
)

const (
	// DefaultTrialDays длина пробного периода, если конфигурация не задала иное.
	DefaultTrialDays = 3
	// UnlimitedDays значение daysLeft для администраторов.
	UnlimitedDays = 999
)

// Policy политика доступа с настраиваемой длиной пробного периода.
type Policy struct {
	TrialDays int
}

// New создает политику. Неположительная длина заменяется на DefaultTrialDays.
func New(trialDays int) Policy {
	if trialDays <= 0 {
		trialDays = DefaultTrialDays
	}
	return Policy{TrialDays: trialDays}
}

// Evaluate вычисляет доступ с пробным периодом по умолчанию.
func Evaluate(u models.User, now time.Time) models.AccessState {
	return New(DefaultTrialDays).Evaluate(u, now)
}

// Evaluate применяет правила в строгом порядке приоритета:
// администратор, оплаченное и одобренное окно, пробный период.
//
// Неполные сутки считаются полными: подписка, истекающая через 30 минут,
// даёт daysLeft = 1.
func (p Policy) Evaluate(u models.User, now time.Time) models.AccessState {
	if u.IsAdmin {
		return models.AccessState{HasAccess: true, DaysLeft: UnlimitedDays}
	}

	sub := u.Subscription
	if sub.Active && sub.PaymentStatus == models.PaymentStatusApproved && sub.EndDate != nil {
		if left := ceilDays(sub.EndDate.Sub(now)); left > 0 {
			return models.AccessState{HasAccess: true, DaysLeft: left}
		}
		// истёкший платный тариф пробный период не возрождает:
		// расчёт ниже идёт от даты регистрации
	}

	return p.trial(u.TrialStart, now)
}

func (p Policy) trial(start, now time.Time) models.AccessState {
	trialDays := p.TrialDays
	if trialDays <= 0 {
		trialDays = DefaultTrialDays
	}
	end := start.Add(time.Duration(trialDays) * models.Day)

	left := min(ceilDays(end.Sub(now)), trialDays)
	return models.AccessState{
		HasAccess: left > 0,
		DaysLeft:  left,
		IsTrial:   true,
	}
}

// ceilDays округляет длительность вверх до целых суток; неположительная даёт 0.
func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + models.Day - 1) / models.Day)
}

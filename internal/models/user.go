package models

import "time"

// User пользователь системы. Для ядра важны только поля, влияющие на доступ.
// TrialStart выставляется один раз при регистрации и больше не меняется.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"`
	IsAdmin      bool         `json:"isAdmin"`
	TrialStart   time.Time    `json:"trialStart"`
	Subscription Subscription `json:"subscription"`
}

// AccessState результат вычисления политики доступа.
type AccessState struct {
	HasAccess bool `json:"hasAccess"`
	DaysLeft  int  `json:"daysLeft"`
	IsTrial   bool `json:"isTrial"`
}

package models

import (
	"errors"
	"time"
)

// ErrInvalidSubscription возвращается, когда поля подписки противоречат друг другу.
var ErrInvalidSubscription = errors.New("invalid subscription")

// Subscription подписка, принадлежащая ровно одному пользователю.
// При каждом переходе заменяется целиком.
// StartDate и EndDate не имеют смысла, пока Plan = trial.
type Subscription struct {
	Plan            Plan          `json:"plan"`
	Active          bool          `json:"active"`
	StartDate       *time.Time    `json:"startDate,omitempty"`
	EndDate         *time.Time    `json:"endDate,omitempty"`
	PaymentProofURI *string       `json:"paymentProofUri,omitempty"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	RejectReason    *string       `json:"rejectReason,omitempty"`
}

// EmptySubscription подписка только что зарегистрированного пользователя.
func EmptySubscription() Subscription {
	return Subscription{
		Plan:          PlanNone,
		PaymentStatus: PaymentStatusNone,
	}
}

// Validate проверяет инварианты подписки:
// active ⇒ approved и end > start; pending ⇒ !active.
func (s Subscription) Validate() error {
	if _, err := ParsePlan(string(s.Plan)); err != nil {
		return err
	}
	if _, err := ParsePaymentStatus(string(s.PaymentStatus)); err != nil {
		return err
	}
	if s.Active {
		if s.PaymentStatus != PaymentStatusApproved {
			return ErrInvalidSubscription
		}
		if s.StartDate == nil || s.EndDate == nil || !s.EndDate.After(*s.StartDate) {
			return ErrInvalidSubscription
		}
	}
	if s.PaymentStatus == PaymentStatusPending && s.Active {
		return ErrInvalidSubscription
	}
	return nil
}

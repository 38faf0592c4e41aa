package models

import "errors"

// ErrUnknownStatus возвращается при разборе неизвестного статуса.
var ErrUnknownStatus = errors.New("unknown status")

// PaymentStatus статус оплаты, хранимый в подписке пользователя.
type PaymentStatus string

const (
	PaymentStatusNone     PaymentStatus = "none"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// ParsePaymentStatus разбирает статус оплаты подписки.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentStatusNone, PaymentStatusPending, PaymentStatusApproved, PaymentStatusRejected:
		return st, nil
	}
	return "", ErrUnknownStatus
}

// RecordStatus статус записи в журнале платежей.
type RecordStatus string

const (
	RecordPending  RecordStatus = "pending"
	RecordApproved RecordStatus = "approved"
	RecordRejected RecordStatus = "rejected"
)

// IsTerminal сообщает, что запись уже финализирована и больше не меняется.
func (s RecordStatus) IsTerminal() bool {
	return s == RecordApproved || s == RecordRejected
}

// ParseRecordStatus разбирает статус записи журнала.
func ParseRecordStatus(s string) (RecordStatus, error) {
	switch st := RecordStatus(s); st {
	case RecordPending, RecordApproved, RecordRejected:
		return st, nil
	}
	return "", ErrUnknownStatus
}

// PaymentMethod способ оплаты.
type PaymentMethod string

const (
	MethodExpress      PaymentMethod = "express"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodManual       PaymentMethod = "manual"
)

// ParsePaymentMethod разбирает способ оплаты.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case MethodExpress, MethodBankTransfer, MethodManual:
		return m, nil
	}
	return "", ErrUnknownStatus
}

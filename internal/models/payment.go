package models

import "time"

// PaymentRecord запись журнала платежей. Живёт независимо от подписки:
// отклонённый платёж остаётся в журнале навсегда.
type PaymentRecord struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	Plan         Plan          `json:"plan"`
	Amount       int64         `json:"amount"`
	Reference    string        `json:"reference"`
	Status       RecordStatus  `json:"status"`
	Method       PaymentMethod `json:"method"`
	RejectReason *string       `json:"rejectReason,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	ApprovedAt   *time.Time    `json:"approvedAt,omitempty"`
}

// BankDetails реквизиты для банковского перевода, берутся из конфигурации.
type BankDetails struct {
	Institution   string `json:"institution"`
	Holder        string `json:"holder,omitempty"`
	AccountNumber string `json:"accountNumber"`
	IBAN          string `json:"iban"`
}

// BankTransfer ответ на создание платежа банковским переводом.
type BankTransfer struct {
	PaymentID   string      `json:"paymentId"`
	ReferenceID string      `json:"referenceId"`
	BankDetails BankDetails `json:"bankDetails"`
	Amount      int64       `json:"amount"`
	Plan        Plan        `json:"plan"`
}

// NotificationKind тип уведомления о смене состояния платежа.
type NotificationKind string

const (
	NotifyProofSubmitted NotificationKind = "proof_submitted"
	NotifyApproved       NotificationKind = "approved"
	NotifyRejected       NotificationKind = "rejected"
)

// Notification сообщение, публикуемое в брокер для доставки пользователю или администратору.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	UserID     string           `json:"userId"`
	PaymentID  string           `json:"paymentId,omitempty"`
	Plan       Plan             `json:"plan,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

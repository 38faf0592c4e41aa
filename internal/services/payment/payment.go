// Package payment связывает журнал платежей и подписку пользователя
// в единый жизненный цикл: создание платежа, подтверждение оплаты,
// решение администратора, активация подписки и уведомления.
//
// Решение по платежу и соответствующий переход подписки выполняются
// в одной транзакции. Уведомления отправляются после фиксации и не
// влияют на результат операции.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/metrics"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/services/ledger"
	"github.com/magabrotheeeer/premium-access/internal/services/subscription"
)

var (
	// ErrAlreadyFinalized решение по платежу уже принято.
	ErrAlreadyFinalized = ledger.ErrAlreadyFinalized
	// ErrNothingToApprove у пользователя нет подписки, ожидающей одобрения.
	ErrNothingToApprove = subscription.ErrNothingToApprove
	// ErrInvalidPlan тариф не платный или для него не задана цена.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrAmountMismatch сумма в запросе не совпадает с ценой тарифа.
	ErrAmountMismatch = errors.New("amount does not match plan price")
	// ErrUserMismatch платёж принадлежит другому пользователю.
	ErrUserMismatch = errors.New("payment belongs to another user")
	// ErrPlanMismatch тариф в запросе не совпадает с тарифом платежа.
	ErrPlanMismatch = errors.New("plan does not match payment")
)

// TxManager выполняет функцию в транзакции хранилища.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Subscriptions переходы подписки пользователя.
type Subscriptions interface {
	SubmitPaymentProof(ctx context.Context, userID, proofURI string, plan models.Plan) (models.Subscription, error)
	Approve(ctx context.Context, userID string) (models.Subscription, error)
	Reject(ctx context.Context, userID string, reason *string) (models.Subscription, error)
	Load(ctx context.Context, userID string) (*models.User, error)
	Invalidate(ctx context.Context, userID string)
}

// Ledger журнал платежей.
type Ledger interface {
	Create(ctx context.Context, userID string, plan models.Plan, amount int64, method models.PaymentMethod) (*models.PaymentRecord, error)
	CreateBankTransfer(ctx context.Context, userID string, plan models.Plan, amount int64) (*models.BankTransfer, error)
	SetStatus(ctx context.Context, paymentID string, status models.RecordStatus, approvedAt *time.Time, reason *string) error
	Get(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	GetForUpdate(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	GetByReference(ctx context.Context, ref string) (*models.PaymentRecord, error)
	ListByUser(ctx context.Context, userID string) ([]*models.PaymentRecord, error)
}

// Notifier NotificationDispatch: доставка не гарантируется.
type Notifier interface {
	NotifyAdminProofSubmitted(ctx context.Context, userID, paymentID string, plan models.Plan) error
	NotifyUserApproved(ctx context.Context, userID, paymentID string, plan models.Plan) error
	NotifyUserRejected(ctx context.Context, userID, paymentID, reason string) error
}

// PriceTable цена каждого платного тарифа.
type PriceTable map[models.Plan]int64

// ProofRequest подтверждение оплаты от пользователя.
// Если Reference задан, подтверждение прикрепляется к существующему платежу,
// иначе создаётся новая запись журнала с методом manual.
type ProofRequest struct {
	UserID    string
	Plan      models.Plan
	ProofURI  string
	Reference string
}

// Workflow реализует PaymentWorkflow.
type Workflow struct {
	tx       TxManager
	subs     Subscriptions
	ledger   Ledger
	notifier Notifier
	prices   PriceTable
	log      *slog.Logger
	now      func() time.Time
}

// New создаёт оркестратор платежей.
func New(tx TxManager, subs Subscriptions, l Ledger, notifier Notifier, prices PriceTable, log *slog.Logger) *Workflow {
	return &Workflow{
		tx:       tx,
		subs:     subs,
		ledger:   l,
		notifier: notifier,
		prices:   prices,
		log:      log,
		now:      time.Now,
	}
}

// Price возвращает цену тарифа. amount, отличный от нуля, должен совпадать с ценой.
func (w *Workflow) Price(plan models.Plan, amount int64) (int64, error) {
	if !plan.IsPaid() {
		return 0, ErrInvalidPlan
	}
	price, ok := w.prices[plan]
	if !ok || price <= 0 {
		return 0, ErrInvalidPlan
	}
	if amount != 0 && amount != price {
		return 0, ErrAmountMismatch
	}
	return price, nil
}

// CreateExpressPayment создаёт платёж в pending. Доступ при этом не выдаётся.
func (w *Workflow) CreateExpressPayment(ctx context.Context, userID string, plan models.Plan, amount int64) (*models.PaymentRecord, error) {
	const op = "services.payment.CreateExpressPayment"

	price, err := w.Price(plan, amount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rec, err := w.ledger.Create(ctx, userID, plan, price, models.MethodExpress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// CreateBankTransferPayment создаёт платёж банковским переводом и возвращает реквизиты.
func (w *Workflow) CreateBankTransferPayment(ctx context.Context, userID string, plan models.Plan, amount int64) (*models.BankTransfer, error) {
	const op = "services.payment.CreateBankTransferPayment"

	price, err := w.Price(plan, amount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	bt, err := w.ledger.CreateBankTransfer(ctx, userID, plan, price)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bt, nil
}

// SubmitPaymentProof фиксирует подтверждение оплаты: запись журнала в pending
// и подписку в pending. Администратор получает уведомление.
func (w *Workflow) SubmitPaymentProof(ctx context.Context, req ProofRequest) (*models.PaymentRecord, models.Subscription, error) {
	const op = "services.payment.SubmitPaymentProof"

	var (
		rec *models.PaymentRecord
		sub models.Subscription
	)
	err := w.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if req.Reference != "" {
			rec, err = w.pendingByReference(ctx, req.Reference, req.UserID, req.Plan)
		} else {
			var price int64
			if price, err = w.Price(req.Plan, 0); err != nil {
				return err
			}
			rec, err = w.ledger.Create(ctx, req.UserID, req.Plan, price, models.MethodManual)
		}
		if err != nil {
			return err
		}
		sub, err = w.subs.SubmitPaymentProof(ctx, req.UserID, req.ProofURI, rec.Plan)
		return err
	})
	if err != nil {
		return nil, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	w.subs.Invalidate(ctx, req.UserID)
	ctx = context.WithoutCancel(ctx)
	if err := w.notifier.NotifyAdminProofSubmitted(ctx, rec.UserID, rec.ID, rec.Plan); err != nil {
		w.log.Warn("failed to notify admin about payment proof", sl.PaymentID(rec.ID), sl.UserID(rec.UserID), sl.Err(err))
	}
	return rec, sub, nil
}

// pendingByReference находит платёж пользователя в pending по ссылке и блокирует его.
func (w *Workflow) pendingByReference(ctx context.Context, ref, userID string, plan models.Plan) (*models.PaymentRecord, error) {
	found, err := w.ledger.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	rec, err := w.ledger.GetForUpdate(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrUserMismatch
	}
	if plan != "" && plan != rec.Plan {
		return nil, ErrPlanMismatch
	}
	if rec.Status.IsTerminal() {
		return nil, ErrAlreadyFinalized
	}
	return rec, nil
}

// ProcessApproval одобряет платёж: подписка становится активной, запись журнала
// переходит в approved. Оба изменения либо фиксируются вместе, либо не фиксируются.
// Из двух конкурентных решений по одному платежу успешно только одно,
// второе получает ErrAlreadyFinalized.
func (w *Workflow) ProcessApproval(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	const op = "services.payment.ProcessApproval"

	var rec *models.PaymentRecord
	err := w.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rec, err = w.ledger.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		return w.approveLocked(ctx, rec)
	})
	if err != nil {
		w.decisionFailed(op, paymentID, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	w.approved(ctx, rec)
	return rec, nil
}

func (w *Workflow) approveLocked(ctx context.Context, rec *models.PaymentRecord) error {
	if rec.Status.IsTerminal() {
		return ErrAlreadyFinalized
	}
	if _, err := w.subs.Approve(ctx, rec.UserID); err != nil {
		return err
	}
	now := w.now().UTC()
	if err := w.ledger.SetStatus(ctx, rec.ID, models.RecordApproved, &now, nil); err != nil {
		return err
	}
	rec.Status = models.RecordApproved
	rec.ApprovedAt = &now
	return nil
}

func (w *Workflow) approved(ctx context.Context, rec *models.PaymentRecord) {
	w.subs.Invalidate(ctx, rec.UserID)
	metrics.IncPaymentDecision("approved")
	metrics.AddApprovedAmount(string(rec.Plan), rec.Amount)
	w.log.Info("payment approved", sl.PaymentID(rec.ID), sl.UserID(rec.UserID))

	if err := w.notifier.NotifyUserApproved(context.WithoutCancel(ctx), rec.UserID, rec.ID, rec.Plan); err != nil {
		w.log.Warn("failed to notify user about approval", sl.PaymentID(rec.ID), sl.UserID(rec.UserID), sl.Err(err))
	}
}

// ProcessRejection отклоняет платёж. Подписка пользователя отклоняется, если
// она ожидает решения; активная подписка от другого платежа не затрагивается.
func (w *Workflow) ProcessRejection(ctx context.Context, paymentID string, reason *string) (*models.PaymentRecord, error) {
	const op = "services.payment.ProcessRejection"

	var rec *models.PaymentRecord
	err := w.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rec, err = w.ledger.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		return w.rejectLocked(ctx, rec, reason)
	})
	if err != nil {
		w.decisionFailed(op, paymentID, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	w.rejected(ctx, rec, reason)
	return rec, nil
}

func (w *Workflow) rejectLocked(ctx context.Context, rec *models.PaymentRecord, reason *string) error {
	if rec.Status.IsTerminal() {
		return ErrAlreadyFinalized
	}
	u, err := w.subs.Load(ctx, rec.UserID)
	if err != nil {
		return err
	}
	if u.Subscription.PaymentStatus == models.PaymentStatusPending {
		if _, err := w.subs.Reject(ctx, rec.UserID, reason); err != nil {
			return err
		}
	} else {
		w.log.Info("subscription is not pending, rejecting ledger record only",
			sl.PaymentID(rec.ID), sl.UserID(rec.UserID),
			slog.String("payment_status", string(u.Subscription.PaymentStatus)))
	}
	if err := w.ledger.SetStatus(ctx, rec.ID, models.RecordRejected, nil, reason); err != nil {
		return err
	}
	rec.Status = models.RecordRejected
	rec.RejectReason = reason
	return nil
}

func (w *Workflow) rejected(ctx context.Context, rec *models.PaymentRecord, reason *string) {
	w.subs.Invalidate(ctx, rec.UserID)
	metrics.IncPaymentDecision("rejected")
	w.log.Info("payment rejected", sl.PaymentID(rec.ID), sl.UserID(rec.UserID))

	var text string
	if reason != nil {
		text = *reason
	}
	if err := w.notifier.NotifyUserRejected(context.WithoutCancel(ctx), rec.UserID, rec.ID, text); err != nil {
		w.log.Warn("failed to notify user about rejection", sl.PaymentID(rec.ID), sl.UserID(rec.UserID), sl.Err(err))
	}
}

func (w *Workflow) decisionFailed(op, paymentID string, err error) {
	if errors.Is(err, ErrAlreadyFinalized) {
		metrics.IncPaymentDecision("already_finalized")
		w.log.Info("payment already finalized", slog.String("op", op), sl.PaymentID(paymentID))
		return
	}
	metrics.IncPaymentDecision("failed")
	w.log.Error("payment decision failed", slog.String("op", op), sl.PaymentID(paymentID), sl.Err(err))
}

// Status возвращает запись журнала для проверки статуса.
func (w *Workflow) Status(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	const op = "services.payment.Status"
	rec, err := w.ledger.Get(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// ListByUser возвращает платежи пользователя.
func (w *Workflow) ListByUser(ctx context.Context, userID string) ([]*models.PaymentRecord, error) {
	const op = "services.payment.ListByUser"
	list, err := w.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

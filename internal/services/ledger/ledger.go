// Package ledger ведёт журнал платёжных попыток. Журнал не зависит от подписки:
// запись создаётся в pending, один раз переходит в approved или rejected
// и больше никогда не меняется и не удаляется.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/premium-access/internal/lib/reference"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/metrics"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

var (
	// ErrAlreadyFinalized запись уже находится в терминальном статусе.
	ErrAlreadyFinalized = errors.New("payment already finalized")
	// ErrReferenceCollision ссылка совпала с существующей и после повторной генерации.
	ErrReferenceCollision = errors.New("payment reference collision")
	// ErrInvalidAmount сумма платежа должна быть положительной.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidPlan в журнал попадают только платные тарифы.
	ErrInvalidPlan = errors.New("plan is not a paid plan")
	// ErrInvalidStatus запись можно перевести только в approved или rejected.
	ErrInvalidStatus = errors.New("target status must be terminal")
)

// Repository хранилище записей журнала.
type Repository interface {
	CreatePayment(ctx context.Context, p models.PaymentRecord) error
	GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error)
	GetPaymentForUpdate(ctx context.Context, id string) (*models.PaymentRecord, error)
	GetPaymentByReference(ctx context.Context, reference string) (*models.PaymentRecord, error)
	FinalizePayment(ctx context.Context, id string, status models.RecordStatus, approvedAt *time.Time, reason *string) error
	ListPaymentsByUser(ctx context.Context, userID string) ([]*models.PaymentRecord, error)
}

// Service реализует PaymentLedger.
type Service struct {
	repo   Repository
	bank   models.BankDetails
	log    *slog.Logger
	newRef reference.Generator
	newID  func() string
	now    func() time.Time
}

// New создаёт журнал. Реквизиты банка приходят из конфигурации и возвращаются как есть.
func New(repo Repository, bank models.BankDetails, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bank:   bank,
		log:    log,
		newRef: reference.New,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// CreateWithReference добавляет запись с заданной ссылкой.
// Занятая ссылка возвращает storage.ErrReferenceExists без повторов.
func (s *Service) CreateWithReference(ctx context.Context, userID string, plan models.Plan, amount int64, method models.PaymentMethod, ref string) (*models.PaymentRecord, error) {
	const op = "services.ledger.CreateWithReference"

	if !plan.IsPaid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPlan)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	rec := models.PaymentRecord{
		ID:        s.newID(),
		UserID:    userID,
		Plan:      plan,
		Amount:    amount,
		Reference: ref,
		Status:    models.RecordPending,
		Method:    method,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreatePayment(ctx, rec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.IncPaymentCreated(string(method), string(plan))
	s.log.Info("payment created", sl.PaymentID(rec.ID), sl.UserID(userID),
		slog.String("reference", ref), slog.String("method", string(method)))
	return &rec, nil
}

// Create добавляет запись со сгенерированной ссылкой.
// При коллизии ссылка генерируется заново один раз, затем возвращается ErrReferenceCollision.
func (s *Service) Create(ctx context.Context, userID string, plan models.Plan, amount int64, method models.PaymentMethod) (*models.PaymentRecord, error) {
	const op = "services.ledger.Create"

	for attempt := 0; attempt < 2; attempt++ {
		rec, err := s.CreateWithReference(ctx, userID, plan, amount, method, s.newRef())
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, storage.ErrReferenceExists) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Warn("payment reference collision", sl.UserID(userID), slog.Int("attempt", attempt+1))
	}
	return nil, fmt.Errorf("%s: %w", op, ErrReferenceCollision)
}

// CreateBankTransfer создаёт запись для банковского перевода и возвращает
// ссылку для назначения платежа вместе с реквизитами.
func (s *Service) CreateBankTransfer(ctx context.Context, userID string, plan models.Plan, amount int64) (*models.BankTransfer, error) {
	const op = "services.ledger.CreateBankTransfer"

	rec, err := s.Create(ctx, userID, plan, amount, models.MethodBankTransfer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.BankTransfer{
		PaymentID:   rec.ID,
		ReferenceID: rec.Reference,
		BankDetails: s.bank,
		Amount:      rec.Amount,
		Plan:        rec.Plan,
	}, nil
}

// SetStatus финализирует запись. Повторная финализация возвращает ErrAlreadyFinalized.
func (s *Service) SetStatus(ctx context.Context, paymentID string, status models.RecordStatus, approvedAt *time.Time, reason *string) error {
	const op = "services.ledger.SetStatus"

	if !status.IsTerminal() {
		return fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}
	if status != models.RecordApproved {
		approvedAt = nil
	}
	err := s.repo.FinalizePayment(ctx, paymentID, status, approvedAt, reason)
	if errors.Is(err, storage.ErrNotPending) {
		return fmt.Errorf("%s: %w", op, ErrAlreadyFinalized)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Get возвращает запись по ID.
func (s *Service) Get(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	const op = "services.ledger.Get"
	rec, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// GetForUpdate возвращает запись, блокируя её до конца текущей транзакции.
func (s *Service) GetForUpdate(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	const op = "services.ledger.GetForUpdate"
	rec, err := s.repo.GetPaymentForUpdate(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// GetByReference ищет запись по ссылке платежа.
func (s *Service) GetByReference(ctx context.Context, ref string) (*models.PaymentRecord, error) {
	const op = "services.ledger.GetByReference"
	rec, err := s.repo.GetPaymentByReference(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// ListByUser возвращает все записи пользователя. Порядок не гарантируется.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*models.PaymentRecord, error) {
	const op = "services.ledger.ListByUser"
	list, err := s.repo.ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if list == nil {
		list = []*models.PaymentRecord{}
	}
	return list, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/premium-access/internal/models"
)

const paymentColumns = `id, user_uid, plan, amount, reference, status, method,
	reject_reason, created_at, approved_at`

func scanPayment(row rowScanner) (*models.PaymentRecord, error) {
	var (
		p                    models.PaymentRecord
		plan, status, method string
		reason               sql.NullString
		approvedAt           sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.UserID, &plan, &p.Amount, &p.Reference, &status, &method,
		&reason, &p.CreatedAt, &approvedAt); err != nil {
		return nil, err
	}
	p.Plan = models.Plan(plan)
	p.Status = models.RecordStatus(status)
	p.Method = models.PaymentMethod(method)
	if reason.Valid {
		p.RejectReason = &reason.String
	}
	if approvedAt.Valid {
		p.ApprovedAt = &approvedAt.Time
	}
	return &p, nil
}

// CreatePayment добавляет запись в журнал платежей.
func (s *Storage) CreatePayment(ctx context.Context, p models.PaymentRecord) error {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (id, user_uid, plan, amount, reference, status, method, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.q(ctx).ExecContext(ctx, query,
		p.ID, p.UserID, string(p.Plan), p.Amount, p.Reference, string(p.Status), string(p.Method), p.CreatedAt)
	if err != nil {
		switch code, constraint := pgCode(err); {
		case code == pgUniqueViolation && constraint == "payments_reference_key":
			return fmt.Errorf("%s: %w", op, ErrReferenceExists)
		case code == pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetPayment возвращает запись журнала по ID.
func (s *Storage) GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error) {
	const op = "storage.GetPayment"
	return s.getPayment(ctx, op, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetPaymentForUpdate читает запись с блокировкой строки до конца транзакции,
// так что конкурентные решения по одному платежу выполняются строго по очереди.
func (s *Storage) GetPaymentForUpdate(ctx context.Context, id string) (*models.PaymentRecord, error) {
	const op = "storage.GetPaymentForUpdate"
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}
	return s.getPayment(ctx, op, query, id)
}

// GetPaymentByReference ищет запись по ссылке платежа.
func (s *Storage) GetPaymentByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	const op = "storage.GetPaymentByReference"
	return s.getPayment(ctx, op, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference)
}

func (s *Storage) getPayment(ctx context.Context, op, query, arg string) (*models.PaymentRecord, error) {
	p, err := scanPayment(s.q(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrPaymentNotFound)
		}
		if code, _ := pgCode(err); code == "22P02" {
			return nil, fmt.Errorf("%s: %w", op, ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// FinalizePayment переводит запись из pending в терминальный статус.
// Обновление условное (WHERE status = 'pending'): если запись уже
// финализирована, возвращается ErrNotPending и ничего не меняется.
func (s *Storage) FinalizePayment(ctx context.Context, id string, status models.RecordStatus, approvedAt *time.Time, reason *string) error {
	const op = "storage.FinalizePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET status = $1, approved_at = $2, reject_reason = $3
			  WHERE id = $4 AND status = 'pending'`
	res, err := s.q(ctx).ExecContext(ctx, query, string(status), approvedAt, reason, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 {
		return nil
	}

	if _, err := s.GetPayment(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, ErrNotPending)
}

// ListPaymentsByUser возвращает все записи журнала пользователя, новые первыми.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.PaymentRecord, error) {
	const op = "storage.ListPaymentsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE user_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.q(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		if code, _ := pgCode(err); code == "22P02" {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

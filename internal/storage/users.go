package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/premium-access/internal/models"
)

const userColumns = `uid, email, username, password_hash, is_admin, trial_start,
	sub_plan, sub_active, sub_start_date, sub_end_date, sub_payment_proof_uri,
	sub_payment_status, sub_reject_reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                  models.User
		plan, status       string
		startDate, endDate sql.NullTime
		proof, reason      sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.TrialStart,
		&plan, &u.Subscription.Active, &startDate, &endDate, &proof,
		&status, &reason); err != nil {
		return nil, err
	}

	u.Subscription.Plan = models.Plan(plan)
	u.Subscription.PaymentStatus = models.PaymentStatus(status)
	if startDate.Valid {
		u.Subscription.StartDate = &startDate.Time
	}
	if endDate.Valid {
		u.Subscription.EndDate = &endDate.Time
	}
	if proof.Valid {
		u.Subscription.PaymentProofURI = &proof.String
	}
	if reason.Valid {
		u.Subscription.RejectReason = &reason.String
	}
	return &u, nil
}

// CreateUser сохраняет нового пользователя вместе с начальной подпиской.
func (s *Storage) CreateUser(ctx context.Context, u models.User) error {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (uid, email, username, password_hash, is_admin, trial_start,
			      sub_plan, sub_payment_status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.q(ctx).ExecContext(ctx, query,
		u.ID, u.Email, u.Username, u.PasswordHash, u.IsAdmin, u.TrialStart,
		string(u.Subscription.Plan), string(u.Subscription.PaymentStatus))
	if err != nil {
		if code, _ := pgCode(err); code == pgUniqueViolation {
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.GetUser"
	return s.getUser(ctx, op, `SELECT `+userColumns+` FROM users WHERE uid = $1`, userID)
}

// GetUserByUsername возвращает пользователя по username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	return s.getUser(ctx, op, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// GetUserForUpdate читает пользователя с блокировкой строки до конца транзакции.
// Вне транзакции работает как GetUser.
func (s *Storage) GetUserForUpdate(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.GetUserForUpdate"
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}
	return s.getUser(ctx, op, query, userID)
}

func (s *Storage) getUser(ctx context.Context, op, query string, arg string) (*models.User, error) {
	u, err := scanUser(s.q(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		if code, _ := pgCode(err); code == "22P02" {
			// некорректный uuid: такой записи быть не может
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SaveSubscription целиком заменяет подписку пользователя.
func (s *Storage) SaveSubscription(ctx context.Context, userID string, sub models.Subscription) error {
	const op = "storage.SaveSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET sub_plan = $1,
			      sub_active = $2,
			      sub_start_date = $3,
			      sub_end_date = $4,
			      sub_payment_proof_uri = $5,
			      sub_payment_status = $6,
			      sub_reject_reason = $7
			  WHERE uid = $8`
	res, err := s.q(ctx).ExecContext(ctx, query,
		string(sub.Plan), sub.Active, sub.StartDate, sub.EndDate, sub.PaymentProofURI,
		string(sub.PaymentStatus), sub.RejectReason, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

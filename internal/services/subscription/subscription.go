// Package subscription владеет подпиской пользователя и меняет её
// только через определённые переходы: отправка подтверждения оплаты,
// одобрение, отклонение и полная замена администратором.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/premium-access/internal/access"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/metrics"
	"github.com/magabrotheeeer/premium-access/internal/models"
)

var (
	// ErrNothingToApprove у пользователя нет подписки в статусе pending.
	ErrNothingToApprove = errors.New("nothing to approve")
	// ErrInvalidPlan тариф не является платным.
	ErrInvalidPlan = errors.New("plan is not a paid plan")
)

// Repository хранилище пользователей со встроенной подпиской.
type Repository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserForUpdate(ctx context.Context, userID string) (*models.User, error)
	SaveSubscription(ctx context.Context, userID string, sub models.Subscription) error
}

// Cache кэш записей пользователей.
type Cache interface {
	GetUser(ctx context.Context, userID string) (*models.User, bool, error)
	UserFence(ctx context.Context, userID string) (int64, error)
	SetUserIfFence(ctx context.Context, u *models.User, fence int64) (bool, error)
	InvalidateUser(ctx context.Context, userID string) error
}

// Service реализует SubscriptionStore.
type Service struct {
	repo   Repository
	cache  Cache
	policy access.Policy
	log    *slog.Logger
	now    func() time.Time
}

// New создаёт сервис подписок.
func New(repo Repository, cache Cache, policy access.Policy, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		policy: policy,
		log:    log,
		now:    time.Now,
	}
}

// SubmitPaymentProof переводит подписку в pending для платного тарифа.
// Окно оплаченного доступа фиксируется сейчас: [now, now+длительность тарифа].
// Предыдущее состояние, включая другой pending-запрос, перезаписывается.
func (s *Service) SubmitPaymentProof(ctx context.Context, userID, proofURI string, plan models.Plan) (models.Subscription, error) {
	const op = "services.subscription.SubmitPaymentProof"

	d, ok := plan.Duration()
	if !ok {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, ErrInvalidPlan)
	}
	if _, err := s.repo.GetUserForUpdate(ctx, userID); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	start := s.now().UTC()
	end := start.Add(d)
	sub := models.Subscription{
		Plan:          plan,
		Active:        false,
		StartDate:     &start,
		EndDate:       &end,
		PaymentStatus: models.PaymentStatusPending,
	}
	if proofURI != "" {
		sub.PaymentProofURI = &proofURI
	}

	if err := s.save(ctx, userID, sub); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("payment proof submitted", sl.UserID(userID), slog.String("plan", string(plan)))
	return sub, nil
}

// Approve активирует подписку в статусе pending. Даты окна не пересчитываются.
// Если одобрять нечего, возвращается ErrNothingToApprove и ничего не меняется.
func (s *Service) Approve(ctx context.Context, userID string) (models.Subscription, error) {
	const op = "services.subscription.Approve"

	u, err := s.repo.GetUserForUpdate(ctx, userID)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	sub := u.Subscription
	if sub.PaymentStatus != models.PaymentStatusPending {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, ErrNothingToApprove)
	}

	sub.Active = true
	sub.PaymentStatus = models.PaymentStatusApproved
	sub.RejectReason = nil
	if err := sub.Validate(); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.save(ctx, userID, sub); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// Reject отклоняет подписку. Тариф и даты остаются для аудита.
func (s *Service) Reject(ctx context.Context, userID string, reason *string) (models.Subscription, error) {
	const op = "services.subscription.Reject"

	u, err := s.repo.GetUserForUpdate(ctx, userID)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	sub := u.Subscription
	sub.Active = false
	sub.PaymentStatus = models.PaymentStatusRejected
	sub.RejectReason = reason

	if err := s.save(ctx, userID, sub); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// Replace целиком заменяет подписку после проверки её инвариантов.
func (s *Service) Replace(ctx context.Context, userID string, sub models.Subscription) (models.Subscription, error) {
	const op = "services.subscription.Replace"

	if err := sub.Validate(); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.repo.GetUserForUpdate(ctx, userID); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.save(ctx, userID, sub); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription replaced", sl.UserID(userID),
		slog.String("plan", string(sub.Plan)), slog.String("payment_status", string(sub.PaymentStatus)))
	return sub, nil
}

// Load читает пользователя из хранилища в обход кэша, с блокировкой строки внутри транзакции.
func (s *Service) Load(ctx context.Context, userID string) (*models.User, error) {
	const op = "services.subscription.Load"
	u, err := s.repo.GetUserForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Get возвращает пользователя, сначала из кэша.
// Прочитанная из хранилища запись попадает в кэш, только если между чтением
// и записью пользователя не сбрасывали.
func (s *Service) Get(ctx context.Context, userID string) (*models.User, error) {
	const op = "services.subscription.Get"

	u, found, err := s.cache.GetUser(ctx, userID)
	if err != nil {
		s.log.Warn("failed to read user from cache", sl.UserID(userID), sl.Err(err))
	}
	if found {
		return u, nil
	}

	fence, fenceErr := s.cache.UserFence(ctx, userID)
	if fenceErr != nil {
		s.log.Warn("failed to read user cache fence", sl.UserID(userID), sl.Err(fenceErr))
	}

	u, err = s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if fenceErr != nil {
		return u, nil
	}
	stored, err := s.cache.SetUserIfFence(ctx, u, fence)
	if err != nil {
		s.log.Warn("failed to cache user", sl.UserID(userID), sl.Err(err))
	} else if !stored {
		s.log.Debug("user changed while loading, not cached", sl.UserID(userID))
	}
	return u, nil
}

// Access вычисляет текущее состояние доступа. Результат не кэшируется.
func (s *Service) Access(ctx context.Context, userID string) (models.AccessState, error) {
	const op = "services.subscription.Access"

	u, err := s.Get(ctx, userID)
	if err != nil {
		return models.AccessState{}, fmt.Errorf("%s: %w", op, err)
	}
	state := s.policy.Evaluate(*u, s.now())
	metrics.IncAccessEvaluation(accessResult(u, state))
	return state, nil
}

// Invalidate сбрасывает закэшированного пользователя.
// Вызывается после фиксации транзакции, в которой менялась подписка.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.log.Warn("failed to invalidate user cache", sl.UserID(userID), sl.Err(err))
	}
}

func (s *Service) save(ctx context.Context, userID string, sub models.Subscription) error {
	if err := s.repo.SaveSubscription(ctx, userID, sub); err != nil {
		return err
	}
	s.Invalidate(ctx, userID)
	return nil
}

func accessResult(u *models.User, st models.AccessState) string {
	switch {
	case u.IsAdmin:
		return "admin"
	case !st.HasAccess:
		return "denied"
	case st.IsTrial:
		return "trial"
	}
	return "paid"
}

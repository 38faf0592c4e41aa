// Package auth регистрирует пользователей и выдаёт JWT при входе.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/premium-access/internal/lib/jwt"
	"github.com/magabrotheeeer/premium-access/internal/lib/password"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// ErrInvalidCredentials неверное имя пользователя или пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя.
	CreateUser(ctx context.Context, u models.User) error
	// GetUserByUsername возвращает пользователя по имени или storage.ErrUserNotFound.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// TokenMaker выпускает и проверяет токены доступа.
type TokenMaker interface {
	GenerateToken(userID string, isAdmin bool) (string, error)
	ParseToken(tokenString string) (*jwt.CustomClaims, error)
}

// Service отвечает за регистрацию, вход и проверку токенов.
type Service struct {
	users    UserRepository
	jwtMaker TokenMaker
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(users UserRepository, jwtMaker TokenMaker, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
		log:      log,
		now:      time.Now,
	}
}

// Register создает пользователя. Пробный период начинается в момент регистрации,
// подписка пустая.
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	const op = "services.auth.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		TrialStart:   s.now().UTC(),
		Subscription: models.EmptySubscription(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", sl.UserID(u.ID))
	return u.ID, nil
}

// Login проверяет пароль и возвращает JWT вместе с пользователем.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (string, *models.User, error) {
	const op = "services.auth.Login"

	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(u.PasswordHash, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.jwtMaker.GenerateToken(u.ID, u.IsAdmin)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, u, nil
}

// ValidateToken проверяет JWT и возвращает его данные.
func (s *Service) ValidateToken(token string) (*jwt.CustomClaims, error) {
	const op = "services.auth.ValidateToken"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}

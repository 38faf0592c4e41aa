// Package sender доставляет уведомления о платежах по электронной почте.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/lib/smtp"
	"github.com/magabrotheeeer/premium-access/internal/metrics"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// UserRepository источник адресов получателей.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Transport SMTP соединение.
type Transport interface {
	Connect() (smtp.Client, error)
	GetSMTPUser() string
}

// Service формирует и отправляет письма.
type Service struct {
	users      UserRepository
	transport  Transport
	adminEmail string
	log        *slog.Logger
}

// New создает новый экземпляр Service.
func New(users UserRepository, transport Transport, adminEmail string, log *slog.Logger) *Service {
	return &Service{
		users:      users,
		transport:  transport,
		adminEmail: adminEmail,
		log:        log,
	}
}

// HandleMessage обрабатывает одно сообщение из очереди.
// Ошибка означает, что сообщение нужно вернуть в очередь; сообщения,
// которые невозможно доставить никогда, подтверждаются и логируются.
func (s *Service) HandleMessage(ctx context.Context, body []byte) error {
	const op = "services.sender.HandleMessage"
	log := s.log.With(slog.String("op", op))

	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		log.Error("dropping malformed message", sl.Err(err))
		return nil
	}
	log = log.With(slog.String("kind", string(n.Kind)), sl.UserID(n.UserID), sl.PaymentID(n.PaymentID))

	u, err := s.users.GetUser(ctx, n.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		log.Warn("dropping notification for unknown user")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	to, subject, text, ok := s.render(n, u)
	if !ok {
		log.Warn("dropping notification of unknown kind")
		return nil
	}
	if to == "" {
		log.Warn("no recipient configured")
		return nil
	}

	err = s.sendEmail([]string{to}, subject, text)
	metrics.IncNotificationDelivered(string(n.Kind), err == nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("notification delivered")
	return nil
}

func (s *Service) render(n models.Notification, u *models.User) (to, subject, text string, ok bool) {
	switch n.Kind {
	case models.NotifyProofSubmitted:
		return s.adminEmail,
			"Новое подтверждение оплаты",
			fmt.Sprintf("Пользователь %s (%s) отправил подтверждение оплаты тарифа %s.\n\nПлатёж: %s\nПроверьте его в панели администратора.",
				u.Username, u.Email, n.Plan, n.PaymentID),
			true
	case models.NotifyApproved:
		return u.Email,
			"Оплата подтверждена",
			fmt.Sprintf("Здравствуйте, %s!\n\nВаша оплата тарифа %s подтверждена. Премиум-доступ открыт.", u.Username, n.Plan),
			true
	case models.NotifyRejected:
		reason := n.Reason
		if reason == "" {
			reason = "не указана"
		}
		return u.Email,
			"Оплата отклонена",
			fmt.Sprintf("Здравствуйте, %s!\n\nК сожалению, ваша оплата отклонена.\nПричина: %s\n\nВы можете отправить подтверждение повторно.", u.Username, reason),
			true
	}
	return "", "", "", false
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.GetSMTPUser()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("rcpt to %s: %w", addr, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return client.Quit()
}

// Package paymentlist возвращает историю платежей пользователя.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/premium-access/internal/http/response"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/models"
)

// Response список платежей, новые первыми.
type Response struct {
	Success  bool                    `json:"success"`
	Payments []*models.PaymentRecord `json:"payments"`
}

// Service читает журнал платежей.
type Service interface {
	ListByUser(ctx context.Context, userID string) ([]*models.PaymentRecord, error)
}

// Handler обрабатывает GET /payments/user/{userId}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Платежи пользователя
// @Tags Payments
// @Produce  json
// @Param userId path string true "ID пользователя"
// @Success 200 {object} Response
// @Failure 500 {object} response.ErrorResponse
// @Router /payments/user/{userId} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "userId")
	payments, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		log.Error("failed to list payments", sl.UserID(userID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, Response{Success: true, Payments: payments})
}

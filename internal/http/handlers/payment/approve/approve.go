// Package approve обрабатывает одобрение платежа администратором.
package approve

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/premium-access/internal/http/response"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/services/payment"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// Service принимает решение по платежу.
type Service interface {
	ProcessApproval(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
}

// Handler обрабатывает POST /payments/approve/{paymentId}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Одобрить платёж
// @Description Активирует подписку пользователя и закрывает платёж
// @Tags Admin
// @Produce  json
// @Param paymentId path string true "ID платежа"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /payments/approve/{paymentId} [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.approve"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "paymentId")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("paymentId is required"))
		return
	}

	_, err := h.service.ProcessApproval(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrPaymentNotFound), errors.Is(err, storage.ErrUserNotFound):
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	case errors.Is(err, payment.ErrAlreadyFinalized):
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("payment already finalized"))
		return
	case errors.Is(err, payment.ErrNothingToApprove):
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("nothing to approve"))
		return
	default:
		log.Error("failed to approve payment", sl.PaymentID(id), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("payment approved", sl.PaymentID(id))
	render.JSON(w, r, response.OK())
}

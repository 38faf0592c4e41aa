// Package paymentwebhook принимает уведомления платёжного провайдера.
// Провайдер решает только платежи, созданные через /payments/create.
package paymentwebhook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/premium-access/internal/http/response"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/services/payment"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// Payload тело уведомления. TransactionID совпадает со ссылкой платежа.
type Payload struct {
	TransactionID string `json:"transactionId" validate:"required"`
	Status        string `json:"status" validate:"required"`
	UserID        string `json:"userId" validate:"required"`
	Plan          string `json:"plan" validate:"required,oneof=7days 30days"`
}

// Service применяет решение провайдера.
type Service interface {
	HandleWebhook(ctx context.Context, ev payment.WebhookEvent) (*models.PaymentRecord, error)
}

// Handler обрабатывает POST /webhooks/payment.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Webhook платёжного провайдера
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Param request body Payload true "Событие провайдера"
// @Success 200 {object} response.Response
// @Param X-Webhook-Token header string false "Общий секрет провайдера"
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /webhooks/payment [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var p Payload
	if err := render.DecodeJSON(r.Body, &p); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(p); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	rec, err := h.service.HandleWebhook(r.Context(), payment.WebhookEvent{
		TransactionID: p.TransactionID,
		Status:        p.Status,
		UserID:        p.UserID,
		Plan:          models.Plan(p.Plan),
	})
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrUnknownWebhookStatus):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid status"))
		case errors.Is(err, storage.ErrPaymentNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payment not found"))
		case errors.Is(err, payment.ErrAlreadyFinalized):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("payment already finalized"))
		case errors.Is(err, payment.ErrNotGatewayPayment):
			log.Warn("webhook for non-gateway payment refused", slog.String("reference", p.TransactionID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(payment.ErrNotGatewayPayment.Error()))
		case errors.Is(err, payment.ErrUserMismatch):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(payment.ErrUserMismatch.Error()))
		case errors.Is(err, payment.ErrPlanMismatch):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(payment.ErrPlanMismatch.Error()))
		default:
			log.Error("failed to process webhook event", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("webhook processed successfully", sl.PaymentID(rec.ID), slog.String("status", string(rec.Status)))
	render.JSON(w, r, response.OK())
}

// Package banktransfer обрабатывает создание платежа банковским переводом.
package banktransfer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/premium-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/premium-access/internal/http/response"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/services/payment"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// Request тело запроса.
type Request struct {
	UserID string `json:"userId" validate:"required"`
	Plan   string `json:"plan" validate:"required,oneof=7days 30days"`
	Amount int64  `json:"amount" validate:"gte=0"`
}

// Response ссылка для назначения платежа и реквизиты.
type Response struct {
	Success     bool               `json:"success"`
	PaymentID   string             `json:"paymentId"`
	ReferenceID string             `json:"referenceId"`
	BankDetails models.BankDetails `json:"bankDetails"`
	Amount      int64              `json:"amount"`
	Plan        models.Plan        `json:"plan"`
}

// Service создаёт платежи банковским переводом.
type Service interface {
	CreateBankTransferPayment(ctx context.Context, userID string, plan models.Plan, amount int64) (*models.BankTransfer, error)
}

// Handler обрабатывает POST /payments/bank-transfer.
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
// @Summary Банковский перевод
// @Description Создаёт платёж и возвращает ссылку и реквизиты для перевода
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Пользователь и тариф"
// @Success 201 {object} Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /payments/bank-transfer [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.banktransfer"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	if !middlewarectx.CanActFor(r.Context(), req.UserID) {
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("forbidden"))
		return
	}

	bt, err := h.service.CreateBankTransferPayment(r.Context(), req.UserID, models.Plan(req.Plan), req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrAmountMismatch):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(payment.ErrAmountMismatch.Error()))
		case errors.Is(err, payment.ErrInvalidPlan):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(payment.ErrInvalidPlan.Error()))
		case errors.Is(err, storage.ErrUserNotFound):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to create bank transfer", sl.UserID(req.UserID), sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("bank transfer issued", sl.PaymentID(bt.PaymentID), slog.String("reference", bt.ReferenceID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, Response{
		Success:     true,
		PaymentID:   bt.PaymentID,
		ReferenceID: bt.ReferenceID,
		BankDetails: bt.BankDetails,
		Amount:      bt.Amount,
		Plan:        bt.Plan,
	})
}

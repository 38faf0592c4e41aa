// Package proof принимает подтверждение оплаты от пользователя.
package proof

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
	"github.com/magabrotheeeer/premium-access/internal/services/subscription"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// Request тело запроса. Если ReferenceID передан, подтверждение привязывается
// к уже созданному платежу, иначе создаётся ручной платёж.
type Request struct {
	UserID          string `json:"userId" validate:"required"`
	Plan            string `json:"plan" validate:"required,oneof=7days 30days"`
	PaymentProofURI string `json:"paymentProofUri" validate:"required"`
	ReferenceID     string `json:"referenceId"`
}

// Response созданная запись журнала и новое состояние подписки.
type Response struct {
	Success      bool                  `json:"success"`
	Payment      *models.PaymentRecord `json:"payment"`
	Subscription models.Subscription   `json:"subscription"`
}

// Service фиксирует подтверждение оплаты.
type Service interface {
	SubmitPaymentProof(ctx context.Context, req payment.ProofRequest) (*models.PaymentRecord, models.Subscription, error)
}

// Handler обрабатывает POST /payments/proof.
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
// @Summary Отправить подтверждение оплаты
// @Description Переводит подписку в pending. Повторная отправка заменяет предыдущую.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Подтверждение"
// @Success 201 {object} Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /payments/proof [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.proof"
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

	rec, sub, err := h.service.SubmitPaymentProof(r.Context(), payment.ProofRequest{
		UserID:    req.UserID,
		Plan:      models.Plan(req.Plan),
		ProofURI:  req.PaymentProofURI,
		Reference: req.ReferenceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound), errors.Is(err, storage.ErrPaymentNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("not found"))
		case errors.Is(err, payment.ErrAlreadyFinalized):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("payment already finalized"))
		case errors.Is(err, payment.ErrUserMismatch):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(payment.ErrUserMismatch.Error()))
		case errors.Is(err, payment.ErrPlanMismatch):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(payment.ErrPlanMismatch.Error()))
		case errors.Is(err, payment.ErrInvalidPlan), errors.Is(err, subscription.ErrInvalidPlan):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid plan"))
		default:
			log.Error("failed to submit payment proof", sl.UserID(req.UserID), sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("payment proof submitted", sl.PaymentID(rec.ID), sl.UserID(req.UserID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, Response{Success: true, Payment: rec, Subscription: sub})
}

package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"dropx/internal/delivery-service/core/domain/dto"
	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

type PaymentHandler struct {
	paymentService ports.IPaymentService
	log            mylogger.Logger
}

func NewPaymentHandler(ps ports.IPaymentService, log mylogger.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: ps,
		log:            log,
	}
}

func toPaymentResponse(p *model.Payment) dto.PaymentResponseDto {
	return dto.PaymentResponseDto{
		PaymentID:    p.ID,
		DeliveryID:   p.DeliveryID,
		Amount:       p.Amount,
		Method:       string(p.Method),
		Status:       string(p.Status),
		RefundStatus: string(p.RefundStatus),
		RefundAmount: p.RefundAmount,
	}
}

func (ph *PaymentHandler) GetPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		id, err := pathUUID(r, "payment_id")
		if err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		payment, err := ph.paymentService.GetPayment(r.Context(), principal, id)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, toPaymentResponse(payment))
	}
}

func (ph *PaymentHandler) ConfirmPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		id, err := pathUUID(r, "payment_id")
		if err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		req := dto.ConfirmPaymentDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		payment, err := ph.paymentService.ConfirmPayment(r.Context(), principal, id, req.TransactionID)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, toPaymentResponse(payment))
	}
}

func (ph *PaymentHandler) RefundPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		id, err := pathUUID(r, "payment_id")
		if err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		req := dto.RefundPaymentDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}
		if req.Amount == nil {
			JsonError(w, http.StatusBadRequest, errors.New("amount is required"))
			return
		}

		payment, err := ph.paymentService.RefundPayment(r.Context(), principal, id, *req.Amount)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, toPaymentResponse(payment))
	}
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/myerrors"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

type PaymentService struct {
	mylog      mylogger.Logger
	payments   ports.IPaymentRepo
	deliveries ports.IDeliveryRepo
	dispatcher ports.IDispatcher
}

func NewPaymentService(
	log mylogger.Logger,
	payments ports.IPaymentRepo,
	deliveries ports.IDeliveryRepo,
	dispatcher ports.IDispatcher,
) ports.IPaymentService {
	return &PaymentService{
		mylog:      log,
		payments:   payments,
		deliveries: deliveries,
		dispatcher: dispatcher,
	}
}

func (ps *PaymentService) GetPayment(ctx context.Context, actor model.Principal, id uuid.UUID) (*model.Payment, error) {
	payment, err := ps.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := ps.deliveries.GetByID(ctx, payment.DeliveryID)
	if err != nil {
		return nil, err
	}
	driverID, hasDriver := d.ResolvedDriver()
	if actor.ID != payment.UserID && (!hasDriver || actor.ID != driverID) {
		return nil, myerrors.E(myerrors.KindPermission, "not a party to this payment")
	}
	return payment, nil
}

// ConfirmPayment completes a pending payment. Both methods are confirmed by
// the delivery's resolved driver, who receives the money; EasyPaisa
// additionally requires the wallet transaction id as the receipt.
func (ps *PaymentService) ConfirmPayment(ctx context.Context, actor model.Principal, paymentID uuid.UUID, transactionID string) (*model.Payment, error) {
	log := ps.mylog.Action("ConfirmPayment")

	payment, err := ps.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentPending {
		return nil, myerrors.E(myerrors.KindConflict, "payment is not pending")
	}

	d, err := ps.deliveries.GetByID(ctx, payment.DeliveryID)
	if err != nil {
		return nil, err
	}
	if payment.Amount != d.TotalCost {
		return nil, myerrors.E(myerrors.KindValidation, "payment amount does not match the delivery cost")
	}

	switch payment.Method {
	case model.PaymentCash:
		driverID, ok := d.ResolvedDriver()
		if !ok || actor.ID != driverID {
			return nil, myerrors.E(myerrors.KindPermission, "only the assigned driver can confirm a cash payment")
		}
	case model.PaymentEasyPaisa:
		// The driver's wallet receives the money, so only the driver can
		// attest the transfer landed. Senders cannot settle their own payment
		// with a made-up receipt.
		driverID, ok := d.ResolvedDriver()
		if !ok || actor.ID != driverID {
			return nil, myerrors.E(myerrors.KindPermission, "only the receiving driver can confirm an easypaisa payment")
		}
		if transactionID == "" {
			return nil, myerrors.E(myerrors.KindValidation, "easypaisa confirmation requires a transaction id")
		}
	}

	if err := ps.payments.MarkCompleted(ctx, payment.ID, transactionID); err != nil {
		return nil, err
	}

	if err := ps.deliveries.AppendLog(ctx, model.DeliveryLog{
		ID:         uuid.New(),
		DeliveryID: d.ID,
		Action:     "Payment Completed",
		Comments:   fmt.Sprintf("Payment %s completed via %s", payment.ID, payment.Method),
	}); err != nil {
		log.Error("cannot append delivery log", err)
	}

	payment.Status = model.PaymentCompleted
	payment.TransactionID = transactionID

	events := []model.Event{{
		Kind:       model.EventPaymentCompleted,
		DeliveryID: &d.ID,
		OccurredAt: time.Now(),
		Recipients: []model.Recipient{{
			UserID:  payment.UserID,
			Type:    model.NotifPaymentCompleted,
			Message: fmt.Sprintf("Payment of %.2f completed for delivery %s.", payment.Amount, d.ID),
		}},
	}}
	// Acceptance-adjacent nudge: the driver learns the delivery is paid for
	// and good to go.
	if driverID, ok := d.ResolvedDriver(); ok {
		events = append(events, model.Event{
			Kind:       model.EventPaymentCompleted,
			DeliveryID: &d.ID,
			OccurredAt: time.Now(),
			Recipients: []model.Recipient{{
				UserID:  driverID,
				Type:    model.NotifDeliveryAccepted,
				Message: fmt.Sprintf("Delivery %s is paid and ready for pickup.", d.ID),
			}},
		})
	}
	ps.dispatcher.Dispatch(ctx, events)

	log.Info("payment completed", "payment-id", payment.ID, "delivery-id", d.ID, "method", payment.Method)
	return payment, nil
}

// RefundPayment refunds a completed payment, fully or partially. It is
// lifecycle-independent: the delivery's status is left untouched.
func (ps *PaymentService) RefundPayment(ctx context.Context, actor model.Principal, paymentID uuid.UUID, amount float64) (*model.Payment, error) {
	log := ps.mylog.Action("RefundPayment")

	payment, err := ps.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if actor.ID != payment.UserID {
		return nil, myerrors.E(myerrors.KindPermission, "only the payer can request a refund")
	}
	if payment.Status != model.PaymentCompleted {
		return nil, myerrors.E(myerrors.KindConflict, "only completed payments can be refunded")
	}
	if amount <= 0 {
		return nil, myerrors.E(myerrors.KindValidation, "refund amount must be positive")
	}
	if amount > payment.Amount {
		return nil, myerrors.E(myerrors.KindValidation, "refund amount exceeds original payment")
	}

	if err := ps.payments.MarkRefunded(ctx, payment.ID, amount); err != nil {
		return nil, err
	}

	if err := ps.deliveries.AppendLog(ctx, model.DeliveryLog{
		ID:         uuid.New(),
		DeliveryID: payment.DeliveryID,
		Action:     "Payment Refunded",
		Comments:   fmt.Sprintf("Payment %s refunded %.2f of %.2f", payment.ID, amount, payment.Amount),
	}); err != nil {
		log.Error("cannot append delivery log", err)
	}

	payment.Status = model.PaymentRefunded
	payment.RefundStatus = model.RefundProcessed
	payment.RefundAmount = amount

	ps.dispatcher.Dispatch(ctx, []model.Event{{
		Kind:       model.EventPaymentRefunded,
		DeliveryID: &payment.DeliveryID,
		OccurredAt: time.Now(),
		Recipients: []model.Recipient{{
			UserID:  payment.UserID,
			Type:    model.NotifPaymentRefunded,
			Message: fmt.Sprintf("Payment of %.2f refunded (%.2f) for delivery %s.", payment.Amount, amount, payment.DeliveryID),
		}},
	}})

	log.Info("payment refunded", "payment-id", payment.ID, "amount", amount)
	return payment, nil
}

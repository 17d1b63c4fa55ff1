package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/myerrors"
	"dropx/internal/delivery-service/core/ports"
)

type PaymentsRepo struct {
	db *DB
}

func NewPaymentsRepo(db *DB) ports.IPaymentRepo {
	return &PaymentsRepo{
		db: db,
	}
}

func (pr *PaymentsRepo) Create(ctx context.Context, p *model.Payment) error {
	conn := pr.db.conn

	q := `INSERT INTO payments (
			payment_id, delivery_id, user_id, amount, method, status,
			refund_status, driver_easypaisa_phone
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := conn.Exec(ctx, q,
		p.ID, p.DeliveryID, p.UserID, p.Amount, p.Method, p.Status,
		p.RefundStatus, p.DriverEasyPaisaPhone,
	)
	return mapErr(err, "payment not found")
}

const paymentColumns = `
	payment_id, delivery_id, user_id, amount, method, status,
	COALESCE(transaction_id, ''), failure_reason, retry_count,
	refund_status, refund_amount, driver_easypaisa_phone, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID, &p.DeliveryID, &p.UserID, &p.Amount, &p.Method, &p.Status,
		&p.TransactionID, &p.FailureReason, &p.RetryCount,
		&p.RefundStatus, &p.RefundAmount, &p.DriverEasyPaisaPhone, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (pr *PaymentsRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	conn := pr.db.conn

	q := `SELECT` + paymentColumns + ` FROM payments WHERE payment_id = $1`
	p, err := scanPayment(conn.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "payment not found")
	}
	return p, nil
}

func (pr *PaymentsRepo) GetByDelivery(ctx context.Context, deliveryID uuid.UUID) (*model.Payment, error) {
	conn := pr.db.conn

	q := `SELECT` + paymentColumns + ` FROM payments WHERE delivery_id = $1`
	p, err := scanPayment(conn.QueryRow(ctx, q, deliveryID))
	if err != nil {
		return nil, mapErr(err, "payment not found")
	}
	return p, nil
}

func (pr *PaymentsRepo) MarkCompleted(ctx context.Context, id uuid.UUID, transactionID string) error {
	conn := pr.db.conn

	var txn *string
	if transactionID != "" {
		txn = &transactionID
	}
	q := `UPDATE payments
		SET status = 'Completed', transaction_id = $1, updated_at = NOW()
		WHERE payment_id = $2 AND status = 'Pending'`
	tag, err := conn.Exec(ctx, q, txn, id)
	if err != nil {
		var pgErr *pgconn.PgError
		// Unique index on transaction_id: the same receipt cannot settle
		// two payments.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return myerrors.ErrDuplicateTxn
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		// A concurrent confirm won.
		return myerrors.E(myerrors.KindConflict, "payment is not pending")
	}
	return nil
}

func (pr *PaymentsRepo) MarkRefunded(ctx context.Context, id uuid.UUID, amount float64) error {
	conn := pr.db.conn

	q := `UPDATE payments
		SET status = 'Refunded', refund_status = 'Processed', refund_amount = $1, updated_at = NOW()
		WHERE payment_id = $2 AND status = 'Completed'`
	tag, err := conn.Exec(ctx, q, amount, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return myerrors.E(myerrors.KindConflict, "payment is not completed")
	}
	return nil
}

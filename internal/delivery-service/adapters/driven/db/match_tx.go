package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
)

// TxRunner opens the per-post critical section used by matching, accept and
// cancel. The post row is locked with SELECT ... FOR UPDATE so two callers
// racing for the same post serialize on the database.
type TxRunner struct {
	db *DB
}

func NewTxRunner(db *DB) ports.ITxRunner {
	return &TxRunner{
		db: db,
	}
}

func (r *TxRunner) WithPost(ctx context.Context, postID uuid.UUID, fn func(tx ports.IMatchTx) error) error {
	conn := r.db.conn

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // Safe rollback if not committed

	q := `SELECT` + postColumns + postFrom + ` WHERE p.post_id = $1 FOR UPDATE OF p`
	post, err := scanPost(tx.QueryRow(ctx, q, postID))
	if err != nil {
		return mapErr(err, "driver post not found")
	}

	mt := &matchTx{tx: tx, post: post}
	if err := fn(mt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// matchTx is the locked unit of work over one driver post.
type matchTx struct {
	tx   pgx.Tx
	post *model.DriverPost
}

func (m *matchTx) Post() *model.DriverPost {
	return m.post
}

func (m *matchTx) CommittedWeight(ctx context.Context) (float64, error) {
	var weight float64
	if err := m.tx.QueryRow(ctx, committedWeightQuery, m.post.ID).Scan(&weight); err != nil {
		return 0, err
	}
	return weight, nil
}

func (m *matchTx) BindDelivery(ctx context.Context, deliveryID, driverID uuid.UUID, from model.DeliveryStatus, version int) (bool, error) {
	q := `UPDATE deliveries
		SET status = 'Assigned', status_version = status_version + 1,
			driver_id = $1, driver_post_id = $2, updated_at = NOW()
		WHERE delivery_id = $3 AND status = $4 AND status_version = $5`
	tag, err := m.tx.Exec(ctx, q, driverID, m.post.ID, deliveryID, from, version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (m *matchTx) SetDeliveryStatus(ctx context.Context, deliveryID uuid.UUID, from, to model.DeliveryStatus, version int) (bool, error) {
	q := `UPDATE deliveries
		SET status = $1, status_version = status_version + 1, updated_at = NOW()
		WHERE delivery_id = $2 AND status = $3 AND status_version = $4`
	tag, err := m.tx.Exec(ctx, q, to, deliveryID, from, version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (m *matchTx) SetPostStatus(ctx context.Context, status model.PostStatus) error {
	q := `UPDATE driver_posts SET status = $1, updated_at = NOW() WHERE post_id = $2`
	if _, err := m.tx.Exec(ctx, q, status, m.post.ID); err != nil {
		return err
	}
	m.post.Status = status
	return nil
}

func (m *matchTx) IncrementMatchRequests(ctx context.Context) (int, error) {
	q := `UPDATE driver_posts SET match_requests = match_requests + 1, updated_at = NOW()
		WHERE post_id = $1 RETURNING match_requests`
	var count int
	if err := m.tx.QueryRow(ctx, q, m.post.ID).Scan(&count); err != nil {
		return 0, err
	}
	m.post.MatchRequests = count
	return count, nil
}

func (m *matchTx) AppendDeliveryLog(ctx context.Context, log model.DeliveryLog) error {
	q := `INSERT INTO delivery_logs (log_id, delivery_id, action, comments) VALUES ($1, $2, $3, $4)`
	_, err := m.tx.Exec(ctx, q, log.ID, log.DeliveryID, log.Action, log.Comments)
	return err
}

func (m *matchTx) AppendPostLog(ctx context.Context, log model.PostLog) error {
	q := `INSERT INTO post_logs (log_id, post_id, action, comments) VALUES ($1, $2, $3, $4)`
	_, err := m.tx.Exec(ctx, q, log.ID, log.PostID, log.Action, log.Comments)
	return err
}

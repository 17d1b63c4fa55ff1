package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
)

type DeliveriesRepo struct {
	db *DB
}

func NewDeliveriesRepo(db *DB) ports.IDeliveryRepo {
	return &DeliveriesRepo{
		db: db,
	}
}

// Create persists the delivery, its packages and its route in one
// transaction, mirroring the all-or-nothing rule for every state write.
func (dr *DeliveriesRepo) Create(ctx context.Context, d *model.Delivery, route *model.Route) error {
	conn := dr.db.conn
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // Safe rollback if not committed

	pickup, err := json.Marshal(d.Pickup)
	if err != nil {
		return err
	}
	dropoff, err := json.Marshal(d.Dropoff)
	if err != nil {
		return err
	}

	q := `INSERT INTO deliveries (
			delivery_id, sender_id, receiver_id, driver_id, driver_post_id,
			pickup_address, dropoff_address, delivery_date, total_cost, status, status_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0)`
	_, err = tx.Exec(ctx, q,
		d.ID,
		d.SenderID,
		d.ReceiverID,
		d.DriverID,
		d.DriverPostID,
		pickup,
		dropoff,
		d.DeliveryDate,
		d.TotalCost,
		d.Status,
	)
	if err != nil {
		return mapErr(err, "delivery not found")
	}

	for _, p := range d.Packages {
		q := `INSERT INTO packages (package_id, delivery_id, description, weight, dimensions, is_fragile)
			VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.Exec(ctx, q, p.ID, p.DeliveryID, p.Description, p.Weight, p.Dimensions, p.IsFragile); err != nil {
			return err
		}
	}

	if route != nil {
		q := `INSERT INTO routes (route_id, delivery_id, distance_km, path) VALUES ($1, $2, $3, $4)`
		if _, err := tx.Exec(ctx, q, route.ID, route.DeliveryID, route.DistanceKm, route.Path); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const deliveryColumns = `
	d.delivery_id, d.sender_id, d.receiver_id, d.driver_id, d.driver_post_id, p.user_id,
	d.pickup_address, d.dropoff_address, d.delivery_date, d.total_cost,
	d.status, d.status_version, d.review_eligible, d.created_at, d.updated_at`

const deliveryFrom = `
	FROM deliveries d
	LEFT JOIN driver_posts p ON p.post_id = d.driver_post_id`

func scanDelivery(row pgx.Row) (*model.Delivery, error) {
	var d model.Delivery
	var pickup, dropoff []byte
	err := row.Scan(
		&d.ID, &d.SenderID, &d.ReceiverID, &d.DriverID, &d.DriverPostID, &d.PostOwnerID,
		&pickup, &dropoff, &d.DeliveryDate, &d.TotalCost,
		&d.Status, &d.StatusVersion, &d.ReviewEligible, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pickup, &d.Pickup); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dropoff, &d.Dropoff); err != nil {
		return nil, err
	}
	return &d, nil
}

func (dr *DeliveriesRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	conn := dr.db.conn

	q := `SELECT` + deliveryColumns + deliveryFrom + ` WHERE d.delivery_id = $1`
	d, err := scanDelivery(conn.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "delivery not found")
	}

	if err := dr.loadPackages(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (dr *DeliveriesRepo) loadPackages(ctx context.Context, d *model.Delivery) error {
	conn := dr.db.conn

	q := `SELECT package_id, delivery_id, description, weight, dimensions, is_fragile, created_at
		FROM packages WHERE delivery_id = $1`
	rows, err := conn.Query(ctx, q, d.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Package
		if err := rows.Scan(&p.ID, &p.DeliveryID, &p.Description, &p.Weight, &p.Dimensions, &p.IsFragile, &p.CreatedAt); err != nil {
			return err
		}
		d.Packages = append(d.Packages, p)
	}
	return rows.Err()
}

func (dr *DeliveriesRepo) ListBySender(ctx context.Context, senderID uuid.UUID) ([]model.Delivery, error) {
	q := `SELECT` + deliveryColumns + deliveryFrom + ` WHERE d.sender_id = $1 ORDER BY d.created_at DESC`
	return dr.list(ctx, q, senderID)
}

func (dr *DeliveriesRepo) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]model.Delivery, error) {
	q := `SELECT` + deliveryColumns + deliveryFrom + ` WHERE d.driver_id = $1 OR p.user_id = $1 ORDER BY d.created_at DESC`
	return dr.list(ctx, q, driverID)
}

func (dr *DeliveriesRepo) list(ctx context.Context, q string, arg any) ([]model.Delivery, error) {
	conn := dr.db.conn

	rows, err := conn.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []model.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, *d)
	}
	return deliveries, rows.Err()
}

func (dr *DeliveriesRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.DeliveryStatus, version int) (bool, error) {
	conn := dr.db.conn

	q := `UPDATE deliveries
		SET status = $1, status_version = status_version + 1, updated_at = NOW()
		WHERE delivery_id = $2 AND status = $3 AND status_version = $4`
	tag, err := conn.Exec(ctx, q, to, id, from, version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (dr *DeliveriesRepo) Assign(ctx context.Context, id, driverID uuid.UUID, from model.DeliveryStatus, version int) (bool, error) {
	conn := dr.db.conn

	q := `UPDATE deliveries
		SET status = 'Assigned', status_version = status_version + 1, driver_id = $1, updated_at = NOW()
		WHERE delivery_id = $2 AND status = $3 AND status_version = $4`
	tag, err := conn.Exec(ctx, q, driverID, id, from, version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (dr *DeliveriesRepo) SetReviewEligible(ctx context.Context, id uuid.UUID) error {
	conn := dr.db.conn

	q := `UPDATE deliveries SET review_eligible = TRUE, updated_at = NOW() WHERE delivery_id = $1`
	_, err := conn.Exec(ctx, q, id)
	return err
}

func (dr *DeliveriesRepo) AppendLog(ctx context.Context, log model.DeliveryLog) error {
	conn := dr.db.conn

	q := `INSERT INTO delivery_logs (log_id, delivery_id, action, comments) VALUES ($1, $2, $3, $4)`
	_, err := conn.Exec(ctx, q, log.ID, log.DeliveryID, log.Action, log.Comments)
	return err
}

func (dr *DeliveriesRepo) Logs(ctx context.Context, deliveryID uuid.UUID) ([]model.DeliveryLog, error) {
	conn := dr.db.conn

	q := `SELECT log_id, delivery_id, action, comments, timestamp FROM delivery_logs WHERE delivery_id = $1 ORDER BY timestamp`
	rows, err := conn.Query(ctx, q, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.DeliveryLog
	for rows.Next() {
		var l model.DeliveryLog
		if err := rows.Scan(&l.ID, &l.DeliveryID, &l.Action, &l.Comments, &l.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

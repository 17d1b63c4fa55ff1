package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
)

type PostsRepo struct {
	db *DB
}

func NewPostsRepo(db *DB) ports.IPostRepo {
	return &PostsRepo{
		db: db,
	}
}

const postColumns = `
	p.post_id, p.user_id, p.vehicle_id,
	sc.city_id, sc.name, sc.state, sc.country, sc.latitude, sc.longitude, sc.created_at,
	ec.city_id, ec.name, ec.state, ec.country, ec.latitude, ec.longitude, ec.created_at,
	p.departure_date, p.departure_time, p.max_weight, p.status, p.match_requests,
	p.created_at, p.updated_at`

const postFrom = `
	FROM driver_posts p
	JOIN cities sc ON sc.city_id = p.start_city_id
	JOIN cities ec ON ec.city_id = p.end_city_id`

// committedWeightQuery sums package weights of deliveries holding capacity
// on a post. Shared by the display path and the locked match transaction.
const committedWeightQuery = `
	SELECT COALESCE(SUM(pk.weight), 0)
	FROM deliveries d
	JOIN packages pk ON pk.delivery_id = d.delivery_id
	WHERE d.driver_post_id = $1 AND d.status IN ('Assigned', 'InTransit')`

func scanPost(row pgx.Row) (*model.DriverPost, error) {
	var p model.DriverPost
	err := row.Scan(
		&p.ID, &p.UserID, &p.VehicleID,
		&p.StartCity.ID, &p.StartCity.Name, &p.StartCity.State, &p.StartCity.Country,
		&p.StartCity.Latitude, &p.StartCity.Longitude, &p.StartCity.CreatedAt,
		&p.EndCity.ID, &p.EndCity.Name, &p.EndCity.State, &p.EndCity.Country,
		&p.EndCity.Latitude, &p.EndCity.Longitude, &p.EndCity.CreatedAt,
		&p.DepartureDate, &p.DepartureTime, &p.MaxWeight, &p.Status, &p.MatchRequests,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (pr *PostsRepo) Create(ctx context.Context, post *model.DriverPost) error {
	conn := pr.db.conn

	q := `INSERT INTO driver_posts (
			post_id, user_id, vehicle_id, start_city_id, end_city_id,
			departure_date, departure_time, max_weight, status, match_requests
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)`

	_, err := conn.Exec(ctx, q,
		post.ID,
		post.UserID,
		post.VehicleID,
		post.StartCity.ID,
		post.EndCity.ID,
		post.DepartureDate,
		post.DepartureTime,
		post.MaxWeight,
		post.Status,
	)
	return mapErr(err, "driver post not found")
}

func (pr *PostsRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.DriverPost, error) {
	conn := pr.db.conn

	q := `SELECT` + postColumns + postFrom + ` WHERE p.post_id = $1`
	post, err := scanPost(conn.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err, "driver post not found")
	}
	return post, nil
}

func (pr *PostsRepo) ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.DriverPost, error) {
	conn := pr.db.conn

	q := `SELECT` + postColumns + postFrom + ` WHERE p.user_id = $1 ORDER BY p.created_at DESC`
	rows, err := conn.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

func (pr *PostsRepo) ListOpen(ctx context.Context, startCity, endCity string) ([]model.DriverPost, error) {
	conn := pr.db.conn

	q := `SELECT` + postColumns + postFrom + `
		WHERE p.status IN ('Active', 'Booked')
			AND ($1 = '' OR lower(sc.name) = lower($1))
			AND ($2 = '' OR lower(ec.name) = lower($2))
		ORDER BY p.departure_date`
	rows, err := conn.Query(ctx, q, startCity, endCity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

func collectPosts(rows pgx.Rows) ([]model.DriverPost, error) {
	var posts []model.DriverPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func (pr *PostsRepo) Update(ctx context.Context, post *model.DriverPost) error {
	conn := pr.db.conn

	q := `UPDATE driver_posts
		SET departure_date = $1,
			departure_time = $2,
			max_weight = $3,
			status = $4,
			updated_at = NOW()
		WHERE post_id = $5`
	_, err := conn.Exec(ctx, q, post.DepartureDate, post.DepartureTime, post.MaxWeight, post.Status, post.ID)
	return mapErr(err, "driver post not found")
}

// CommittedWeight is the lock-free display-path sum; the authoritative
// accept-time sum runs inside the match transaction.
func (pr *PostsRepo) CommittedWeight(ctx context.Context, postID uuid.UUID) (float64, error) {
	conn := pr.db.conn

	row := conn.QueryRow(ctx, committedWeightQuery, postID)
	var weight float64
	if err := row.Scan(&weight); err != nil {
		return 0, err
	}
	return weight, nil
}

func (pr *PostsRepo) ExpireDeparted(ctx context.Context, now time.Time) (int64, error) {
	conn := pr.db.conn

	q := `UPDATE driver_posts
		SET status = 'Expired', updated_at = NOW()
		WHERE status = 'Active' AND departure_date < $1::date`
	tag, err := conn.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (pr *PostsRepo) AppendLog(ctx context.Context, log model.PostLog) error {
	conn := pr.db.conn

	q := `INSERT INTO post_logs (log_id, post_id, action, comments) VALUES ($1, $2, $3, $4)`
	_, err := conn.Exec(ctx, q, log.ID, log.PostID, log.Action, log.Comments)
	return err
}

func (pr *PostsRepo) Logs(ctx context.Context, postID uuid.UUID) ([]model.PostLog, error) {
	conn := pr.db.conn

	q := `SELECT log_id, post_id, action, comments, timestamp FROM post_logs WHERE post_id = $1 ORDER BY timestamp`
	rows, err := conn.Query(ctx, q, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.PostLog
	for rows.Next() {
		var l model.PostLog
		if err := rows.Scan(&l.ID, &l.PostID, &l.Action, &l.Comments, &l.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

package db

import (
	"context"

	"github.com/google/uuid"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
)

type CitiesRepo struct {
	db *DB
}

func NewCitiesRepo(db *DB) ports.ICityRepo {
	return &CitiesRepo{
		db: db,
	}
}

// GetOrCreate is idempotent on (name, state, country): the insert no-ops on
// conflict and the row that survives is returned. Coordinates are only
// backfilled when the stored row has none.
func (cr *CitiesRepo) GetOrCreate(ctx context.Context, city model.City) (model.City, error) {
	conn := cr.db.conn

	q := `INSERT INTO cities (city_id, name, state, country, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name, state, country) DO UPDATE
		SET latitude = COALESCE(cities.latitude, EXCLUDED.latitude),
			longitude = COALESCE(cities.longitude, EXCLUDED.longitude)
		RETURNING city_id, name, state, country, latitude, longitude, created_at`

	id := city.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var out model.City
	row := conn.QueryRow(ctx, q, id, city.Name, city.State, city.Country, city.Latitude, city.Longitude)
	if err := row.Scan(&out.ID, &out.Name, &out.State, &out.Country, &out.Latitude, &out.Longitude, &out.CreatedAt); err != nil {
		return model.City{}, mapErr(err, "city not found")
	}
	return out, nil
}

func (cr *CitiesRepo) GetByID(ctx context.Context, id uuid.UUID) (model.City, error) {
	conn := cr.db.conn

	q := `SELECT city_id, name, state, country, latitude, longitude, created_at FROM cities WHERE city_id = $1`

	var out model.City
	row := conn.QueryRow(ctx, q, id)
	if err := row.Scan(&out.ID, &out.Name, &out.State, &out.Country, &out.Latitude, &out.Longitude, &out.CreatedAt); err != nil {
		return model.City{}, mapErr(err, "city not found")
	}
	return out, nil
}

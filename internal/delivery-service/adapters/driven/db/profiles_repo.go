package db

import (
	"context"

	"github.com/google/uuid"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
)

type ProfilesRepo struct {
	db *DB
}

func NewProfilesRepo(db *DB) ports.IProfileRepo {
	return &ProfilesRepo{
		db: db,
	}
}

func (pr *ProfilesRepo) DriverProfile(ctx context.Context, userID uuid.UUID) (model.DriverProfile, error) {
	conn := pr.db.conn

	q := `SELECT
			dp.user_id, dp.is_driver_verified, COALESCE(dp.easypaisa_phone, ''),
			EXISTS (SELECT 1 FROM vehicles v WHERE v.user_id = dp.user_id AND v.is_approved)
		FROM driver_profiles dp WHERE dp.user_id = $1`
	var profile model.DriverProfile
	err := conn.QueryRow(ctx, q, userID).Scan(
		&profile.UserID, &profile.IsDriverVerified, &profile.EasyPaisaPhone, &profile.HasApprovedVehicle,
	)
	if err != nil {
		return model.DriverProfile{}, mapErr(err, "driver profile not found")
	}
	return profile, nil
}

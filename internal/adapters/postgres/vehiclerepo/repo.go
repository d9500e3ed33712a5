package vehiclerepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/jdspiral/csr-amp/internal/adapters/postgres"
	"github.com/jdspiral/csr-amp/internal/domain"
	"github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

// Repo is a Postgres implementation of vehiclerepo.Repository. Plate
// uniqueness is backed by the vehicles_plate_unique index.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, v vehiclerepo.Vehicle) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(v.ID))
	if err != nil {
		return fmt.Errorf("invalid vehicle id: %w", err)
	}
	userID, err := uuid.Parse(string(v.UserID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO vehicles (id, user_id, license_plate, make, model, year, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		id,
		userID,
		v.LicensePlate,
		v.Make,
		v.Model,
		v.Year,
		v.CreatedAt.UTC(),
		v.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			if pe.ConstraintName == "vehicles_plate_unique" {
				return vehiclerepo.ErrPlateTaken
			}
			return vehiclerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, v vehiclerepo.Vehicle) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(v.ID))
	if err != nil {
		return vehiclerepo.ErrNotFound
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE vehicles
		SET license_plate = $2,
		    make = $3,
		    model = $4,
		    year = $5,
		    updated_at = $6
		WHERE id = $1
	`,
		id,
		v.LicensePlate,
		v.Make,
		v.Model,
		v.Year,
		v.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return vehiclerepo.ErrPlateTaken
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return vehiclerepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (vehiclerepo.Vehicle, error) {
	if r.pool == nil {
		return vehiclerepo.Vehicle{}, errors.New("nil postgres pool")
	}
	vid, err := uuid.Parse(string(id))
	if err != nil {
		return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, license_plate, make, model, year, created_at, updated_at
		FROM vehicles
		WHERE id = $1
	`, vid)
	return scanVehicle(row)
}

func (r *Repo) GetByPlate(ctx context.Context, plate string) (vehiclerepo.Vehicle, error) {
	if r.pool == nil {
		return vehiclerepo.Vehicle{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, license_plate, make, model, year, created_at, updated_at
		FROM vehicles
		WHERE license_plate = $1
	`, plate)
	return scanVehicle(row)
}

func (r *Repo) ListByUser(ctx context.Context, userID domain.UserID) ([]vehiclerepo.Vehicle, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(userID))
	if err != nil {
		return []vehiclerepo.Vehicle{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, license_plate, make, model, year, created_at, updated_at
		FROM vehicles
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]vehiclerepo.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.VehicleID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	vid, err := uuid.Parse(string(id))
	if err != nil {
		return vehiclerepo.ErrNotFound
	}

	ct, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, vid)
	if err != nil {
		// The subscriptions foreign key catches a delete racing the caller's
		// referential guard.
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
			return vehiclerepo.ErrInUse
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return vehiclerepo.ErrNotFound
	}
	return nil
}

func scanVehicle(row interface {
	Scan(dest ...any) error
}) (vehiclerepo.Vehicle, error) {
	var (
		id        uuid.UUID
		userID    uuid.UUID
		plate     string
		mk        string
		model     string
		year      int
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &userID, &plate, &mk, &model, &year, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
		}
		return vehiclerepo.Vehicle{}, err
	}
	return vehiclerepo.Vehicle{
		ID:           domain.VehicleID(id.String()),
		UserID:       domain.UserID(userID.String()),
		LicensePlate: plate,
		Make:         mk,
		Model:        model,
		Year:         year,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    updatedAt.UTC(),
	}, nil
}

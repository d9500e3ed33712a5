package subscriptionrepo

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
	"github.com/jdspiral/csr-amp/internal/ports/out/subscriptionrepo"
)

// Repo is a Postgres implementation of subscriptionrepo.Repository.
//
// The at-most-one-active-subscription-per-vehicle invariant is enforced twice:
// each guarded write carries a NOT EXISTS predicate, and the partial unique
// index subscriptions_one_active_per_vehicle catches any two active writers
// that race past the predicate under READ COMMITTED.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, s subscriptionrepo.Subscription) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(s.ID))
	if err != nil {
		return fmt.Errorf("invalid subscription id: %w", err)
	}
	userID, err := uuid.Parse(string(s.UserID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	vehicleID, err := uuid.Parse(string(s.VehicleID))
	if err != nil {
		return fmt.Errorf("invalid vehicle id: %w", err)
	}

	ct, err := r.pool.Exec(ctx, `
		INSERT INTO subscriptions (id, user_id, vehicle_id, plan, status, start_date, end_date, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE vehicle_id = $3 AND status = 'active'
		)
	`,
		id,
		userID,
		vehicleID,
		s.Plan,
		string(s.Status),
		s.StartDate.UTC(),
		nullableTime(s.EndDate),
		s.CreatedAt.UTC(),
		s.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			if pe.ConstraintName == "subscriptions_one_active_per_vehicle" {
				return subscriptionrepo.ErrVehicleBusy
			}
			return subscriptionrepo.ErrAlreadyExists
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return subscriptionrepo.ErrVehicleBusy
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, s subscriptionrepo.Subscription) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(s.ID))
	if err != nil {
		return subscriptionrepo.ErrNotFound
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET plan = $2,
		    status = $3,
		    start_date = $4,
		    end_date = $5,
		    updated_at = $6
		WHERE id = $1
		  AND ($3 <> 'active' OR NOT EXISTS (
			SELECT 1 FROM subscriptions s2
			WHERE s2.vehicle_id = subscriptions.vehicle_id
			  AND s2.status = 'active'
			  AND s2.id <> $1
		  ))
	`,
		id,
		s.Plan,
		string(s.Status),
		s.StartDate.UTC(),
		nullableTime(s.EndDate),
		s.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return subscriptionrepo.ErrVehicleBusy
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		// Guarded update wrote nothing: either the row is gone or the
		// invariant predicate failed.
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
		return subscriptionrepo.ErrVehicleBusy
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.SubscriptionID) (subscriptionrepo.Subscription, error) {
	if r.pool == nil {
		return subscriptionrepo.Subscription{}, errors.New("nil postgres pool")
	}
	sid, err := uuid.Parse(string(id))
	if err != nil {
		return subscriptionrepo.Subscription{}, subscriptionrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, vehicle_id, plan, status, start_date, end_date, created_at, updated_at
		FROM subscriptions
		WHERE id = $1
	`, sid)
	return scanSubscription(row)
}

func (r *Repo) ListByUser(ctx context.Context, userID domain.UserID) ([]subscriptionrepo.Subscription, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(userID))
	if err != nil {
		return []subscriptionrepo.Subscription{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, vehicle_id, plan, status, start_date, end_date, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC
	`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]subscriptionrepo.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) CountByVehicle(ctx context.Context, vehicleID domain.VehicleID) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	vid, err := uuid.Parse(string(vehicleID))
	if err != nil {
		return 0, nil
	}

	var n int
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM subscriptions WHERE vehicle_id = $1
	`, vid).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repo) TransferVehicle(ctx context.Context, id domain.SubscriptionID, from, to domain.VehicleID, updatedAt time.Time) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	sid, err := uuid.Parse(string(id))
	if err != nil {
		return subscriptionrepo.ErrNotFound
	}
	fromID, err := uuid.Parse(string(from))
	if err != nil {
		return subscriptionrepo.ErrVehicleChanged
	}
	toID, err := uuid.Parse(string(to))
	if err != nil {
		return subscriptionrepo.ErrVehicleChanged
	}

	// Compare-and-swap: the write only lands if the subscription still points
	// at `from` and `to` carries no active subscription.
	ct, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET vehicle_id = $3,
		    updated_at = $4
		WHERE id = $1
		  AND vehicle_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM subscriptions s2
			WHERE s2.vehicle_id = $3
			  AND s2.status = 'active'
			  AND s2.id <> $1
		  )
	`, sid, fromID, toID, updatedAt.UTC())
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return subscriptionrepo.ErrVehicleBusy
		}
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	// Nothing written: work out which guard failed.
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur.VehicleID != from {
		return subscriptionrepo.ErrVehicleChanged
	}
	return subscriptionrepo.ErrVehicleBusy
}

func (r *Repo) Delete(ctx context.Context, id domain.SubscriptionID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	sid, err := uuid.Parse(string(id))
	if err != nil {
		return subscriptionrepo.ErrNotFound
	}

	ct, err := r.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, sid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return subscriptionrepo.ErrNotFound
	}
	return nil
}

func nullableTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func scanSubscription(row interface {
	Scan(dest ...any) error
}) (subscriptionrepo.Subscription, error) {
	var (
		id        uuid.UUID
		userID    uuid.UUID
		vehicleID uuid.UUID
		plan      string
		status    string
		startDate time.Time
		endDate   *time.Time
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &userID, &vehicleID, &plan, &status, &startDate, &endDate, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return subscriptionrepo.Subscription{}, subscriptionrepo.ErrNotFound
		}
		return subscriptionrepo.Subscription{}, err
	}
	out := subscriptionrepo.Subscription{
		ID:        domain.SubscriptionID(id.String()),
		UserID:    domain.UserID(userID.String()),
		VehicleID: domain.VehicleID(vehicleID.String()),
		Plan:      plan,
		Status:    domain.SubscriptionStatus(status),
		StartDate: startDate.UTC(),
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}
	if endDate != nil {
		v := endDate.UTC()
		out.EndDate = &v
	}
	return out, nil
}

package purchaserepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/jdspiral/csr-amp/internal/adapters/postgres"
	"github.com/jdspiral/csr-amp/internal/domain"
	"github.com/jdspiral/csr-amp/internal/ports/out/purchaserepo"
)

// Repo is a Postgres implementation of purchaserepo.Repository.
// The subscription_id and vehicle_id columns have no foreign keys on purpose:
// rows are point-in-time facts that must survive reference removal.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, p purchaserepo.Purchase) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid purchase id: %w", err)
	}
	userID, err := uuid.Parse(string(p.UserID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	var subID, vehicleID *uuid.UUID
	if p.SubscriptionID != nil {
		v, err := uuid.Parse(string(*p.SubscriptionID))
		if err != nil {
			return fmt.Errorf("invalid subscription id: %w", err)
		}
		subID = &v
	}
	if p.VehicleID != nil {
		v, err := uuid.Parse(string(*p.VehicleID))
		if err != nil {
			return fmt.Errorf("invalid vehicle id: %w", err)
		}
		vehicleID = &v
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO purchase_history (id, user_id, purchase_date, amount, description, plan, subscription_id, vehicle_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		id,
		userID,
		p.PurchaseDate.UTC(),
		p.Amount,
		p.Description,
		p.Plan,
		subID,
		vehicleID,
		p.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return purchaserepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) ListByUser(ctx context.Context, userID domain.UserID) ([]purchaserepo.Purchase, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(userID))
	if err != nil {
		return []purchaserepo.Purchase{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, purchase_date, amount, description, plan, subscription_id, vehicle_id, created_at
		FROM purchase_history
		WHERE user_id = $1
		ORDER BY purchase_date DESC, id ASC
	`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]purchaserepo.Purchase, 0)
	for rows.Next() {
		var (
			id           uuid.UUID
			uID          uuid.UUID
			purchaseDate time.Time
			amount       float64
			description  string
			plan         *string
			subID        *uuid.UUID
			vehicleID    *uuid.UUID
			createdAt    time.Time
		)
		if err := rows.Scan(&id, &uID, &purchaseDate, &amount, &description, &plan, &subID, &vehicleID, &createdAt); err != nil {
			return nil, err
		}
		p := purchaserepo.Purchase{
			ID:           domain.PurchaseID(id.String()),
			UserID:       domain.UserID(uID.String()),
			PurchaseDate: purchaseDate.UTC(),
			Amount:       amount,
			Description:  description,
			Plan:         plan,
			CreatedAt:    createdAt.UTC(),
		}
		if subID != nil {
			v := domain.SubscriptionID(subID.String())
			p.SubscriptionID = &v
		}
		if vehicleID != nil {
			v := domain.VehicleID(vehicleID.String())
			p.VehicleID = &v
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

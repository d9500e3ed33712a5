package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jdspiral/csr-amp/internal/domain"
	clockport "github.com/jdspiral/csr-amp/internal/ports/out/clock"
	"github.com/jdspiral/csr-amp/internal/ports/out/purchaserepo"
	"github.com/jdspiral/csr-amp/internal/ports/out/subscriptionrepo"
	"github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
	"github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

// Service is the append-only purchase history ledger. It records billable
// events and serves the read-side join against the current subscription and
// vehicle state. It never updates or deletes a stored row.
type Service struct {
	purchases purchaserepo.Repository
	users     userrepo.Repository
	subs      subscriptionrepo.Repository
	vehicles  vehiclerepo.Repository
	clk       clockport.Clock

	newPurchaseID func() domain.PurchaseID
}

func NewService(purchases purchaserepo.Repository, users userrepo.Repository, subs subscriptionrepo.Repository, vehicles vehiclerepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		purchases: purchases,
		users:     users,
		subs:      subs,
		vehicles:  vehicles,
		clk:       clk,
		newPurchaseID: func() domain.PurchaseID {
			return domain.PurchaseID(uuid.NewString())
		},
	}
}

// SetNewPurchaseIDForTest overrides purchase ID generation in tests.
func (s *Service) SetNewPurchaseIDForTest(fn func() domain.PurchaseID) { s.newPurchaseID = fn }

// Record appends one purchase. The optional subscription/vehicle references
// are verified to exist at record time and then stored as point-in-time
// facts; a later transfer or removal does not rewrite them.
func (s *Service) Record(ctx context.Context, in RecordInput) (domain.PurchaseHistory, error) {
	userID := domain.UserID(strings.TrimSpace(in.UserID))
	if userID == "" {
		return domain.PurchaseHistory{}, validationError("user_id", "must be non-empty")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.PurchaseHistory{}, &Error{
				Status:  404,
				Code:    "USER_NOT_FOUND",
				Message: "no user exists with the provided id",
			}
		}
		return domain.PurchaseHistory{}, err
	}

	purchaseDate, err := parseDate(in.PurchaseDate)
	if err != nil {
		return domain.PurchaseHistory{}, validationError("purchase_date", "must be a valid calendar date")
	}
	if in.Amount < 0 {
		return domain.PurchaseHistory{}, validationError("amount", "must be non-negative")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return domain.PurchaseHistory{}, validationError("description", "must be non-empty")
	}

	p := purchaserepo.Purchase{
		ID:           s.newPurchaseID(),
		UserID:       userID,
		PurchaseDate: purchaseDate,
		Amount:       in.Amount,
		Description:  description,
		CreatedAt:    s.clk.Now(),
	}
	if in.Plan != nil {
		plan := strings.TrimSpace(*in.Plan)
		if plan != "" {
			p.Plan = &plan
		}
	}
	if in.SubscriptionID != nil && strings.TrimSpace(*in.SubscriptionID) != "" {
		subID := domain.SubscriptionID(strings.TrimSpace(*in.SubscriptionID))
		if _, err := s.subs.GetByID(ctx, subID); err != nil {
			if errors.Is(err, subscriptionrepo.ErrNotFound) {
				return domain.PurchaseHistory{}, &Error{
					Status:  404,
					Code:    "SUBSCRIPTION_NOT_FOUND",
					Message: "no subscription exists with the provided id",
				}
			}
			return domain.PurchaseHistory{}, err
		}
		p.SubscriptionID = &subID
	}
	if in.VehicleID != nil && strings.TrimSpace(*in.VehicleID) != "" {
		vehicleID := domain.VehicleID(strings.TrimSpace(*in.VehicleID))
		if _, err := s.vehicles.GetByID(ctx, vehicleID); err != nil {
			if errors.Is(err, vehiclerepo.ErrNotFound) {
				return domain.PurchaseHistory{}, &Error{
					Status:  404,
					Code:    "VEHICLE_NOT_FOUND",
					Message: "no vehicle exists with the provided id",
				}
			}
			return domain.PurchaseHistory{}, err
		}
		p.VehicleID = &vehicleID
	}

	if err := s.purchases.Create(ctx, p); err != nil {
		return domain.PurchaseHistory{}, err
	}
	return toDomain(p), nil
}

// ListForUser returns the user's purchases ordered by purchase date
// descending, each enriched at read time with the referenced subscription
// (id/plan/status) and vehicle (id/make/model/plate) as they exist now.
//
// This is a presentation join over live state, not a mutation of the stored
// fact: a purchase made under "Basic" whose subscription later moved to
// "Premium" is shown with "Premium". Whether that is the desired display
// semantics is an open product question; the stored row is unaffected either
// way.
func (s *Service) ListForUser(ctx context.Context, userID domain.UserID) ([]Entry, error) {
	ps, err := s.purchases.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(ps))
	for _, p := range ps {
		e := Entry{PurchaseHistory: toDomain(p)}

		if p.SubscriptionID != nil {
			sub, err := s.subs.GetByID(ctx, *p.SubscriptionID)
			switch {
			case err == nil:
				e.Subscription = &SubscriptionRef{ID: sub.ID, Plan: sub.Plan, Status: sub.Status}
			case errors.Is(err, subscriptionrepo.ErrNotFound):
				// Reference dangles after a hard delete; show the bare fact.
			default:
				return nil, err
			}
		}
		if p.VehicleID != nil {
			v, err := s.vehicles.GetByID(ctx, *p.VehicleID)
			switch {
			case err == nil:
				e.Vehicle = &VehicleRef{ID: v.ID, Make: v.Make, Model: v.Model, LicensePlate: v.LicensePlate}
			case errors.Is(err, vehiclerepo.ErrNotFound):
				// Same tolerance as above.
			default:
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func validationError(field, problem string) *Error {
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: "invalid " + field,
		Details: map[string]any{field: problem},
	}
}

func toDomain(p purchaserepo.Purchase) domain.PurchaseHistory {
	out := domain.PurchaseHistory{
		ID:           p.ID,
		UserID:       p.UserID,
		PurchaseDate: p.PurchaseDate,
		Amount:       p.Amount,
		Description:  p.Description,
		CreatedAt:    p.CreatedAt,
	}
	if p.Plan != nil {
		v := *p.Plan
		out.Plan = &v
	}
	if p.SubscriptionID != nil {
		v := *p.SubscriptionID
		out.SubscriptionID = &v
	}
	if p.VehicleID != nil {
		v := *p.VehicleID
		out.VehicleID = &v
	}
	return out
}

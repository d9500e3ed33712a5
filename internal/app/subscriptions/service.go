package subscriptions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jdspiral/csr-amp/internal/domain"
	clockport "github.com/jdspiral/csr-amp/internal/ports/out/clock"
	"github.com/jdspiral/csr-amp/internal/ports/out/subscriptionrepo"
	"github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

// Service owns the subscription lifecycle: create, transfer, status/plan
// updates, hard delete and the joined per-user listing. It validates every
// transition against the vehicle registry but never mutates vehicles.
type Service struct {
	subs     subscriptionrepo.Repository
	vehicles vehiclerepo.Repository
	clk      clockport.Clock

	newSubscriptionID func() domain.SubscriptionID
}

func NewService(subs subscriptionrepo.Repository, vehicles vehiclerepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		subs:     subs,
		vehicles: vehicles,
		clk:      clk,
		newSubscriptionID: func() domain.SubscriptionID {
			return domain.SubscriptionID(uuid.NewString())
		},
	}
}

// SetNewSubscriptionIDForTest overrides subscription ID generation in tests.
func (s *Service) SetNewSubscriptionIDForTest(fn func() domain.SubscriptionID) {
	s.newSubscriptionID = fn
}

// Create signs a user's vehicle up for a plan. The vehicle must exist and
// belong to the user; a vehicle already carrying an active subscription is a
// conflict regardless of the new subscription's status.
func (s *Service) Create(ctx context.Context, in CreateInput) (WithVehicle, error) {
	userID := domain.UserID(strings.TrimSpace(in.UserID))
	vehicleID := domain.VehicleID(strings.TrimSpace(in.VehicleID))
	if userID == "" {
		return WithVehicle{}, validationError("user_id", "must be non-empty")
	}
	if vehicleID == "" {
		return WithVehicle{}, validationError("vehicle_id", "must be non-empty")
	}

	plan := strings.TrimSpace(in.Plan)
	if plan == "" {
		return WithVehicle{}, validationError("plan", "must be non-empty")
	}
	startDate, err := parseDate(in.StartDate)
	if err != nil {
		return WithVehicle{}, validationError("start_date", "must be a valid calendar date")
	}
	status := domain.SubscriptionStatus(strings.TrimSpace(in.Status))
	if !domain.ValidSubscriptionStatus(status) {
		return WithVehicle{}, validationError("status", `must be one of "active", "paused", "canceled", "overdue"`)
	}

	v, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return WithVehicle{}, vehicleNotFoundError()
		}
		return WithVehicle{}, err
	}
	if v.UserID != userID {
		return WithVehicle{}, validationError("vehicle_id", "vehicle does not belong to the user")
	}

	now := s.clk.Now()
	rec := subscriptionrepo.Subscription{
		ID:        s.newSubscriptionID(),
		UserID:    userID,
		VehicleID: vehicleID,
		Plan:      plan,
		Status:    status,
		StartDate: startDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.subs.Create(ctx, rec); err != nil {
		if errors.Is(err, subscriptionrepo.ErrVehicleBusy) {
			return WithVehicle{}, vehicleCoveredError(vehicleID)
		}
		return WithVehicle{}, err
	}

	dv := vehicleToDomain(v)
	return WithVehicle{Subscription: toDomain(rec), Vehicle: &dv}, nil
}

// Transfer repoints the subscription at another vehicle owned by the same
// user. The write is conditional on the vehicle reference observed here: if a
// concurrent transfer moves the subscription first, or races us onto the same
// target vehicle, exactly one of the two succeeds and the loser gets a
// conflict.
func (s *Service) Transfer(ctx context.Context, id domain.SubscriptionID, newVehicleID domain.VehicleID) (WithVehicle, error) {
	if strings.TrimSpace(string(newVehicleID)) == "" {
		return WithVehicle{}, validationError("vehicle_id", "must be non-empty")
	}

	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, subscriptionrepo.ErrNotFound) {
			return WithVehicle{}, subscriptionNotFoundError()
		}
		return WithVehicle{}, err
	}

	v, err := s.vehicles.GetByID(ctx, newVehicleID)
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return WithVehicle{}, vehicleNotFoundError()
		}
		return WithVehicle{}, err
	}
	if v.UserID != sub.UserID {
		return WithVehicle{}, validationError("vehicle_id", "vehicle does not belong to the subscription's owner")
	}

	now := s.clk.Now()
	if err := s.subs.TransferVehicle(ctx, id, sub.VehicleID, newVehicleID, now); err != nil {
		switch {
		case errors.Is(err, subscriptionrepo.ErrNotFound):
			return WithVehicle{}, subscriptionNotFoundError()
		case errors.Is(err, subscriptionrepo.ErrVehicleChanged):
			return WithVehicle{}, &Error{
				Status:  409,
				Code:    "TRANSFER_CONFLICT",
				Message: "subscription was transferred concurrently",
			}
		case errors.Is(err, subscriptionrepo.ErrVehicleBusy):
			return WithVehicle{}, vehicleCoveredError(newVehicleID)
		}
		return WithVehicle{}, err
	}

	sub.VehicleID = newVehicleID
	sub.UpdatedAt = now
	dv := vehicleToDomain(v)
	return WithVehicle{Subscription: toDomain(sub), Vehicle: &dv}, nil
}

// Update merges plan, status and end date. Reactivating a subscription whose
// vehicle meanwhile gained another active subscription is a conflict.
func (s *Service) Update(ctx context.Context, id domain.SubscriptionID, in UpdateInput) (domain.Subscription, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, subscriptionrepo.ErrNotFound) {
			return domain.Subscription{}, subscriptionNotFoundError()
		}
		return domain.Subscription{}, err
	}

	if in.Plan.IsSpecified() {
		if in.Plan.IsNull() {
			return domain.Subscription{}, validationError("plan", "cannot be null")
		}
		plan := strings.TrimSpace(in.Plan.Value())
		if plan == "" {
			return domain.Subscription{}, validationError("plan", "must be non-empty")
		}
		sub.Plan = plan
	}

	if in.Status.IsSpecified() {
		if in.Status.IsNull() {
			return domain.Subscription{}, validationError("status", "cannot be null")
		}
		status := domain.SubscriptionStatus(strings.TrimSpace(in.Status.Value()))
		if !domain.ValidSubscriptionStatus(status) {
			return domain.Subscription{}, validationError("status", `must be one of "active", "paused", "canceled", "overdue"`)
		}
		sub.Status = status
	}

	if in.EndDate.IsSpecified() {
		if in.EndDate.IsNull() {
			sub.EndDate = nil
		} else {
			endDate, err := parseDate(in.EndDate.Value())
			if err != nil {
				return domain.Subscription{}, validationError("end_date", "must be a valid calendar date")
			}
			sub.EndDate = &endDate
		}
	}

	sub.UpdatedAt = s.clk.Now()
	if err := s.subs.Update(ctx, sub); err != nil {
		if errors.Is(err, subscriptionrepo.ErrVehicleBusy) {
			return domain.Subscription{}, vehicleCoveredError(sub.VehicleID)
		}
		if errors.Is(err, subscriptionrepo.ErrNotFound) {
			return domain.Subscription{}, subscriptionNotFoundError()
		}
		return domain.Subscription{}, err
	}
	return toDomain(sub), nil
}

// Delete hard-removes an erroneous subscription record. This is distinct from
// cancellation (a status) and never cascades to purchase history. The removed
// id is returned for confirmation.
func (s *Service) Delete(ctx context.Context, id domain.SubscriptionID) (domain.SubscriptionID, error) {
	if err := s.subs.Delete(ctx, id); err != nil {
		if errors.Is(err, subscriptionrepo.ErrNotFound) {
			return "", subscriptionNotFoundError()
		}
		return "", err
	}
	return id, nil
}

// ListForUser returns the user's subscriptions newest first, each joined with
// its current vehicle snapshot for display.
func (s *Service) ListForUser(ctx context.Context, userID domain.UserID) ([]WithVehicle, error) {
	ss, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]WithVehicle, 0, len(ss))
	for _, rec := range ss {
		item := WithVehicle{Subscription: toDomain(rec)}
		v, err := s.vehicles.GetByID(ctx, rec.VehicleID)
		switch {
		case err == nil:
			dv := vehicleToDomain(v)
			item.Vehicle = &dv
		case errors.Is(err, vehiclerepo.ErrNotFound):
			// Tolerate an unresolvable vehicle in the read model.
		default:
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// parseDate accepts a calendar date ("2006-01-02") and, for convenience of
// transport layers that send timestamps, an RFC 3339 instant truncated to its
// date in UTC.
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

func subscriptionNotFoundError() *Error {
	return &Error{
		Status:  404,
		Code:    "SUBSCRIPTION_NOT_FOUND",
		Message: "no subscription exists with the provided id",
	}
}

func vehicleNotFoundError() *Error {
	return &Error{
		Status:  404,
		Code:    "VEHICLE_NOT_FOUND",
		Message: "no vehicle exists with the provided id",
	}
}

func vehicleCoveredError(id domain.VehicleID) *Error {
	return &Error{
		Status:  409,
		Code:    "VEHICLE_ALREADY_COVERED",
		Message: "vehicle already has an active subscription",
		Details: map[string]any{"vehicle_id": string(id)},
	}
}

func toDomain(s subscriptionrepo.Subscription) domain.Subscription {
	out := domain.Subscription{
		ID:        s.ID,
		UserID:    s.UserID,
		VehicleID: s.VehicleID,
		Plan:      s.Plan,
		Status:    s.Status,
		StartDate: s.StartDate,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.EndDate != nil {
		v := *s.EndDate
		out.EndDate = &v
	}
	return out
}

func vehicleToDomain(v vehiclerepo.Vehicle) domain.Vehicle {
	return domain.Vehicle{
		ID:           v.ID,
		UserID:       v.UserID,
		LicensePlate: v.LicensePlate,
		Make:         v.Make,
		Model:        v.Model,
		Year:         v.Year,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

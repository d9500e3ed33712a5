package registry

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/jdspiral/csr-amp/internal/domain"
	clockport "github.com/jdspiral/csr-amp/internal/ports/out/clock"
	"github.com/jdspiral/csr-amp/internal/ports/out/subscriptionrepo"
	"github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
	"github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

// Service owns user and vehicle records: lookups, profile merges, vehicle
// registration and the guarded vehicle delete. Subscriptions are read-only
// here (the delete referential guard); their lifecycle lives in
// app/subscriptions.
type Service struct {
	users    userrepo.Repository
	vehicles vehiclerepo.Repository
	subs     subscriptionrepo.Repository
	clk      clockport.Clock

	newVehicleID func() domain.VehicleID
}

func NewService(users userrepo.Repository, vehicles vehiclerepo.Repository, subs subscriptionrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		users:    users,
		vehicles: vehicles,
		subs:     subs,
		clk:      clk,
		newVehicleID: func() domain.VehicleID {
			return domain.VehicleID(uuid.NewString())
		},
	}
}

// SetNewVehicleIDForTest overrides vehicle ID generation in tests.
func (s *Service) SetNewVehicleIDForTest(fn func() domain.VehicleID) { s.newVehicleID = fn }

func (s *Service) GetUser(ctx context.Context, id domain.UserID) (domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, &Error{
				Status:  404,
				Code:    "USER_NOT_FOUND",
				Message: "no user exists with the provided id",
			}
		}
		return domain.User{}, err
	}
	return userToDomain(u), nil
}

// ListUsers returns users newest first. search is a case-insensitive
// substring match on name; empty returns all users.
func (s *Service) ListUsers(ctx context.Context, search string) ([]domain.User, error) {
	us, err := s.users.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(us))
	for _, u := range us {
		out = append(out, userToDomain(u))
	}
	return out, nil
}

func (s *Service) UpdateUser(ctx context.Context, id domain.UserID, in UpdateUserInput) (domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, &Error{
				Status:  404,
				Code:    "USER_NOT_FOUND",
				Message: "no user exists with the provided id",
			}
		}
		return domain.User{}, err
	}

	if in.Name.IsSpecified() {
		if in.Name.IsNull() {
			return domain.User{}, validationError("name", "cannot be null")
		}
		name := domain.NormalizeHumanName(in.Name.Value())
		if name == "" {
			return domain.User{}, validationError("name", "must be non-empty")
		}
		u.Name = name
	}

	if in.Email.IsSpecified() {
		if in.Email.IsNull() {
			return domain.User{}, validationError("email", "cannot be null")
		}
		email := strings.TrimSpace(in.Email.Value())
		if err := validateEmail(email); err != nil {
			return domain.User{}, validationError("email", err.Error())
		}
		u.Email = email
	}

	if in.Phone.IsSpecified() {
		if in.Phone.IsNull() {
			u.Phone = nil
		} else {
			phone := strings.TrimSpace(in.Phone.Value())
			if phone == "" {
				return domain.User{}, validationError("phone", "must be non-empty or null")
			}
			u.Phone = &phone
		}
	}

	if in.Status.IsSpecified() {
		if in.Status.IsNull() {
			return domain.User{}, validationError("status", "cannot be null")
		}
		status := domain.UserStatus(strings.TrimSpace(in.Status.Value()))
		if !domain.ValidUserStatus(status) {
			return domain.User{}, validationError("status", `must be "active" or "canceled"`)
		}
		u.Status = status
	}

	u.UpdatedAt = s.clk.Now()
	if err := s.users.Update(ctx, u); err != nil {
		return domain.User{}, err
	}
	return userToDomain(u), nil
}

func (s *Service) GetVehicle(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return domain.Vehicle{}, &Error{
				Status:  404,
				Code:    "VEHICLE_NOT_FOUND",
				Message: "no vehicle exists with the provided id",
			}
		}
		return domain.Vehicle{}, err
	}
	return vehicleToDomain(v), nil
}

// ListVehicles returns all vehicles owned by the user in registration order.
// An unknown user yields an empty list rather than a failure; the snapshot
// view treats missing slices as empty.
func (s *Service) ListVehicles(ctx context.Context, userID domain.UserID) ([]domain.Vehicle, error) {
	vs, err := s.vehicles.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Vehicle, 0, len(vs))
	for _, v := range vs {
		out = append(out, vehicleToDomain(v))
	}
	return out, nil
}

func (s *Service) CreateVehicle(ctx context.Context, in CreateVehicleInput) (domain.Vehicle, error) {
	userID := domain.UserID(strings.TrimSpace(in.UserID))
	if userID == "" {
		return domain.Vehicle{}, validationError("user_id", "must be non-empty")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.Vehicle{}, &Error{
				Status:  404,
				Code:    "USER_NOT_FOUND",
				Message: "no user exists with the provided id",
			}
		}
		return domain.Vehicle{}, err
	}

	plate := domain.NormalizePlate(in.LicensePlate)
	if plate == "" {
		return domain.Vehicle{}, validationError("license_plate", "must be non-empty")
	}
	if !domain.ValidVehicleYear(in.Year, s.clk.Now()) {
		return domain.Vehicle{}, validationError("year", "must be a model year between 1900 and next year")
	}
	if _, err := s.vehicles.GetByPlate(ctx, plate); err == nil {
		return domain.Vehicle{}, plateConflictError(plate)
	} else if !errors.Is(err, vehiclerepo.ErrNotFound) {
		return domain.Vehicle{}, err
	}

	now := s.clk.Now()
	v := vehiclerepo.Vehicle{
		ID:           s.newVehicleID(),
		UserID:       userID,
		LicensePlate: plate,
		Make:         strings.TrimSpace(in.Make),
		Model:        strings.TrimSpace(in.Model),
		Year:         in.Year,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.vehicles.Create(ctx, v); err != nil {
		if errors.Is(err, vehiclerepo.ErrPlateTaken) {
			return domain.Vehicle{}, plateConflictError(plate)
		}
		return domain.Vehicle{}, err
	}
	return vehicleToDomain(v), nil
}

func (s *Service) UpdateVehicle(ctx context.Context, id domain.VehicleID, in UpdateVehicleInput) (domain.Vehicle, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return domain.Vehicle{}, &Error{
				Status:  404,
				Code:    "VEHICLE_NOT_FOUND",
				Message: "no vehicle exists with the provided id",
			}
		}
		return domain.Vehicle{}, err
	}

	if in.LicensePlate.IsSpecified() {
		if in.LicensePlate.IsNull() {
			return domain.Vehicle{}, validationError("license_plate", "cannot be null")
		}
		plate := domain.NormalizePlate(in.LicensePlate.Value())
		if plate == "" {
			return domain.Vehicle{}, validationError("license_plate", "must be non-empty")
		}
		if holder, err := s.vehicles.GetByPlate(ctx, plate); err == nil {
			if holder.ID != id {
				return domain.Vehicle{}, plateConflictError(plate)
			}
		} else if !errors.Is(err, vehiclerepo.ErrNotFound) {
			return domain.Vehicle{}, err
		}
		v.LicensePlate = plate
	}
	if in.Make.IsSpecified() {
		if in.Make.IsNull() {
			return domain.Vehicle{}, validationError("make", "cannot be null")
		}
		v.Make = strings.TrimSpace(in.Make.Value())
	}
	if in.Model.IsSpecified() {
		if in.Model.IsNull() {
			return domain.Vehicle{}, validationError("model", "cannot be null")
		}
		v.Model = strings.TrimSpace(in.Model.Value())
	}
	if in.Year.IsSpecified() {
		if in.Year.IsNull() {
			return domain.Vehicle{}, validationError("year", "cannot be null")
		}
		if !domain.ValidVehicleYear(in.Year.Value(), s.clk.Now()) {
			return domain.Vehicle{}, validationError("year", "must be a model year between 1900 and next year")
		}
		v.Year = in.Year.Value()
	}

	v.UpdatedAt = s.clk.Now()
	if err := s.vehicles.Update(ctx, v); err != nil {
		if errors.Is(err, vehiclerepo.ErrPlateTaken) {
			return domain.Vehicle{}, plateConflictError(v.LicensePlate)
		}
		return domain.Vehicle{}, err
	}
	return vehicleToDomain(v), nil
}

// DeleteVehicle removes a vehicle only when no subscription of any status
// still references it (referential guard).
func (s *Service) DeleteVehicle(ctx context.Context, id domain.VehicleID) error {
	if _, err := s.vehicles.GetByID(ctx, id); err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return &Error{
				Status:  404,
				Code:    "VEHICLE_NOT_FOUND",
				Message: "no vehicle exists with the provided id",
			}
		}
		return err
	}

	n, err := s.subs.CountByVehicle(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return &Error{
			Status:  409,
			Code:    "VEHICLE_IN_USE",
			Message: "vehicle is still referenced by a subscription",
			Details: map[string]any{"subscriptions": n},
		}
	}

	if err := s.vehicles.Delete(ctx, id); err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return &Error{
				Status:  404,
				Code:    "VEHICLE_NOT_FOUND",
				Message: "no vehicle exists with the provided id",
			}
		}
		if errors.Is(err, vehiclerepo.ErrInUse) {
			return &Error{
				Status:  409,
				Code:    "VEHICLE_IN_USE",
				Message: "vehicle is still referenced by a subscription",
			}
		}
		return err
	}
	return nil
}

func validationError(field, problem string) *Error {
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: "invalid " + field,
		Details: map[string]any{field: problem},
	}
}

func plateConflictError(plate string) *Error {
	return &Error{
		Status:  409,
		Code:    "PLATE_ALREADY_REGISTERED",
		Message: "license plate is already registered to another vehicle",
		Details: map[string]any{"license_plate": plate},
	}
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func userToDomain(u userrepo.User) domain.User {
	return domain.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     cloneStringPtr(u.Phone),
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
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

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package httpapi

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/jdspiral/csr-amp/internal/app/ledger"
	"github.com/jdspiral/csr-amp/internal/app/snapshot"
	"github.com/jdspiral/csr-amp/internal/app/subscriptions"
	"github.com/jdspiral/csr-amp/internal/domain"
)

// Wire DTOs. Field names follow the portal's JSON contract (snake_case,
// calendar dates for billing fields, RFC 3339 for record timestamps).

type userDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type vehicleDTO struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	LicensePlate string `json:"license_plate"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type subscriptionDTO struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	VehicleID string              `json:"vehicle_id"`
	Plan      string              `json:"plan"`
	Status    string              `json:"status"`
	StartDate openapi_types.Date  `json:"start_date"`
	EndDate   *openapi_types.Date `json:"end_date"`
	CreatedAt string              `json:"created_at"`
	UpdatedAt string              `json:"updated_at"`
	Vehicle   *vehicleDTO         `json:"vehicle,omitempty"`
}

type purchaseSubscriptionDTO struct {
	ID     string `json:"id"`
	Plan   string `json:"plan"`
	Status string `json:"status"`
}

type purchaseVehicleDTO struct {
	ID           string `json:"id"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	LicensePlate string `json:"license_plate"`
}

type purchaseDTO struct {
	ID             string                   `json:"id"`
	UserID         string                   `json:"user_id"`
	PurchaseDate   openapi_types.Date       `json:"purchase_date"`
	Amount         float64                  `json:"amount"`
	Description    string                   `json:"description"`
	Plan           *string                  `json:"plan,omitempty"`
	SubscriptionID *string                  `json:"subscription_id,omitempty"`
	VehicleID      *string                  `json:"vehicle_id,omitempty"`
	CreatedAt      string                   `json:"created_at"`
	Subscription   *purchaseSubscriptionDTO `json:"subscription,omitempty"`
	Vehicle        *purchaseVehicleDTO      `json:"vehicle,omitempty"`
}

type snapshotDTO struct {
	User            userDTO           `json:"user"`
	Vehicles        []vehicleDTO      `json:"vehicles"`
	Subscriptions   []subscriptionDTO `json:"subscriptions"`
	PurchaseHistory []purchaseDTO     `json:"purchase_history"`
}

func wireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func wireDate(t time.Time) openapi_types.Date {
	return openapi_types.Date{Time: t.UTC()}
}

func userFromDomain(u domain.User) userDTO {
	return userDTO{
		ID:        string(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Status:    string(u.Status),
		CreatedAt: wireTime(u.CreatedAt),
		UpdatedAt: wireTime(u.UpdatedAt),
	}
}

func vehicleFromDomain(v domain.Vehicle) vehicleDTO {
	return vehicleDTO{
		ID:           string(v.ID),
		UserID:       string(v.UserID),
		LicensePlate: v.LicensePlate,
		Make:         v.Make,
		Model:        v.Model,
		Year:         v.Year,
		CreatedAt:    wireTime(v.CreatedAt),
		UpdatedAt:    wireTime(v.UpdatedAt),
	}
}

func subscriptionFromDomain(s domain.Subscription) subscriptionDTO {
	out := subscriptionDTO{
		ID:        string(s.ID),
		UserID:    string(s.UserID),
		VehicleID: string(s.VehicleID),
		Plan:      s.Plan,
		Status:    string(s.Status),
		StartDate: wireDate(s.StartDate),
		CreatedAt: wireTime(s.CreatedAt),
		UpdatedAt: wireTime(s.UpdatedAt),
	}
	if s.EndDate != nil {
		d := wireDate(*s.EndDate)
		out.EndDate = &d
	}
	return out
}

func subscriptionWithVehicle(sv subscriptions.WithVehicle) subscriptionDTO {
	out := subscriptionFromDomain(sv.Subscription)
	if sv.Vehicle != nil {
		v := vehicleFromDomain(*sv.Vehicle)
		out.Vehicle = &v
	}
	return out
}

func purchaseFromEntry(e ledger.Entry) purchaseDTO {
	out := purchaseDTO{
		ID:           string(e.ID),
		UserID:       string(e.UserID),
		PurchaseDate: wireDate(e.PurchaseDate),
		Amount:       e.Amount,
		Description:  e.Description,
		Plan:         e.Plan,
		CreatedAt:    wireTime(e.CreatedAt),
	}
	if e.SubscriptionID != nil {
		id := string(*e.SubscriptionID)
		out.SubscriptionID = &id
	}
	if e.VehicleID != nil {
		id := string(*e.VehicleID)
		out.VehicleID = &id
	}
	if e.Subscription != nil {
		out.Subscription = &purchaseSubscriptionDTO{
			ID:     string(e.Subscription.ID),
			Plan:   e.Subscription.Plan,
			Status: string(e.Subscription.Status),
		}
	}
	if e.Vehicle != nil {
		out.Vehicle = &purchaseVehicleDTO{
			ID:           string(e.Vehicle.ID),
			Make:         e.Vehicle.Make,
			Model:        e.Vehicle.Model,
			LicensePlate: e.Vehicle.LicensePlate,
		}
	}
	return out
}

func purchaseFromDomain(p domain.PurchaseHistory) purchaseDTO {
	return purchaseFromEntry(ledger.Entry{PurchaseHistory: p})
}

func snapshotFromApp(s snapshot.UserSnapshot) snapshotDTO {
	out := snapshotDTO{
		User:            userFromDomain(s.User),
		Vehicles:        make([]vehicleDTO, 0, len(s.Vehicles)),
		Subscriptions:   make([]subscriptionDTO, 0, len(s.Subscriptions)),
		PurchaseHistory: make([]purchaseDTO, 0, len(s.PurchaseHistory)),
	}
	for _, v := range s.Vehicles {
		out.Vehicles = append(out.Vehicles, vehicleFromDomain(v))
	}
	for _, sv := range s.Subscriptions {
		out.Subscriptions = append(out.Subscriptions, subscriptionWithVehicle(sv))
	}
	for _, e := range s.PurchaseHistory {
		out.PurchaseHistory = append(out.PurchaseHistory, purchaseFromEntry(e))
	}
	return out
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"

	"github.com/jdspiral/csr-amp/internal/app/ledger"
	"github.com/jdspiral/csr-amp/internal/app/registry"
	"github.com/jdspiral/csr-amp/internal/app/snapshot"
	"github.com/jdspiral/csr-amp/internal/app/subscriptions"
	"github.com/jdspiral/csr-amp/internal/domain"
	"github.com/jdspiral/csr-amp/internal/ports/out/idempotency"
)

// Server is the HTTP adapter. It decodes requests, delegates to the app
// services and maps their results onto the portal's JSON contract.
type Server struct {
	Registry *registry.Service
	Subs     *subscriptions.Service
	Ledger   *ledger.Service
	Snapshot *snapshot.Service
	Idem     idempotency.Store
}

func NewServer(reg *registry.Service, subs *subscriptions.Service, led *ledger.Service, snap *snapshot.Service, idem idempotency.Store) *Server {
	return &Server{
		Registry: reg,
		Subs:     subs,
		Ledger:   led,
		Snapshot: snap,
		Idem:     idem,
	}
}

type dataResponse struct {
	Data any `json:"data"`
}

func writeData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dataResponse{Data: v})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", map[string]any{"reason": err.Error()})
		return false
	}
	return true
}

// Users

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	us, err := s.Registry.ListUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]userDTO, 0, len(us))
	for _, u := range us {
		out = append(out, userFromDomain(u))
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.Registry.GetUser(r.Context(), domain.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, userFromDomain(u))
}

type updateUserBody struct {
	Name   nullable.Nullable[string] `json:"name"`
	Email  nullable.Nullable[string] `json:"email"`
	Phone  nullable.Nullable[string] `json:"phone"`
	Status nullable.Nullable[string] `json:"status"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var body updateUserBody
	if !decodeJSON(w, r, &body) {
		return
	}
	in := registry.UpdateUserInput{
		Name:   optionalFromNullable[string](body.Name),
		Email:  optionalFromNullable[string](body.Email),
		Phone:  optionalFromNullable[string](body.Phone),
		Status: optionalFromNullable[string](body.Status),
	}
	u, err := s.Registry.UpdateUser(r.Context(), domain.UserID(chi.URLParam(r, "id")), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, userFromDomain(u))
}

// Vehicles

func (s *Server) handleListUserVehicles(w http.ResponseWriter, r *http.Request) {
	vs, err := s.Registry.ListVehicles(r.Context(), domain.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]vehicleDTO, 0, len(vs))
	for _, v := range vs {
		out = append(out, vehicleFromDomain(v))
	}
	writeData(w, http.StatusOK, out)
}

type createVehicleBody struct {
	UserID       string `json:"user_id"`
	LicensePlate string `json:"license_plate"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var body createVehicleBody
	if !decodeJSON(w, r, &body) {
		return
	}
	v, err := s.Registry.CreateVehicle(r.Context(), registry.CreateVehicleInput{
		UserID:       body.UserID,
		LicensePlate: body.LicensePlate,
		Make:         body.Make,
		Model:        body.Model,
		Year:         body.Year,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, vehicleFromDomain(v))
}

type updateVehicleBody struct {
	LicensePlate nullable.Nullable[string] `json:"license_plate"`
	Make         nullable.Nullable[string] `json:"make"`
	Model        nullable.Nullable[string] `json:"model"`
	Year         nullable.Nullable[int]    `json:"year"`
}

func (s *Server) handleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var body updateVehicleBody
	if !decodeJSON(w, r, &body) {
		return
	}
	in := registry.UpdateVehicleInput{
		LicensePlate: optionalFromNullable[string](body.LicensePlate),
		Make:         optionalFromNullable[string](body.Make),
		Model:        optionalFromNullable[string](body.Model),
		Year:         optionalFromNullable[int](body.Year),
	}
	v, err := s.Registry.UpdateVehicle(r.Context(), domain.VehicleID(chi.URLParam(r, "id")), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, vehicleFromDomain(v))
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := s.Registry.DeleteVehicle(r.Context(), domain.VehicleID(chi.URLParam(r, "id"))); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Subscriptions

func (s *Server) handleListUserSubscriptions(w http.ResponseWriter, r *http.Request) {
	ss, err := s.Subs.ListForUser(r.Context(), domain.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]subscriptionDTO, 0, len(ss))
	for _, sv := range ss {
		out = append(out, subscriptionWithVehicle(sv))
	}
	writeData(w, http.StatusOK, out)
}

type createSubscriptionBody struct {
	UserID    string `json:"user_id"`
	VehicleID string `json:"vehicle_id"`
	Plan      string `json:"plan"`
	StartDate string `json:"start_date"`
	Status    string `json:"status"`
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var body createSubscriptionBody
	if !decodeJSON(w, r, &body) {
		return
	}
	sv, err := s.Subs.Create(r.Context(), subscriptions.CreateInput{
		UserID:    body.UserID,
		VehicleID: body.VehicleID,
		Plan:      body.Plan,
		StartDate: body.StartDate,
		Status:    body.Status,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, subscriptionWithVehicle(sv))
}

type updateSubscriptionBody struct {
	Plan    nullable.Nullable[string] `json:"plan"`
	Status  nullable.Nullable[string] `json:"status"`
	EndDate nullable.Nullable[string] `json:"end_date"`
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var body updateSubscriptionBody
	if !decodeJSON(w, r, &body) {
		return
	}
	in := subscriptions.UpdateInput{
		Plan:    subsOptionalFromNullable[string](body.Plan),
		Status:  subsOptionalFromNullable[string](body.Status),
		EndDate: subsOptionalFromNullable[string](body.EndDate),
	}
	sub, err := s.Subs.Update(r.Context(), domain.SubscriptionID(chi.URLParam(r, "id")), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, subscriptionFromDomain(sub))
}

type transferSubscriptionBody struct {
	VehicleID string `json:"vehicle_id"`
}

func (s *Server) handleTransferSubscription(w http.ResponseWriter, r *http.Request) {
	var body transferSubscriptionBody
	if !decodeJSON(w, r, &body) {
		return
	}
	sv, err := s.Subs.Transfer(r.Context(), domain.SubscriptionID(chi.URLParam(r, "id")), domain.VehicleID(body.VehicleID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, subscriptionWithVehicle(sv))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := s.Subs.Delete(r.Context(), domain.SubscriptionID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": string(id)})
}

// Purchase history

func (s *Server) handleListUserPurchases(w http.ResponseWriter, r *http.Request) {
	es, err := s.Ledger.ListForUser(r.Context(), domain.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]purchaseDTO, 0, len(es))
	for _, e := range es {
		out = append(out, purchaseFromEntry(e))
	}
	writeData(w, http.StatusOK, out)
}

type recordPurchaseBody struct {
	UserID         string  `json:"user_id"`
	PurchaseDate   string  `json:"purchase_date"`
	Amount         float64 `json:"amount"`
	Description    string  `json:"description"`
	Plan           *string `json:"plan"`
	SubscriptionID *string `json:"subscription_id"`
	VehicleID      *string `json:"vehicle_id"`
}

func (s *Server) handleRecordPurchase(w http.ResponseWriter, r *http.Request) {
	var body recordPurchaseBody
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := s.Ledger.Record(r.Context(), ledger.RecordInput{
		UserID:         body.UserID,
		PurchaseDate:   body.PurchaseDate,
		Amount:         body.Amount,
		Description:    body.Description,
		Plan:           body.Plan,
		SubscriptionID: body.SubscriptionID,
		VehicleID:      body.VehicleID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, purchaseFromDomain(p))
}

// Snapshot

func (s *Server) handleGetUserSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Snapshot.GetUserSnapshot(r.Context(), domain.UserID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, snapshotFromApp(snap))
}

func optionalFromNullable[T any](n nullable.Nullable[T]) registry.Optional[T] {
	if !n.IsSpecified() {
		return registry.Unspecified[T]()
	}
	if n.IsNull() {
		return registry.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return registry.Unspecified[T]()
	}
	return registry.Some(v)
}

func subsOptionalFromNullable[T any](n nullable.Nullable[T]) subscriptions.Optional[T] {
	if !n.IsSpecified() {
		return subscriptions.Unspecified[T]()
	}
	if n.IsNull() {
		return subscriptions.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return subscriptions.Unspecified[T]()
	}
	return subscriptions.Some(v)
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	memclock "github.com/jdspiral/csr-amp/internal/adapters/memory/clock"
	memidempotency "github.com/jdspiral/csr-amp/internal/adapters/memory/idempotency"
	mempurchaserepo "github.com/jdspiral/csr-amp/internal/adapters/memory/purchaserepo"
	memsubscriptionrepo "github.com/jdspiral/csr-amp/internal/adapters/memory/subscriptionrepo"
	memuserrepo "github.com/jdspiral/csr-amp/internal/adapters/memory/userrepo"
	memvehiclerepo "github.com/jdspiral/csr-amp/internal/adapters/memory/vehiclerepo"
	"github.com/jdspiral/csr-amp/internal/app/ledger"
	"github.com/jdspiral/csr-amp/internal/app/registry"
	"github.com/jdspiral/csr-amp/internal/app/snapshot"
	"github.com/jdspiral/csr-amp/internal/app/subscriptions"
	"github.com/jdspiral/csr-amp/internal/domain"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
)

type testEnv struct {
	h     http.Handler
	users *memuserrepo.Repo
	subs  *memsubscriptionrepo.Repo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := memuserrepo.NewRepo()
	vehicles := memvehiclerepo.NewRepo()
	subRepo := memsubscriptionrepo.NewRepo()
	purchases := mempurchaserepo.NewRepo()
	idem := memidempotency.NewStore()
	clk := memclock.NewManualClock(time.Unix(1_700_000_000, 0).UTC())

	registrySvc := registry.NewService(users, vehicles, subRepo, clk)
	subSvc := subscriptions.NewService(subRepo, vehicles, clk)
	ledgerSvc := ledger.NewService(purchases, users, subRepo, vehicles, clk)
	snapshotSvc := snapshot.NewService(registrySvc, subSvc, ledgerSvc)

	api := NewServer(registrySvc, subSvc, ledgerSvc, snapshotSvc, idem)
	return &testEnv{
		h:     NewRouter(api, nil),
		users: users,
		subs:  subRepo,
	}
}

func (e *testEnv) seedUser(t *testing.T, id domain.UserID, name string) {
	t.Helper()
	now := time.Unix(100, 0).UTC()
	if err := e.users.Create(context.Background(), userrepoport.User{
		ID:        id,
		Name:      name,
		Email:     string(id) + "@example.com",
		Status:    domain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v body=%s", err, rec.Body.String())
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var env errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error: %v body=%s", err, rec.Body.String())
	}
	return env.Error
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestUsers_ListAndSearch(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.seedUser(t, "u1", "Alice Johnson")
	e.seedUser(t, "u2", "Bob Stone")

	rec := e.do(t, http.MethodGet, "/api/users", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var all []userDTO
	decodeData(t, rec, &all)
	if len(all) != 2 {
		t.Fatalf("users=%d", len(all))
	}

	rec = e.do(t, http.MethodGet, "/api/users?search=alice", nil, nil)
	var found []userDTO
	decodeData(t, rec, &found)
	if len(found) != 1 || found[0].ID != "u1" {
		t.Fatalf("found=%+v", found)
	}
}

func TestUsers_GetNotFound(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/users/missing", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	eb := decodeError(t, rec)
	if eb.Code != "USER_NOT_FOUND" {
		t.Fatalf("code=%q", eb.Code)
	}
	if eb.RequestID == "" {
		t.Fatalf("missing request_id: %+v", eb)
	}
}

func TestUsers_Update_MergeAndNullPhone(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.seedUser(t, "u1", "Alice Johnson")

	rec := e.do(t, http.MethodPut, "/api/users/u1", map[string]any{
		"phone": "+1-555-0100",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var u userDTO
	decodeData(t, rec, &u)
	if u.Phone == nil || *u.Phone != "+1-555-0100" || u.Name != "Alice Johnson" {
		t.Fatalf("user=%+v", u)
	}

	// Explicit null clears the phone; omitted fields stay put.
	rec = e.do(t, http.MethodPut, "/api/users/u1", map[string]any{
		"phone":  nil,
		"status": "canceled",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	decodeData(t, rec, &u)
	if u.Phone != nil || u.Status != "canceled" {
		t.Fatalf("user=%+v", u)
	}
}

func TestUsers_Update_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.seedUser(t, "u1", "Alice Johnson")

	rec := e.do(t, http.MethodPut, "/api/users/u1", map[string]any{
		"nickname": "Al",
	}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if eb := decodeError(t, rec); eb.Code != "VALIDATION_ERROR" {
		t.Fatalf("code=%q", eb.Code)
	}
}

func TestVehicles_CreateAndPlateConflict(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.seedUser(t, "u1", "Alice Johnson")

	rec := e.do(t, http.MethodPost, "/api/vehicles", map[string]any{
		"user_id":       "u1",
		"license_plate": "abc-123",
		"make":          "Honda",
		"model":         "Civic",
		"year":          2020,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var v vehicleDTO
	decodeData(t, rec, &v)
	if v.LicensePlate != "ABC-123" || v.UserID != "u1" {
		t.Fatalf("vehicle=%+v", v)
	}

	rec = e.do(t, http.MethodPost, "/api/vehicles", map[string]any{
		"user_id":       "u1",
		"license_plate": "ABC-123",
		"make":          "Toyota",
		"model":         "Corolla",
		"year":          2021,
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if eb := decodeError(t, rec); eb.Code != "PLATE_ALREADY_REGISTERED" {
		t.Fatalf("code=%q", eb.Code)
	}
}

func TestVehicles_DeleteGuard(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.seedUser(t, "u1", "Alice Johnson")

	rec := e.do(t, http.MethodPost, "/api/vehicles", map[string]any{
		"user_id":       "u1",
		"license_plate": "AAA-111",
		"make":          "Honda",
		"model":         "Civic",
		"year":          2020,
	}, nil)
	var v vehicleDTO
	decodeData(t, rec, &v)

	rec = e.do(t, http.MethodPost, "/api/subscriptions", map[string]any{
		"user_id":    "u1",
		"vehicle_id": v.ID,
		"plan":       "Premium",
		"start_date": "2024-01-01",
		"status":     "active",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var sub subscriptionDTO
	decodeData(t, rec, &sub)

	rec = e.do(t, http.MethodDelete, "/api/vehicles/"+v.ID, nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if eb := decodeError(t, rec); eb.Code != "VEHICLE_IN_USE" {
		t.Fatalf("code=%q", eb.Code)
	}

	rec = e.do(t, http.MethodDelete, "/api/subscriptions/"+sub.ID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodDelete, "/api/vehicles/"+v.ID, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSubscriptions_CreateConflictAndTransfer(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.seedUser(t, "u1", "Alice Johnson")

	var v1, v2 vehicleDTO
	rec := e.do(t, http.MethodPost, "/api/vehicles", map[string]any{
		"user_id": "u1", "license_plate": "AAA-111", "make": "Honda", "model": "Civic", "year": 2020,
	}, nil)
	decodeData(t, rec, &v1)
	rec = e.do(t, http.MethodPost, "/api/vehicles", map[string]any{
		"user_id": "u1", "license_plate": "BBB-222", "make": "Toyota", "model": "Corolla", "year": 2021,
	}, nil)
	decodeData(t, rec, &v2)

	rec = e.do(t, http.MethodPost, "/api/subscriptions", map[string]any{
		"user_id": "u1", "vehicle_id": v1.ID, "plan": "Premium", "start_date": "2024-01-01", "status": "active",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var sub subscriptionDTO
	decodeData(t, rec, &sub)
	if sub.Status != "active" || sub.Vehicle == nil || sub.Vehicle.ID != v1.ID {
		t.Fatalf("subscription=%+v", sub)
	}
	if got := sub.StartDate.Format("2006-01-02"); got != "2024-01-01" {
		t.Fatalf("start_date=%s", got)
	}

	rec = e.do(t, http.MethodPost, "/api/subscriptions", map[string]any{
		"user_id": "u1", "vehicle_id": v1.ID, "plan": "Basic", "start_date": "2024-02-01", "status": "active",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if eb := decodeError(t, rec); eb.Code != "VEHICLE_ALREADY_COVERED" {
		t.Fatalf("code=%q", eb.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/subscriptions/"+sub.ID+"/transfer", map[string]any{
		"vehicle_id": v2.ID,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var moved subscriptionDTO
	decodeData(t, rec, &moved)
	if moved.VehicleID != v2.ID || moved.Vehicle == nil || moved.Vehicle.ID != v2.ID {
		t.Fatalf("moved=%+v", moved)
	}
}

func TestSubscriptions_UpdateEndDate(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.seedUser(t, "u1", "Alice Johnson")

	var v vehicleDTO
	rec := e.do(t, http.MethodPost, "/api/vehicles", map[string]any{
		"user_id": "u1", "license_plate": "AAA-111", "make": "Honda", "model": "Civic", "year": 2020,
	}, nil)
	decodeData(t, rec, &v)

	var sub subscriptionDTO
	rec = e.do(t, http.MethodPost, "/api/subscriptions", map[string]any{
		"user_id": "u1", "vehicle_id": v.ID, "plan": "Premium", "start_date": "2024-01-01", "status": "active",
	}, nil)
	decodeData(t, rec, &sub)

	rec = e.do(t, http.MethodPut, "/api/subscriptions/"+sub.ID, map[string]any{
		"status":   "canceled",
		"end_date": "2024-06-30",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got subscriptionDTO
	decodeData(t, rec, &got)
	if got.Status != "canceled" || got.EndDate == nil || got.EndDate.Format("2006-01-02") != "2024-06-30" {
		t.Fatalf("subscription=%+v", got)
	}

	rec = e.do(t, http.MethodPut, "/api/subscriptions/"+sub.ID, map[string]any{
		"end_date": nil,
	}, nil)
	decodeData(t, rec, &got)
	if got.EndDate != nil {
		t.Fatalf("end_date=%v", got.EndDate)
	}
}

func TestPurchaseHistory_RecordAndList(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.seedUser(t, "u1", "Alice Johnson")

	rec := e.do(t, http.MethodPost, "/api/purchase-history", map[string]any{
		"user_id":       "u1",
		"purchase_date": "2024-01-15",
		"amount":        49.99,
		"description":   "January renewal",
		"plan":          "Basic",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var p purchaseDTO
	decodeData(t, rec, &p)
	if p.Amount != 49.99 || p.Plan == nil || *p.Plan != "Basic" {
		t.Fatalf("purchase=%+v", p)
	}

	rec = e.do(t, http.MethodGet, "/api/users/u1/purchase-history", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var ps []purchaseDTO
	decodeData(t, rec, &ps)
	if len(ps) != 1 || ps[0].ID != p.ID {
		t.Fatalf("purchases=%+v", ps)
	}
}

func TestSnapshot_AssemblesSlices(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.seedUser(t, "u1", "Alice Johnson")

	var v vehicleDTO
	rec := e.do(t, http.MethodPost, "/api/vehicles", map[string]any{
		"user_id": "u1", "license_plate": "AAA-111", "make": "Honda", "model": "Civic", "year": 2020,
	}, nil)
	decodeData(t, rec, &v)
	rec = e.do(t, http.MethodPost, "/api/subscriptions", map[string]any{
		"user_id": "u1", "vehicle_id": v.ID, "plan": "Premium", "start_date": "2024-01-01", "status": "active",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, "/api/users/u1/snapshot", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var snap snapshotDTO
	decodeData(t, rec, &snap)
	if snap.User.ID != "u1" || len(snap.Vehicles) != 1 || len(snap.Subscriptions) != 1 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if len(snap.PurchaseHistory) != 0 {
		t.Fatalf("purchases=%+v", snap.PurchaseHistory)
	}
}

func TestIdempotency_ReplaysCreate(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.seedUser(t, "u1", "Alice Johnson")

	var v vehicleDTO
	rec := e.do(t, http.MethodPost, "/api/vehicles", map[string]any{
		"user_id": "u1", "license_plate": "AAA-111", "make": "Honda", "model": "Civic", "year": 2020,
	}, nil)
	decodeData(t, rec, &v)

	body := map[string]any{
		"user_id": "u1", "vehicle_id": v.ID, "plan": "Premium", "start_date": "2024-01-01", "status": "active",
	}
	hdr := map[string]string{"Idempotency-Key": "k-1"}

	first := e.do(t, http.MethodPost, "/api/subscriptions", body, hdr)
	if first.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", first.Code, first.Body.String())
	}
	second := e.do(t, http.MethodPost, "/api/subscriptions", body, hdr)
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status=%d body=%s", second.Code, second.Body.String())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}

	// Only one subscription was actually created.
	ss, err := e.subs.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(ss) != 1 {
		t.Fatalf("subscriptions=%d", len(ss))
	}
}

package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	memclock "github.com/jdspiral/csr-amp/internal/adapters/memory/clock"
	mempurchaserepo "github.com/jdspiral/csr-amp/internal/adapters/memory/purchaserepo"
	memsubscriptionrepo "github.com/jdspiral/csr-amp/internal/adapters/memory/subscriptionrepo"
	memuserrepo "github.com/jdspiral/csr-amp/internal/adapters/memory/userrepo"
	memvehiclerepo "github.com/jdspiral/csr-amp/internal/adapters/memory/vehiclerepo"
	"github.com/jdspiral/csr-amp/internal/app/ledger"
	"github.com/jdspiral/csr-amp/internal/domain"
	subscriptionrepoport "github.com/jdspiral/csr-amp/internal/ports/out/subscriptionrepo"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
	vehiclerepoport "github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

type fixture struct {
	purchases *mempurchaserepo.Repo
	users     *memuserrepo.Repo
	subs      *memsubscriptionrepo.Repo
	vehicles  *memvehiclerepo.Repo
	clk       *memclock.ManualClock
	svc       *ledger.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		purchases: mempurchaserepo.NewRepo(),
		users:     memuserrepo.NewRepo(),
		subs:      memsubscriptionrepo.NewRepo(),
		vehicles:  memvehiclerepo.NewRepo(),
		clk:       memclock.NewManualClock(time.Unix(1_700_000_000, 0).UTC()),
	}
	f.svc = ledger.NewService(f.purchases, f.users, f.subs, f.vehicles, f.clk)
	return f
}

func (f *fixture) seedGraph(t *testing.T) {
	t.Helper()
	now := time.Unix(100, 0).UTC()
	if err := f.users.Create(context.Background(), userrepoport.User{
		ID:        "u1",
		Name:      "Alice Johnson",
		Email:     "alice@example.com",
		Status:    domain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := f.vehicles.Create(context.Background(), vehiclerepoport.Vehicle{
		ID:           "v1",
		UserID:       "u1",
		LicensePlate: "AAA-111",
		Make:         "Honda",
		Model:        "Civic",
		Year:         2020,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	if err := f.subs.Create(context.Background(), subscriptionrepoport.Subscription{
		ID:        "s1",
		UserID:    "u1",
		VehicleID: "v1",
		Plan:      "Basic",
		Status:    domain.SubscriptionActive,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
}

func strptr(s string) *string { return &s }

func TestService_Record_AppendsFact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedGraph(t)
	nextID := 0
	f.svc.SetNewPurchaseIDForTest(func() domain.PurchaseID {
		nextID++
		return domain.PurchaseID(fmt.Sprintf("p%d", nextID))
	})

	p, err := f.svc.Record(context.Background(), ledger.RecordInput{
		UserID:         "u1",
		PurchaseDate:   "2024-01-15",
		Amount:         49.99,
		Description:    "January renewal",
		Plan:           strptr("Basic"),
		SubscriptionID: strptr("s1"),
		VehicleID:      strptr("v1"),
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if p.ID != "p1" || p.Amount != 49.99 || p.Description != "January renewal" {
		t.Fatalf("purchase=%+v", p)
	}
	if p.Plan == nil || *p.Plan != "Basic" {
		t.Fatalf("plan=%v", p.Plan)
	}
	if p.SubscriptionID == nil || *p.SubscriptionID != "s1" || p.VehicleID == nil || *p.VehicleID != "v1" {
		t.Fatalf("refs=%v/%v", p.SubscriptionID, p.VehicleID)
	}
	if !p.CreatedAt.Equal(f.clk.Now()) {
		t.Fatalf("createdAt=%v", p.CreatedAt)
	}

	// Zero amount is a legitimate promo purchase.
	if _, err := f.svc.Record(context.Background(), ledger.RecordInput{
		UserID:       "u1",
		PurchaseDate: "2024-02-01",
		Amount:       0,
		Description:  "Promo credit",
	}); err != nil {
		t.Fatalf("Record zero amount: %v", err)
	}
}

func TestService_Record_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedGraph(t)

	cases := []struct {
		name string
		in   ledger.RecordInput
	}{
		{"empty user", ledger.RecordInput{PurchaseDate: "2024-01-15", Amount: 1, Description: "x"}},
		{"bad date", ledger.RecordInput{UserID: "u1", PurchaseDate: "soon", Amount: 1, Description: "x"}},
		{"negative amount", ledger.RecordInput{UserID: "u1", PurchaseDate: "2024-01-15", Amount: -0.01, Description: "x"}},
		{"empty description", ledger.RecordInput{UserID: "u1", PurchaseDate: "2024-01-15", Amount: 1, Description: "  "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Record(context.Background(), tc.in)
			var ae *ledger.Error
			if !errors.As(err, &ae) || ae.Status != 422 || ae.Code != "VALIDATION_ERROR" {
				t.Fatalf("err=%v", err)
			}
		})
	}
}

func TestService_Record_VerifiesReferences(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedGraph(t)

	var ae *ledger.Error

	_, err := f.svc.Record(context.Background(), ledger.RecordInput{
		UserID:       "missing",
		PurchaseDate: "2024-01-15",
		Amount:       1,
		Description:  "x",
	})
	if !errors.As(err, &ae) || ae.Status != 404 || ae.Code != "USER_NOT_FOUND" {
		t.Fatalf("err=%v", err)
	}

	_, err = f.svc.Record(context.Background(), ledger.RecordInput{
		UserID:         "u1",
		PurchaseDate:   "2024-01-15",
		Amount:         1,
		Description:    "x",
		SubscriptionID: strptr("missing"),
	})
	if !errors.As(err, &ae) || ae.Status != 404 || ae.Code != "SUBSCRIPTION_NOT_FOUND" {
		t.Fatalf("err=%v", err)
	}

	_, err = f.svc.Record(context.Background(), ledger.RecordInput{
		UserID:       "u1",
		PurchaseDate: "2024-01-15",
		Amount:       1,
		Description:  "x",
		VehicleID:    strptr("missing"),
	})
	if !errors.As(err, &ae) || ae.Status != 404 || ae.Code != "VEHICLE_NOT_FOUND" {
		t.Fatalf("err=%v", err)
	}
}

func TestService_ListForUser_JoinsLiveState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedGraph(t)

	if _, err := f.svc.Record(context.Background(), ledger.RecordInput{
		UserID:         "u1",
		PurchaseDate:   "2024-01-15",
		Amount:         49.99,
		Description:    "January renewal",
		Plan:           strptr("Basic"),
		SubscriptionID: strptr("s1"),
		VehicleID:      strptr("v1"),
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// The subscription's plan changes after the purchase.
	sub, err := f.subs.GetByID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	sub.Plan = "Premium"
	if err := f.subs.Update(context.Background(), sub); err != nil {
		t.Fatalf("update subscription: %v", err)
	}

	es, err := f.svc.ListForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(es) != 1 {
		t.Fatalf("entries=%d", len(es))
	}
	e := es[0]
	// Stored fact keeps the purchase-time label; the join shows live state.
	if e.Plan == nil || *e.Plan != "Basic" {
		t.Fatalf("stored plan=%v", e.Plan)
	}
	if e.Subscription == nil || e.Subscription.Plan != "Premium" || e.Subscription.Status != domain.SubscriptionActive {
		t.Fatalf("joined subscription=%+v", e.Subscription)
	}
	if e.Vehicle == nil || e.Vehicle.LicensePlate != "AAA-111" {
		t.Fatalf("joined vehicle=%+v", e.Vehicle)
	}
}

func TestService_ListForUser_ToleratesDanglingReferences(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedGraph(t)

	if _, err := f.svc.Record(context.Background(), ledger.RecordInput{
		UserID:         "u1",
		PurchaseDate:   "2024-01-15",
		Amount:         49.99,
		Description:    "January renewal",
		SubscriptionID: strptr("s1"),
		VehicleID:      strptr("v1"),
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Subscription hard-deleted, then the vehicle removed. The ledger row
	// survives both with its references intact but unresolvable.
	if err := f.subs.Delete(context.Background(), "s1"); err != nil {
		t.Fatalf("delete subscription: %v", err)
	}
	if err := f.vehicles.Delete(context.Background(), "v1"); err != nil {
		t.Fatalf("delete vehicle: %v", err)
	}

	es, err := f.svc.ListForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(es) != 1 {
		t.Fatalf("entries=%d", len(es))
	}
	e := es[0]
	if e.SubscriptionID == nil || *e.SubscriptionID != "s1" {
		t.Fatalf("subscriptionID=%v", e.SubscriptionID)
	}
	if e.Subscription != nil || e.Vehicle != nil {
		t.Fatalf("expected bare fact, got %+v / %+v", e.Subscription, e.Vehicle)
	}
}

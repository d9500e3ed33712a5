package contracttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jdspiral/csr-amp/internal/domain"
	idempotencyport "github.com/jdspiral/csr-amp/internal/ports/out/idempotency"
	purchaserepoport "github.com/jdspiral/csr-amp/internal/ports/out/purchaserepo"
	subscriptionrepoport "github.com/jdspiral/csr-amp/internal/ports/out/subscriptionrepo"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
	vehiclerepoport "github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

type CleanupFunc = func()

type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type VehicleRepoFactory func(t *testing.T) (vehiclerepoport.Repository, CleanupFunc)
type SubscriptionRepoFactory func(t *testing.T) (subscriptionrepoport.Repository, CleanupFunc)
type PurchaseRepoFactory func(t *testing.T) (purchaserepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	older := time.Unix(1000, 0).UTC()
	newer := time.Unix(2000, 0).UTC()

	aID := domain.UserID(uuid.NewString())
	if err := repo.Create(ctx, userrepoport.User{
		ID:        aID,
		Name:      "Alice Johnson",
		Email:     "alice@example.com",
		Status:    domain.UserStatusActive,
		CreatedAt: older,
		UpdatedAt: older,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if _, err := repo.GetByID(ctx, aID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	// ID uniqueness.
	if err := repo.Create(ctx, userrepoport.User{
		ID:        aID,
		Name:      "Alice Again",
		Email:     "alice2@example.com",
		Status:    domain.UserStatusActive,
		CreatedAt: older,
		UpdatedAt: older,
	}); !errors.Is(err, userrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	bID := domain.UserID(uuid.NewString())
	if err := repo.Create(ctx, userrepoport.User{
		ID:        bID,
		Name:      "Bob Stone",
		Email:     "bob@example.com",
		Status:    domain.UserStatusActive,
		CreatedAt: newer,
		UpdatedAt: newer,
	}); err != nil {
		t.Fatalf("Create b: %v", err)
	}

	// Newest first.
	us, err := repo.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(us) != 2 || us[0].ID != bID || us[1].ID != aID {
		t.Fatalf("unexpected ordering: %#v", us)
	}

	// Case-insensitive substring search on name.
	us, err = repo.List(ctx, "aLiCe")
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if len(us) != 1 || us[0].ID != aID {
		t.Fatalf("unexpected search result: %#v", us)
	}

	// LIKE metacharacters in the term match literally, not as wildcards.
	for _, term := range []string{"o%e", "_ob"} {
		us, err = repo.List(ctx, term)
		if err != nil {
			t.Fatalf("List search %q: %v", term, err)
		}
		if len(us) != 0 {
			t.Fatalf("search %q matched: %#v", term, us)
		}
	}

	// Update merge round-trip.
	u, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	phone := "+1-555-0100"
	u.Phone = &phone
	u.Status = domain.UserStatusCanceled
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if got.Phone == nil || *got.Phone != phone || got.Status != domain.UserStatusCanceled || got.Name != "Alice Johnson" {
		t.Fatalf("unexpected user after update: %+v", got)
	}

	if _, err := repo.GetByID(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func RunVehicleRepo(t *testing.T, newUserRepo UserRepoFactory, newRepo VehicleRepoFactory) {
	t.Helper()
	ctx := context.Background()

	users, uCleanup := newUserRepo(t)
	if uCleanup != nil {
		t.Cleanup(uCleanup)
	}
	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(3000, 0).UTC()
	ownerID := seedUser(t, users, "Vera Owner")

	v1 := vehiclerepoport.Vehicle{
		ID:           domain.VehicleID(uuid.NewString()),
		UserID:       ownerID,
		LicensePlate: "ABC-123",
		Make:         "Honda",
		Model:        "Civic",
		Year:         2020,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, v1); err != nil {
		t.Fatalf("Create v1: %v", err)
	}

	// Plate uniqueness across vehicles.
	if err := repo.Create(ctx, vehiclerepoport.Vehicle{
		ID:           domain.VehicleID(uuid.NewString()),
		UserID:       ownerID,
		LicensePlate: "ABC-123",
		Make:         "Toyota",
		Model:        "Corolla",
		Year:         2021,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); !errors.Is(err, vehiclerepoport.ErrPlateTaken) {
		t.Fatalf("expected ErrPlateTaken, got %v", err)
	}

	v2 := vehiclerepoport.Vehicle{
		ID:           domain.VehicleID(uuid.NewString()),
		UserID:       ownerID,
		LicensePlate: "XYZ-999",
		Make:         "Toyota",
		Model:        "Corolla",
		Year:         2021,
		CreatedAt:    now.Add(time.Minute),
		UpdatedAt:    now.Add(time.Minute),
	}
	if err := repo.Create(ctx, v2); err != nil {
		t.Fatalf("Create v2: %v", err)
	}

	// Registration order.
	vs, err := repo.ListByUser(ctx, ownerID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(vs) != 2 || vs[0].ID != v1.ID || vs[1].ID != v2.ID {
		t.Fatalf("unexpected ordering: %#v", vs)
	}

	if _, err := repo.GetByPlate(ctx, "XYZ-999"); err != nil {
		t.Fatalf("GetByPlate: %v", err)
	}

	// Update cannot steal another vehicle's plate.
	v2.LicensePlate = "ABC-123"
	if err := repo.Update(ctx, v2); !errors.Is(err, vehiclerepoport.ErrPlateTaken) {
		t.Fatalf("expected ErrPlateTaken on update, got %v", err)
	}

	// Update round-trip, plate freed after change.
	v2.LicensePlate = "NEW-111"
	v2.Make = "Mazda"
	if err := repo.Update(ctx, v2); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.GetByID(ctx, v2.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LicensePlate != "NEW-111" || got.Make != "Mazda" || got.Model != "Corolla" {
		t.Fatalf("unexpected vehicle after update: %+v", got)
	}
	if _, err := repo.GetByPlate(ctx, "XYZ-999"); !errors.Is(err, vehiclerepoport.ErrNotFound) {
		t.Fatalf("expected freed plate, got %v", err)
	}

	if err := repo.Delete(ctx, v2.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, v2.ID); !errors.Is(err, vehiclerepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

// RunSubscriptionRepo exercises the invariant-bearing writes, including the
// concurrent transfer race. Seeding goes through the user/vehicle factories
// because the SQL adapters enforce those foreign keys.
func RunSubscriptionRepo(t *testing.T, newUserRepo UserRepoFactory, newVehicleRepo VehicleRepoFactory, newRepo SubscriptionRepoFactory) {
	t.Helper()
	ctx := context.Background()

	users, uCleanup := newUserRepo(t)
	if uCleanup != nil {
		t.Cleanup(uCleanup)
	}
	vehicles, vCleanup := newVehicleRepo(t)
	if vCleanup != nil {
		t.Cleanup(vCleanup)
	}
	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	ownerID := seedUser(t, users, "Sub Owner")
	v1 := seedVehicle(t, vehicles, ownerID, "SUB-001")
	v2 := seedVehicle(t, vehicles, ownerID, "SUB-002")
	v3 := seedVehicle(t, vehicles, ownerID, "SUB-003")

	now := time.Unix(5000, 0).UTC()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s1 := subscriptionrepoport.Subscription{
		ID:        domain.SubscriptionID(uuid.NewString()),
		UserID:    ownerID,
		VehicleID: v1,
		Plan:      "Premium",
		Status:    domain.SubscriptionActive,
		StartDate: start,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, s1); err != nil {
		t.Fatalf("Create s1: %v", err)
	}

	// A vehicle with an active subscription rejects any second subscription.
	if err := repo.Create(ctx, subscriptionrepoport.Subscription{
		ID:        domain.SubscriptionID(uuid.NewString()),
		UserID:    ownerID,
		VehicleID: v1,
		Plan:      "Basic",
		Status:    domain.SubscriptionPaused,
		StartDate: start,
		CreatedAt: now,
		UpdatedAt: now,
	}); !errors.Is(err, subscriptionrepoport.ErrVehicleBusy) {
		t.Fatalf("expected ErrVehicleBusy, got %v", err)
	}

	// A paused subscription does not block the vehicle.
	s2 := subscriptionrepoport.Subscription{
		ID:        domain.SubscriptionID(uuid.NewString()),
		UserID:    ownerID,
		VehicleID: v2,
		Plan:      "Basic",
		Status:    domain.SubscriptionPaused,
		StartDate: start,
		CreatedAt: now.Add(time.Minute),
		UpdatedAt: now.Add(time.Minute),
	}
	if err := repo.Create(ctx, s2); err != nil {
		t.Fatalf("Create s2: %v", err)
	}

	// Newest first.
	ss, err := repo.ListByUser(ctx, ownerID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(ss) != 2 || ss[0].ID != s2.ID || ss[1].ID != s1.ID {
		t.Fatalf("unexpected ordering: %#v", ss)
	}

	// Reactivating s2 on v2 is fine; moving it onto v1's slot is not.
	s2.Status = domain.SubscriptionActive
	if err := repo.Update(ctx, s2); err != nil {
		t.Fatalf("Update s2 activate: %v", err)
	}
	if err := repo.TransferVehicle(ctx, s2.ID, v2, v1, now.Add(2*time.Minute)); !errors.Is(err, subscriptionrepoport.ErrVehicleBusy) {
		t.Fatalf("expected ErrVehicleBusy on transfer to covered vehicle, got %v", err)
	}

	// Stale guard: the caller observed a vehicle the subscription no longer has.
	if err := repo.TransferVehicle(ctx, s1.ID, v2, v3, now.Add(2*time.Minute)); !errors.Is(err, subscriptionrepoport.ErrVehicleChanged) {
		t.Fatalf("expected ErrVehicleChanged, got %v", err)
	}

	// Successful transfer keeps identity and plan.
	if err := repo.TransferVehicle(ctx, s1.ID, v1, v3, now.Add(3*time.Minute)); err != nil {
		t.Fatalf("TransferVehicle: %v", err)
	}
	got, err := repo.GetByID(ctx, s1.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.VehicleID != v3 || got.Plan != "Premium" || got.Status != domain.SubscriptionActive {
		t.Fatalf("unexpected subscription after transfer: %+v", got)
	}

	// Concurrent transfers onto one vehicle: exactly one may win.
	target := seedVehicle(t, vehicles, ownerID, "SUB-TGT")
	var wg sync.WaitGroup
	errs := make([]error, 2)
	transfers := []struct {
		id   domain.SubscriptionID
		from domain.VehicleID
	}{
		{s1.ID, v3},
		{s2.ID, v2},
	}
	for i, tr := range transfers {
		wg.Add(1)
		go func(i int, id domain.SubscriptionID, from domain.VehicleID) {
			defer wg.Done()
			errs[i] = repo.TransferVehicle(ctx, id, from, target, now.Add(4*time.Minute))
		}(i, tr.id, tr.from)
	}
	wg.Wait()

	var wins, busy int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, subscriptionrepoport.ErrVehicleBusy):
			busy++
		default:
			t.Fatalf("unexpected transfer error: %v", err)
		}
	}
	if wins != 1 || busy != 1 {
		t.Fatalf("expected exactly one winner, got wins=%d busy=%d", wins, busy)
	}
	onTarget := 0
	for _, id := range []domain.SubscriptionID{s1.ID, s2.ID} {
		cur, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if cur.VehicleID == target {
			onTarget++
		}
	}
	if onTarget != 1 {
		t.Fatalf("expected exactly one subscription on target vehicle, got %d", onTarget)
	}

	// Referential guard input.
	n, err := repo.CountByVehicle(ctx, target)
	if err != nil {
		t.Fatalf("CountByVehicle: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 subscription on target, got %d", n)
	}

	if err := repo.Delete(ctx, s2.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, s2.ID); !errors.Is(err, subscriptionrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func RunPurchaseRepo(t *testing.T, newUserRepo UserRepoFactory, newRepo PurchaseRepoFactory) {
	t.Helper()
	ctx := context.Background()

	users, uCleanup := newUserRepo(t)
	if uCleanup != nil {
		t.Cleanup(uCleanup)
	}
	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	ownerID := seedUser(t, users, "Ledger Owner")
	now := time.Unix(7000, 0).UTC()

	older := purchaserepoport.Purchase{
		ID:           domain.PurchaseID(uuid.NewString()),
		UserID:       ownerID,
		PurchaseDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:       49.99,
		Description:  "January renewal",
		CreatedAt:    now,
	}
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("Create older: %v", err)
	}

	before, err := repo.ListByUser(ctx, ownerID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}

	plan := "Premium"
	newer := purchaserepoport.Purchase{
		ID:           domain.PurchaseID(uuid.NewString()),
		UserID:       ownerID,
		PurchaseDate: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		Amount:       0,
		Description:  "Promo credit",
		Plan:         &plan,
		CreatedAt:    now.Add(time.Minute),
	}
	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("Create newer: %v", err)
	}

	after, err := repo.ListByUser(ctx, ownerID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	// Append-only: exactly one more row, existing rows untouched.
	if len(after) != len(before)+1 {
		t.Fatalf("expected %d rows, got %d", len(before)+1, len(after))
	}
	if after[0].ID != newer.ID || after[1].ID != older.ID {
		t.Fatalf("expected purchase-date descending, got %#v", after)
	}
	if after[1].Amount != 49.99 || after[1].Description != "January renewal" {
		t.Fatalf("existing row changed: %+v", after[1])
	}
	if after[0].Plan == nil || *after[0].Plan != "Premium" {
		t.Fatalf("plan label lost: %+v", after[0])
	}
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Method:   "POST",
		Route:    "/api/subscriptions",
		BodyHash: "hash-1",
	}
	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"s-1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"id":"s-1"}` || got.ContentType != "application/json" || got.StatusCode != 201 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Miss on a different body hash.
	fp2 := fp
	fp2.BodyHash = "hash-2"
	if _, ok, err := store.Get(ctx, fp2); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"id":"s-2"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"id":"s-2"}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}
}

func seedUser(t *testing.T, repo userrepoport.Repository, name string) domain.UserID {
	t.Helper()
	now := time.Unix(100, 0).UTC()
	id := domain.UserID(uuid.NewString())
	if err := repo.Create(context.Background(), userrepoport.User{
		ID:        id,
		Name:      name,
		Email:     uuid.NewString() + "@example.com",
		Status:    domain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedVehicle(t *testing.T, repo vehiclerepoport.Repository, userID domain.UserID, plate string) domain.VehicleID {
	t.Helper()
	now := time.Unix(200, 0).UTC()
	id := domain.VehicleID(uuid.NewString())
	if err := repo.Create(context.Background(), vehiclerepoport.Vehicle{
		ID:           id,
		UserID:       userID,
		LicensePlate: plate,
		Make:         "Honda",
		Model:        "Civic",
		Year:         2020,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return id
}

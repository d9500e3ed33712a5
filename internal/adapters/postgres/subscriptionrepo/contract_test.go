package subscriptionrepo

import (
	"testing"

	"github.com/jdspiral/csr-amp/internal/adapters/contracttest"
	"github.com/jdspiral/csr-amp/internal/adapters/postgres/testutil"
	pguserrepo "github.com/jdspiral/csr-amp/internal/adapters/postgres/userrepo"
	pgvehiclerepo "github.com/jdspiral/csr-amp/internal/adapters/postgres/vehiclerepo"
	subscriptionrepoport "github.com/jdspiral/csr-amp/internal/ports/out/subscriptionrepo"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
	vehiclerepoport "github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

func TestContract_PostgresSubscriptionRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunSubscriptionRepo(
		t,
		func(t *testing.T) (userrepoport.Repository, func()) {
			t.Helper()
			return pguserrepo.NewRepo(pool), nil
		},
		func(t *testing.T) (vehiclerepoport.Repository, func()) {
			t.Helper()
			return pgvehiclerepo.NewRepo(pool), nil
		},
		func(t *testing.T) (subscriptionrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(pool), nil
		},
	)
}

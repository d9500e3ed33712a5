package vehiclerepo

import (
	"testing"

	"github.com/jdspiral/csr-amp/internal/adapters/contracttest"
	pguserrepo "github.com/jdspiral/csr-amp/internal/adapters/postgres/userrepo"
	"github.com/jdspiral/csr-amp/internal/adapters/postgres/testutil"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
	vehiclerepoport "github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

func TestContract_PostgresVehicleRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunVehicleRepo(
		t,
		func(t *testing.T) (userrepoport.Repository, func()) {
			t.Helper()
			return pguserrepo.NewRepo(pool), nil
		},
		func(t *testing.T) (vehiclerepoport.Repository, func()) {
			t.Helper()
			return NewRepo(pool), nil
		},
	)
}

package vehiclerepo

import (
	"testing"

	"github.com/jdspiral/csr-amp/internal/adapters/contracttest"
	memuserrepo "github.com/jdspiral/csr-amp/internal/adapters/memory/userrepo"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
	vehiclerepoport "github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

func TestContract_VehicleRepo(t *testing.T) {
	contracttest.RunVehicleRepo(
		t,
		func(t *testing.T) (userrepoport.Repository, func()) {
			t.Helper()
			return memuserrepo.NewRepo(), nil
		},
		func(t *testing.T) (vehiclerepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
	)
}

package subscriptionrepo

import (
	"testing"

	"github.com/jdspiral/csr-amp/internal/adapters/contracttest"
	memuserrepo "github.com/jdspiral/csr-amp/internal/adapters/memory/userrepo"
	memvehiclerepo "github.com/jdspiral/csr-amp/internal/adapters/memory/vehiclerepo"
	subscriptionrepoport "github.com/jdspiral/csr-amp/internal/ports/out/subscriptionrepo"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
	vehiclerepoport "github.com/jdspiral/csr-amp/internal/ports/out/vehiclerepo"
)

func TestContract_SubscriptionRepo(t *testing.T) {
	contracttest.RunSubscriptionRepo(
		t,
		func(t *testing.T) (userrepoport.Repository, func()) {
			t.Helper()
			return memuserrepo.NewRepo(), nil
		},
		func(t *testing.T) (vehiclerepoport.Repository, func()) {
			t.Helper()
			return memvehiclerepo.NewRepo(), nil
		},
		func(t *testing.T) (subscriptionrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
	)
}

package purchaserepo

import (
	"testing"

	"github.com/jdspiral/csr-amp/internal/adapters/contracttest"
	memuserrepo "github.com/jdspiral/csr-amp/internal/adapters/memory/userrepo"
	purchaserepoport "github.com/jdspiral/csr-amp/internal/ports/out/purchaserepo"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
)

func TestContract_PurchaseRepo(t *testing.T) {
	contracttest.RunPurchaseRepo(
		t,
		func(t *testing.T) (userrepoport.Repository, func()) {
			t.Helper()
			return memuserrepo.NewRepo(), nil
		},
		func(t *testing.T) (purchaserepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
	)
}

package userrepo

import (
	"testing"

	"github.com/jdspiral/csr-amp/internal/adapters/contracttest"
	"github.com/jdspiral/csr-amp/internal/adapters/postgres/testutil"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
)

func TestContract_PostgresUserRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}

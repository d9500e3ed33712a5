package userrepo

import (
	"testing"

	"github.com/jdspiral/csr-amp/internal/adapters/contracttest"
	userrepoport "github.com/jdspiral/csr-amp/internal/ports/out/userrepo"
)

func TestContract_UserRepo(t *testing.T) {
	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}

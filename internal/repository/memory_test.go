package repository_test

import (
	"testing"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return repository.NewMemoryStore()
	})
}

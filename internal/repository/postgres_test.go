package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/database"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository/storetest"
)

func testPostgres(t *testing.T) repository.Store {
	t.Helper()

	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, database.DefaultConfig(url), zerolog.Nop())
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	if _, err := db.Exec(ctx, `DROP TABLE IF EXISTS generations, payments, users`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	t.Cleanup(db.Close)
	return repository.NewPostgresStore(db)
}

func TestPostgresStore(t *testing.T) {
	storetest.Run(t, testPostgres)
}

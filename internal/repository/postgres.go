package repository

import (
	"context"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/database"
)

// PostgresStore is the pgx backed Store
type PostgresStore struct {
	db       *database.DB
	users    *UserRepository
	payments *PaymentRepository
}

// NewPostgresStore wires the repositories over one pool
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{
		db:       db,
		users:    NewUserRepository(db),
		payments: NewPaymentRepository(db),
	}
}

func (s *PostgresStore) Users() UserStore { return s.users }

func (s *PostgresStore) Payments() PaymentStore { return s.payments }

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func (s *PostgresStore) Close(ctx context.Context) error {
	s.db.Close()
	return nil
}

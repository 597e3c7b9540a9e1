package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/database"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

const paymentColumns = `id, user_id, plan_name, amount, currency, payment_id, order_id, status, created_at, updated_at`

// PaymentRepository handles payment database operations
type PaymentRepository struct {
	db *database.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.UserID, string(p.PlanName), p.Amount, p.Currency, p.PaymentID, p.OrderID, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// ListByUser returns a user's payments, newest first
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpdateStatus changes the status only if it still equals from
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus) (*models.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `
		UPDATE payments SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+paymentColumns,
		id, string(from), string(to), time.Now().UTC()))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrConflict
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var (
		p      models.Payment
		plan   string
		status string
	)
	if err := row.Scan(&p.ID, &p.UserID, &plan, &p.Amount, &p.Currency, &p.PaymentID, &p.OrderID, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.PlanName = models.Plan(plan)
	p.Status = models.PaymentStatus(status)
	return &p, nil
}

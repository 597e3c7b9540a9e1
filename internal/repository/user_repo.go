package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/database"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ledger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

// querier is satisfied by both the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const userColumns = `id, email, password_hash, name, google_id, role, plan, plan_price, plan_activated_at,
	credits_balance, credits_total_purchased, credits_total_used,
	images_generated, videos_generated, scenes_generated,
	terms_status, terms_accepted_at, terms_version,
	is_verified, is_active, is_blocked, last_login_at, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	PrepareNewUser(user)

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`
	_, err := r.db.Exec(ctx, query, userArgs(user)...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID, including generation history
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, r.db.Pool, "id = $1", id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return getUser(ctx, r.db.Pool, "email = $1", models.NormalizeEmail(email))
}

// Modify locks the user row for the length of a transaction, so a
// concurrent ConsumeCredits waits for the write instead of being overwritten.
func (r *UserRepository) Modify(ctx context.Context, id string, fn ModifyFunc) (*models.User, error) {
	var user *models.User
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		user, err = getUser(ctx, tx, "id = $1 FOR UPDATE", id)
		if err != nil {
			return err
		}
		if err := fn(user); err != nil {
			return err
		}
		return saveUser(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// saveUser writes every scalar field of a user; created_at is immutable
func saveUser(ctx context.Context, tx pgx.Tx, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET email = $2, password_hash = $3, name = $4, google_id = $5, role = $6, plan = $7,
		    plan_price = $8, plan_activated_at = $9,
		    credits_balance = $10, credits_total_purchased = $11, credits_total_used = $12,
		    images_generated = $13, videos_generated = $14, scenes_generated = $15,
		    terms_status = $16, terms_accepted_at = $17, terms_version = $18,
		    is_verified = $19, is_active = $20, is_blocked = $21, last_login_at = $22,
		    updated_at = $23
		WHERE id = $1
	`
	args := userArgs(user)
	args = append(args[:22], user.UpdatedAt)
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns a page of users, newest first, without history
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, total, nil
}

// ConsumeCredits debits credits with a conditional UPDATE and records the
// generation in the same transaction. The history is pruned to the cap.
func (r *UserRepository) ConsumeCredits(ctx context.Context, userID string, amount int, kind models.MediaKind, rec models.GenerationRecord) (*models.User, error) {
	if amount < 1 {
		return nil, ledger.ErrInvalidAmount
	}

	images, videos := 0, 0
	if kind == models.MediaVideo {
		videos = 1
	} else {
		kind = models.MediaImage
		images = 1
	}

	var user *models.User
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET credits_balance = credits_balance - $2,
			    credits_total_used = credits_total_used + $2,
			    images_generated = images_generated + $3,
			    videos_generated = videos_generated + $4,
			    updated_at = $5
			WHERE id = $1 AND credits_balance >= $2
		`, userID, amount, images, videos, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to debit credits: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check user: %w", err)
			}
			if !exists {
				return ErrNotFound
			}
			return ErrInsufficientCredits
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO generations (id, user_id, kind, mode, source_urls, result_url, prompt, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, rec.ID, userID, string(kind), rec.Mode, nonNilStrings(rec.SourceURLs), rec.ResultURL, rec.Prompt, rec.CreatedAt); err != nil {
			return fmt.Errorf("failed to record generation: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM generations
			WHERE user_id = $1 AND kind = $2 AND seq NOT IN (
				SELECT seq FROM generations
				WHERE user_id = $1 AND kind = $2
				ORDER BY seq DESC
				LIMIT $3
			)
		`, userID, string(kind), ledger.HistoryLimit); err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}

		user, err = getUser(ctx, tx, "id = $1", userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func getUser(ctx context.Context, q querier, where string, arg any) (*models.User, error) {
	user, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.GeneratedImages, err = loadHistory(ctx, q, user.ID, models.MediaImage); err != nil {
		return nil, err
	}
	if user.GeneratedVideos, err = loadHistory(ctx, q, user.ID, models.MediaVideo); err != nil {
		return nil, err
	}

	return user, nil
}

// loadHistory returns the newest entries in insertion order
func loadHistory(ctx context.Context, q querier, userID string, kind models.MediaKind) ([]models.GenerationRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT id, mode, source_urls, result_url, prompt, created_at FROM (
			SELECT seq, id, mode, source_urls, result_url, prompt, created_at
			FROM generations
			WHERE user_id = $1 AND kind = $2
			ORDER BY seq DESC
			LIMIT $3
		) recent ORDER BY seq ASC
	`, userID, string(kind), ledger.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s history: %w", kind, err)
	}
	defer rows.Close()

	history := []models.GenerationRecord{}
	for rows.Next() {
		var rec models.GenerationRecord
		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.SourceURLs, &rec.ResultURL, &rec.Prompt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		history = append(history, rec)
	}
	return history, rows.Err()
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u    models.User
		role string
		plan string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.GoogleID, &role, &plan, &u.PlanPrice, &u.PlanActivatedAt,
		&u.Credits.Balance, &u.Credits.TotalPurchased, &u.Credits.TotalUsed,
		&u.Credits.ImagesGenerated, &u.Credits.VideosGenerated, &u.Credits.ScenesGenerated,
		&u.TermsAccepted.Status, &u.TermsAccepted.AcceptedAt, &u.TermsAccepted.Version,
		&u.IsVerified, &u.IsActive, &u.IsBlocked, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = models.ParseRole(role)
	u.Plan = models.Plan(plan)
	return &u, nil
}

func userArgs(u *models.User) []any {
	return []any{
		u.ID, u.Email, u.PasswordHash, u.Name, u.GoogleID, string(u.Role), string(u.Plan), u.PlanPrice, u.PlanActivatedAt,
		u.Credits.Balance, u.Credits.TotalPurchased, u.Credits.TotalUsed,
		u.Credits.ImagesGenerated, u.Credits.VideosGenerated, u.Credits.ScenesGenerated,
		u.TermsAccepted.Status, u.TermsAccepted.AcceptedAt, u.TermsAccepted.Version,
		u.IsVerified, u.IsActive, u.IsBlocked, u.LastLoginAt, u.CreatedAt, u.UpdatedAt,
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// isUniqueViolation checks if an error is a unique constraint violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/events"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ledger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/metrics"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/plans"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

// CreditsOverride sets credit fields directly. Omitted fields are kept.
type CreditsOverride struct {
	Balance         *int `json:"balance" validate:"omitempty,gte=0"`
	TotalPurchased  *int `json:"totalPurchased" validate:"omitempty,gte=0"`
	TotalUsed       *int `json:"totalUsed" validate:"omitempty,gte=0"`
	ImagesGenerated *int `json:"imagesGenerated" validate:"omitempty,gte=0"`
	VideosGenerated *int `json:"videosGenerated" validate:"omitempty,gte=0"`
	ScenesGenerated *int `json:"scenesGenerated" validate:"omitempty,gte=0"`
}

// PlanOverride moves a user onto a plan with an optional custom price
type PlanOverride struct {
	Plan  string `json:"plan" validate:"required"`
	Price *int   `json:"price" validate:"omitempty,gte=0"`
}

// StatusOverride toggles account flags
type StatusOverride struct {
	IsActive  *bool `json:"isActive"`
	IsBlocked *bool `json:"isBlocked"`
}

// PaymentStatusInput is the body of PATCH /api/admin/payments/{id}/status
type PaymentStatusInput struct {
	Status string `json:"status" validate:"required"`
}

// AdminService holds the admin overrides
type AdminService struct {
	users    repository.UserStore
	payments repository.PaymentStore
	events   events.Publisher
	metrics  *metrics.Metrics
	now      Clock
}

// NewAdminService creates a new admin service
func NewAdminService(store repository.Store, publisher events.Publisher, m *metrics.Metrics) *AdminService {
	return &AdminService{
		users:    store.Users(),
		payments: store.Payments(),
		events:   publisher,
		metrics:  m,
		now:      systemClock,
	}
}

// ListUsers returns a page of users, newest first
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	users, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]*models.User, len(users))
	for i, u := range users {
		out[i] = PublicUser(u)
	}
	return out, total, nil
}

// GetUser returns one user
func (s *AdminService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := loadUser(ctx, s.users, id)
	if err != nil {
		return nil, err
	}
	return PublicUser(user), nil
}

// UpdateCredits overrides credit fields. An explicit balance wins; otherwise
// a changed purchased or used total recomputes the balance.
func (s *AdminService) UpdateCredits(ctx context.Context, actorID, userID string, in CreditsOverride) (*models.User, error) {
	for _, v := range []*int{in.Balance, in.TotalPurchased, in.TotalUsed, in.ImagesGenerated, in.VideosGenerated, in.ScenesGenerated} {
		if v != nil && *v < 0 {
			return nil, apperr.Validation("Credit values cannot be negative")
		}
	}

	user, err := modifyUser(ctx, s.users, userID, func(u *models.User) error {
		c := &u.Credits
		setIf(&c.TotalPurchased, in.TotalPurchased)
		setIf(&c.TotalUsed, in.TotalUsed)
		setIf(&c.ImagesGenerated, in.ImagesGenerated)
		setIf(&c.VideosGenerated, in.VideosGenerated)
		setIf(&c.ScenesGenerated, in.ScenesGenerated)

		switch {
		case in.Balance != nil:
			c.Balance = ledger.Clamp(*in.Balance)
		case in.TotalPurchased != nil || in.TotalUsed != nil:
			c.Balance = ledger.Balance(*c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c := user.Credits

	zerolog.Ctx(ctx).Info().
		Str("admin_id", actorID).
		Str("user_id", user.ID).
		Int("balance", c.Balance).
		Int("total_purchased", c.TotalPurchased).
		Int("total_used", c.TotalUsed).
		Msg("credits overridden")
	return PublicUser(user), nil
}

// UpdatePlan applies a plan change on behalf of a user. The plan's credits
// are granted the same way a self-service selection grants them.
func (s *AdminService) UpdatePlan(ctx context.Context, actorID, userID string, in PlanOverride) (*models.User, error) {
	plan, ok := models.ParsePlan(in.Plan)
	if !ok {
		return nil, apperr.InvalidPlan(in.Plan)
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, apperr.Validation("Price cannot be negative")
	}

	var previous models.Plan
	user, err := modifyUser(ctx, s.users, userID, func(u *models.User) error {
		previous = u.Plan
		ledger.ApplyPlanChange(u, plan, s.now())
		u.PlanPrice = plans.Price(plan)
		if in.Price != nil {
			u.PlanPrice = *in.Price
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPlanChange(string(plan), "admin")
	publish(ctx, s.events, events.TypePlanChanged, user.ID, events.PlanChanged{
		UserID:         user.ID,
		Plan:           string(plan),
		PreviousPlan:   string(previous),
		Direction:      models.PlanChangeDirection(previous, plan),
		Balance:        user.Credits.Balance,
		TotalPurchased: user.Credits.TotalPurchased,
		ByAdmin:        true,
	})
	zerolog.Ctx(ctx).Info().
		Str("admin_id", actorID).
		Str("user_id", user.ID).
		Str("plan", string(plan)).
		Int("price", user.PlanPrice).
		Msg("plan overridden")
	return PublicUser(user), nil
}

// UpdateStatus activates, deactivates, blocks or unblocks an account.
// Admins cannot lock themselves out.
func (s *AdminService) UpdateStatus(ctx context.Context, actorID, userID string, in StatusOverride) (*models.User, error) {
	if in.IsActive == nil && in.IsBlocked == nil {
		return nil, apperr.Validation("Nothing to update", "isActive or isBlocked is required")
	}
	if actorID == userID && ((in.IsActive != nil && !*in.IsActive) || (in.IsBlocked != nil && *in.IsBlocked)) {
		return nil, apperr.Validation("You cannot deactivate or block your own account")
	}

	user, err := modifyUser(ctx, s.users, userID, func(u *models.User) error {
		if in.IsActive != nil {
			u.IsActive = *in.IsActive
		}
		if in.IsBlocked != nil {
			u.IsBlocked = *in.IsBlocked
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("admin_id", actorID).
		Str("user_id", user.ID).
		Bool("is_active", user.IsActive).
		Bool("is_blocked", user.IsBlocked).
		Msg("account status changed")
	return PublicUser(user), nil
}

// UpdatePaymentStatus moves a payment along its lifecycle
func (s *AdminService) UpdatePaymentStatus(ctx context.Context, actorID, paymentID string, in PaymentStatusInput) (*models.Payment, error) {
	next, ok := models.ParsePaymentStatus(in.Status)
	if !ok {
		return nil, apperr.Validation("Invalid payment status", "status must be one of [created, authorized, captured, refunded, failed]")
	}

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Payment")
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	if !payment.Status.CanTransitionTo(next) {
		return nil, apperr.Validation(fmt.Sprintf("Payment cannot move from %s to %s", payment.Status, next))
	}

	updated, err := s.payments.UpdateStatus(ctx, payment.ID, payment.Status, next)
	if err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("admin_id", actorID).
		Str("payment_id", payment.ID).
		Str("from", string(payment.Status)).
		Str("to", string(next)).
		Msg("payment status changed")
	return updated, nil
}

func setIf(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

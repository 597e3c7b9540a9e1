package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/events"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ledger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/metrics"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/plans"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

// SelectPlanInput is the body of POST /api/plans/select. PaymentID and
// OrderID come from the payment gateway checkout when the plan is paid.
type SelectPlanInput struct {
	Plan      string `json:"plan" validate:"required"`
	PaymentID string `json:"paymentId" validate:"omitempty,max=128"`
	OrderID   string `json:"orderId" validate:"omitempty,max=128"`
}

// PlanState is the plan and credit view of a user
type PlanState struct {
	Plan            models.Plan     `json:"plan"`
	Price           int             `json:"price"`
	PlanActivatedAt *time.Time      `json:"planActivatedAt,omitempty"`
	Credits         models.Credits  `json:"credits"`
	Payment         *models.Payment `json:"payment,omitempty"`
}

func planState(u *models.User) *PlanState {
	return &PlanState{
		Plan:            u.Plan,
		Price:           u.PlanPrice,
		PlanActivatedAt: u.PlanActivatedAt,
		Credits:         ledger.View(u.Credits),
	}
}

// PlanService handles plan selection
type PlanService struct {
	users    repository.UserStore
	payments repository.PaymentStore
	events   events.Publisher
	metrics  *metrics.Metrics
	now      Clock
}

// NewPlanService creates a new plan service
func NewPlanService(store repository.Store, publisher events.Publisher, m *metrics.Metrics) *PlanService {
	return &PlanService{
		users:    store.Users(),
		payments: store.Payments(),
		events:   publisher,
		metrics:  m,
		now:      systemClock,
	}
}

// Catalog returns the static plan list with current marked, if any
func (s *PlanService) Catalog(current models.Plan) []plans.Plan {
	all := plans.All()
	for i := range all {
		all[i].Current = current != models.PlanNone && all[i].Name == current
	}
	return all
}

// Current returns the caller's plan and credits
func (s *PlanService) Current(ctx context.Context, userID string) (*PlanState, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	return planState(user), nil
}

// Select moves the caller onto a plan and grants its credits. Paid plans
// leave a payment record behind.
func (s *PlanService) Select(ctx context.Context, userID string, in SelectPlanInput) (*PlanState, error) {
	plan, ok := models.ParsePlan(in.Plan)
	if !ok {
		return nil, apperr.InvalidPlan(in.Plan)
	}

	current, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if plan == models.PlanFree && current.Credits.ImagesGenerated > 0 {
		return nil, errFreePlanUsed()
	}

	price := plans.Price(plan)
	var payment *models.Payment
	if price > 0 {
		payment, err = s.recordPayment(ctx, current.ID, plan, price, in)
		if err != nil {
			return nil, err
		}
	}

	var previous models.Plan
	user, err := modifyUser(ctx, s.users, current.ID, func(u *models.User) error {
		if plan == models.PlanFree && u.Credits.ImagesGenerated > 0 {
			return errFreePlanUsed()
		}
		previous = u.Plan
		ledger.ApplyPlanChange(u, plan, s.now())
		u.PlanPrice = price
		return nil
	})
	if err != nil {
		s.failPayment(ctx, payment)
		return nil, err
	}

	s.metrics.RecordPlanChange(string(plan), "self")
	publish(ctx, s.events, events.TypePlanChanged, user.ID, events.PlanChanged{
		UserID:         user.ID,
		Plan:           string(plan),
		PreviousPlan:   string(previous),
		Direction:      models.PlanChangeDirection(previous, plan),
		Balance:        user.Credits.Balance,
		TotalPurchased: user.Credits.TotalPurchased,
	})
	zerolog.Ctx(ctx).Info().
		Str("user_id", user.ID).
		Str("plan", string(plan)).
		Str("previous_plan", string(previous)).
		Str("direction", models.PlanChangeDirection(previous, plan)).
		Int("balance", user.Credits.Balance).
		Msg("plan selected")

	state := planState(user)
	state.Payment = payment
	return state, nil
}

func errFreePlanUsed() error {
	return apperr.Validation("Free plan already used. Please choose a paid plan")
}

func (s *PlanService) recordPayment(ctx context.Context, userID string, plan models.Plan, price int, in SelectPlanInput) (*models.Payment, error) {
	status := models.PaymentCreated
	if strings.TrimSpace(in.PaymentID) != "" {
		status = models.PaymentCaptured
	}
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		orderID = "order_" + uuid.New().String()
	}

	payment := &models.Payment{
		UserID:    userID,
		PlanName:  plan,
		Amount:    price,
		Currency:  plans.Currency,
		PaymentID: strings.TrimSpace(in.PaymentID),
		OrderID:   orderID,
		Status:    status,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	return payment, nil
}

// failPayment marks a just-created payment failed when the plan change did
// not persist. Captured payments are left for manual refund.
func (s *PlanService) failPayment(ctx context.Context, payment *models.Payment) {
	if payment == nil || !payment.Status.CanTransitionTo(models.PaymentFailed) {
		return
	}
	if _, err := s.payments.UpdateStatus(ctx, payment.ID, payment.Status, models.PaymentFailed); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("payment_id", payment.ID).Msg("failed to mark payment failed")
	}
}

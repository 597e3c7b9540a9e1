// Package storetest is a behavioural suite every repository.Store must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ledger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

// Run executes the suite against stores built by newStore. Each subtest
// gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("Modify", func(t *testing.T) { testModify(t, newStore(t)) })
	t.Run("ModifyKeepsChargeAfterLoad", func(t *testing.T) { testModifyKeepsChargeAfterLoad(t, newStore(t)) })
	t.Run("ModifyConcurrentWithCharges", func(t *testing.T) { testModifyConcurrentWithCharges(t, newStore(t)) })
	t.Run("ConsumeCredits", func(t *testing.T) { testConsumeCredits(t, newStore(t)) })
	t.Run("ConsumeCreditsConcurrent", func(t *testing.T) { testConsumeConcurrent(t, newStore(t)) })
	t.Run("HistoryCap", func(t *testing.T) { testHistoryCap(t, newStore(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("Payments", func(t *testing.T) { testPayments(t, newStore(t)) })
}

func newUser(email string, balance int) *models.User {
	now := time.Now().UTC()
	return &models.User{
		Email:           email,
		Name:            "Test User",
		Role:            models.RoleUser,
		Plan:            models.PlanFree,
		PlanActivatedAt: &now,
		Credits:         models.Credits{Balance: balance, TotalPurchased: balance},
		IsVerified:      true,
		IsActive:        true,
	}
}

func record(mode string) models.GenerationRecord {
	return models.GenerationRecord{
		ID:         uuid.New().String(),
		Mode:       mode,
		SourceURLs: []string{"https://cdn.example.com/in.png"},
		ResultURL:  "https://cdn.example.com/out.png",
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
}

func testCreateAndGet(t *testing.T, s repository.Store) {
	ctx := context.Background()
	users := s.Users()

	u := newUser("  Alice@Example.COM ", 3)
	require.NoError(t, users.Create(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)

	got, err := users.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, 3, got.Credits.Balance)

	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, got.Plan)

	err = users.Create(ctx, newUser("alice@example.com", 3))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testModify(t *testing.T, s repository.Store) {
	ctx := context.Background()
	users := s.Users()

	u := newUser("bob@example.com", 3)
	require.NoError(t, users.Create(ctx, u))
	_, err := users.ConsumeCredits(ctx, u.ID, 1, models.MediaImage, record("image-edit"))
	require.NoError(t, err)

	got, err := users.Modify(ctx, u.ID, func(m *models.User) error {
		assert.Equal(t, 2, m.Credits.Balance)
		m.Plan = models.PlanPro
		m.IsActive = false
		m.GeneratedImages = nil
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, got.Plan)

	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, got.Plan)
	assert.Equal(t, 2, got.Credits.Balance)
	assert.False(t, got.IsActive)
	assert.Len(t, got.GeneratedImages, 1)

	rejected := errors.New("rejected")
	_, err = users.Modify(ctx, u.ID, func(m *models.User) error {
		m.Plan = models.PlanBasic
		return rejected
	})
	assert.ErrorIs(t, err, rejected)
	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, got.Plan)

	_, err = users.Modify(ctx, "ghost", func(m *models.User) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// A charge that lands after a caller read the user must survive the
// caller's plan change.
func testModifyKeepsChargeAfterLoad(t *testing.T, s repository.Store) {
	ctx := context.Background()
	users := s.Users()

	u := newUser("grace@example.com", 3)
	require.NoError(t, users.Create(ctx, u))

	seen, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 3, seen.Credits.Balance)

	_, err = users.ConsumeCredits(ctx, u.ID, 1, models.MediaImage, record("image-edit"))
	require.NoError(t, err)

	got, err := users.Modify(ctx, u.ID, func(m *models.User) error {
		ledger.ApplyPlanChange(m, models.PlanPro, time.Now())
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 203, got.Credits.TotalPurchased)
	assert.Equal(t, 1, got.Credits.TotalUsed)
	assert.Equal(t, 202, got.Credits.Balance)
	assert.Equal(t, 1, got.Credits.ImagesGenerated)
}

func testModifyConcurrentWithCharges(t *testing.T, s repository.Store) {
	ctx := context.Background()
	users := s.Users()

	u := newUser("heidi@example.com", 10)
	require.NoError(t, users.Create(ctx, u))

	const rounds = 5
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := users.ConsumeCredits(ctx, u.ID, 1, models.MediaImage, record("image-edit"))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := users.Modify(ctx, u.ID, func(m *models.User) error {
				ledger.ApplyPlanChange(m, models.PlanBasic, time.Now())
				return nil
			})
			// the document store may give up after repeated version clashes
			if err != nil {
				assert.ErrorIs(t, err, repository.ErrConflict)
			}
		}()
	}
	wg.Wait()

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, rounds, got.Credits.TotalUsed)
	assert.Equal(t, rounds, got.Credits.ImagesGenerated)
	assert.Equal(t, got.Credits.TotalPurchased-rounds, got.Credits.Balance)
	assert.Zero(t, (got.Credits.TotalPurchased-10)%50)
}

func testConsumeCredits(t *testing.T, s repository.Store) {
	ctx := context.Background()
	users := s.Users()

	u := newUser("carol@example.com", 1)
	require.NoError(t, users.Create(ctx, u))

	got, err := users.ConsumeCredits(ctx, u.ID, 1, models.MediaVideo, record("text-to-video"))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Credits.Balance)
	assert.Equal(t, 1, got.Credits.TotalUsed)
	assert.Equal(t, 1, got.Credits.VideosGenerated)
	require.Len(t, got.GeneratedVideos, 1)
	assert.Equal(t, "text-to-video", got.GeneratedVideos[0].Mode)

	_, err = users.ConsumeCredits(ctx, u.ID, 1, models.MediaImage, record("image-edit"))
	assert.ErrorIs(t, err, repository.ErrInsufficientCredits)

	after, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Credits.Balance)
	assert.Empty(t, after.GeneratedImages)

	_, err = users.ConsumeCredits(ctx, "missing", 1, models.MediaImage, record("image-edit"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testConsumeConcurrent(t *testing.T, s repository.Store) {
	ctx := context.Background()
	users := s.Users()

	u := newUser("dave@example.com", 1)
	require.NoError(t, users.Create(ctx, u))

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := users.ConsumeCredits(ctx, u.ID, 1, models.MediaImage, record("image-edit")); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Credits.Balance)
	assert.Len(t, got.GeneratedImages, 1)
}

func testHistoryCap(t *testing.T, s repository.Store) {
	ctx := context.Background()
	users := s.Users()

	u := newUser("erin@example.com", 60)
	require.NoError(t, users.Create(ctx, u))

	var last *models.User
	for i := 0; i < ledger.HistoryLimit+1; i++ {
		rec := record("image-edit")
		rec.Prompt = fmt.Sprintf("prompt %d", i)
		var err error
		last, err = users.ConsumeCredits(ctx, u.ID, 1, models.MediaImage, rec)
		require.NoError(t, err)
	}

	require.Len(t, last.GeneratedImages, ledger.HistoryLimit)
	assert.Equal(t, "prompt 1", last.GeneratedImages[0].Prompt)
	assert.Equal(t, fmt.Sprintf("prompt %d", ledger.HistoryLimit), last.GeneratedImages[ledger.HistoryLimit-1].Prompt)
	assert.Equal(t, 60-ledger.HistoryLimit-1, last.Credits.Balance)
	assert.Equal(t, ledger.HistoryLimit+1, last.Credits.ImagesGenerated)
}

func testList(t *testing.T, s repository.Store) {
	ctx := context.Background()
	users := s.Users()

	for i := 0; i < 3; i++ {
		u := newUser(fmt.Sprintf("user%d@example.com", i), 3)
		u.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second).Truncate(time.Millisecond)
		require.NoError(t, users.Create(ctx, u))
	}

	page, total, err := users.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "user2@example.com", page[0].Email)

	page, _, err = users.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "user0@example.com", page[0].Email)
}

func testPayments(t *testing.T, s repository.Store) {
	ctx := context.Background()

	u := newUser("frank@example.com", 3)
	require.NoError(t, s.Users().Create(ctx, u))

	payments := s.Payments()
	p := &models.Payment{
		UserID:   u.ID,
		PlanName: models.PlanPro,
		Amount:   1499,
		Currency: "INR",
		OrderID:  "order_1",
		Status:   models.PaymentCreated,
	}
	require.NoError(t, payments.Create(ctx, p))
	assert.NotEmpty(t, p.ID)

	updated, err := payments.UpdateStatus(ctx, p.ID, models.PaymentCreated, models.PaymentCaptured)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCaptured, updated.Status)

	_, err = payments.UpdateStatus(ctx, p.ID, models.PaymentCreated, models.PaymentFailed)
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = payments.UpdateStatus(ctx, "missing", models.PaymentCreated, models.PaymentFailed)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	list, err := payments.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.PaymentCaptured, list[0].Status)
}

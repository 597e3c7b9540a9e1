package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/cache"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/events"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/metrics"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/workflow"
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fakeBackend answers every Submit with result/err and counts calls
type fakeBackend struct {
	mu       sync.Mutex
	result   *workflow.Result
	err      error
	calls    int
	payloads []workflow.Payload

	started chan struct{}
	release chan struct{}
}

func (b *fakeBackend) Submit(ctx context.Context, mode workflow.Mode, p workflow.Payload) (*workflow.Result, error) {
	b.mu.Lock()
	b.calls++
	p.Mode = mode
	b.payloads = append(b.payloads, p)
	b.mu.Unlock()

	if b.started != nil {
		b.started <- struct{}{}
	}
	if b.release != nil {
		<-b.release
	}
	return b.result, b.err
}

func (b *fakeBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type testEnv struct {
	store      *repository.MemoryStore
	otps       *cache.MemoryOTPStore
	recorder   *events.Recorder
	metrics    *metrics.Metrics
	backend    *fakeBackend
	accounts   *AccountService
	plans      *PlanService
	generation *GenerationService
	admin      *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    repository.NewMemoryStore(),
		otps:     cache.NewMemoryOTPStore(),
		recorder: &events.Recorder{},
		metrics:  metrics.New(),
		backend:  &fakeBackend{result: &workflow.Result{URL: "https://x/y.png"}},
	}

	jwtService := auth.NewJWTService("test-secret", time.Hour)
	env.accounts = NewAccountService(env.store, env.otps, jwtService, env.recorder, env.metrics, 10*time.Minute)
	env.plans = NewPlanService(env.store, env.recorder, env.metrics)
	env.generation = NewGenerationService(env.store, env.backend, cache.NewMemoryLocker(), env.recorder, env.metrics)
	env.admin = NewAdminService(env.store, env.recorder, env.metrics)

	env.accounts.now = fixedClock
	env.plans.now = fixedClock
	env.generation.now = fixedClock
	env.admin.now = fixedClock
	return env
}

// seedUser stores a verified, active user with the given plan and credits
func (e *testEnv) seedUser(t *testing.T, email string, plan models.Plan, credits models.Credits) *models.User {
	t.Helper()

	activated := fixedNow.Add(-24 * time.Hour)
	user := &models.User{
		Email:           email,
		Name:            "Test User",
		Role:            models.RoleUser,
		Plan:            plan,
		Credits:         credits,
		IsVerified:      true,
		IsActive:        true,
		GeneratedImages: []models.GenerationRecord{},
		GeneratedVideos: []models.GenerationRecord{},
	}
	if plan != models.PlanNone {
		user.PlanActivatedAt = &activated
	}
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

func (e *testEnv) reload(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := e.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// lastOTP returns the code carried by the most recent OTP event
func (e *testEnv) lastOTP(t *testing.T) string {
	t.Helper()
	sent := e.recorder.OfType(events.TypeOTPRequested)
	require.NotEmpty(t, sent)

	var data events.OTPRequested
	require.NoError(t, json.Unmarshal(sent[len(sent)-1].Data, &data))
	return data.OTP
}

func requireAppError(t *testing.T, err error, status int, code string) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %T: %v", err, err)
	require.Equal(t, status, e.Status)
	require.Equal(t, code, e.Code)
	return e
}

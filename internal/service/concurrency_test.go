package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/workflow"
)

// interleavedStore runs hook once, right before the first Modify reaches
// the underlying store
type interleavedStore struct {
	*repository.MemoryStore
	hook func()
	once sync.Once
}

func (s *interleavedStore) Users() repository.UserStore {
	return interleavedUsers{UserStore: s.MemoryStore.Users(), s: s}
}

type interleavedUsers struct {
	repository.UserStore
	s *interleavedStore
}

func (u interleavedUsers) Modify(ctx context.Context, id string, fn repository.ModifyFunc) (*models.User, error) {
	u.s.once.Do(u.s.hook)
	return u.UserStore.Modify(ctx, id, fn)
}

func TestGenerationChargedMidUpdateIsKept(t *testing.T) {
	tests := []struct {
		name          string
		run           func(t *testing.T, store repository.Store, env *testEnv, userID string)
		wantPurchased int
	}{
		{
			name: "plan selection",
			run: func(t *testing.T, store repository.Store, env *testEnv, userID string) {
				svc := NewPlanService(store, env.recorder, env.metrics)
				svc.now = fixedClock
				_, err := svc.Select(context.Background(), userID, SelectPlanInput{Plan: "pro"})
				require.NoError(t, err)
			},
			wantPurchased: 203,
		},
		{
			name: "admin plan override",
			run: func(t *testing.T, store repository.Store, env *testEnv, userID string) {
				svc := NewAdminService(store, env.recorder, env.metrics)
				svc.now = fixedClock
				_, err := svc.UpdatePlan(context.Background(), "admin-1", userID, PlanOverride{Plan: "pro"})
				require.NoError(t, err)
			},
			wantPurchased: 203,
		},
		{
			name: "terms acceptance",
			run: func(t *testing.T, store repository.Store, env *testEnv, userID string) {
				svc := NewAccountService(store, env.otps, nil, env.recorder, env.metrics, 0)
				svc.now = fixedClock
				_, err := svc.AcceptTerms(context.Background(), userID, TermsInput{Version: "v2"})
				require.NoError(t, err)
			},
			wantPurchased: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			user := env.seedUser(t, "race@example.com", models.PlanFree, models.Credits{Balance: 3, TotalPurchased: 3})

			store := &interleavedStore{MemoryStore: env.store}
			store.hook = func() {
				_, err := env.generation.Generate(context.Background(), user.ID, workflow.ModeImageEdit, imageEdit)
				require.NoError(t, err)
			}

			tt.run(t, store, env, user.ID)

			assert.Equal(t, 1, env.backend.Calls())
			stored := env.reload(t, user.ID)
			assert.Equal(t, tt.wantPurchased, stored.Credits.TotalPurchased)
			assert.Equal(t, 1, stored.Credits.TotalUsed)
			assert.Equal(t, tt.wantPurchased-1, stored.Credits.Balance)
			assert.Equal(t, 1, stored.Credits.ImagesGenerated)
			assert.Len(t, stored.GeneratedImages, 1)
		})
	}
}

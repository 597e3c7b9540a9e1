package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ledger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

// MemoryStore keeps everything in process memory. Used for tests and
// STORE_DRIVER=memory in development.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	emails   map[string]string
	payments map[string]*models.Payment
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		emails:   make(map[string]string),
		payments: make(map[string]*models.Payment),
	}
}

func (s *MemoryStore) Users() UserStore { return memoryUsers{s} }

func (s *MemoryStore) Payments() PaymentStore { return memoryPayments{s} }

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

type memoryUsers struct{ s *MemoryStore }

func cloneUser(u *models.User) *models.User {
	c := *u
	c.GeneratedImages = append([]models.GenerationRecord(nil), u.GeneratedImages...)
	c.GeneratedVideos = append([]models.GenerationRecord(nil), u.GeneratedVideos...)
	return &c
}

func (m memoryUsers) Create(ctx context.Context, user *models.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	user.Email = models.NormalizeEmail(user.Email)
	if _, taken := m.s.emails[user.Email]; taken {
		return ErrDuplicate
	}
	PrepareNewUser(user)

	m.s.users[user.ID] = cloneUser(user)
	m.s.emails[user.Email] = user.ID
	return nil
}

func (m memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	u, ok := m.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (m memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	id, ok := m.s.emails[models.NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(m.s.users[id]), nil
}

func (m memoryUsers) Modify(ctx context.Context, id string, fn ModifyFunc) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	existing, ok := m.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := cloneUser(existing)
	if err := fn(next); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(next.Email)
	if owner, taken := m.s.emails[email]; taken && owner != id {
		return nil, ErrDuplicate
	}
	next.ID = id
	next.Email = email
	next.CreatedAt = existing.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	next.GeneratedImages = existing.GeneratedImages
	next.GeneratedVideos = existing.GeneratedVideos

	delete(m.s.emails, existing.Email)
	m.s.emails[email] = id
	m.s.users[id] = next
	return cloneUser(next), nil
}

func (m memoryUsers) List(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	all := make([]*models.User, 0, len(m.s.users))
	for _, u := range m.s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*models.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*models.User, 0, end-offset)
	for _, u := range all[offset:end] {
		page = append(page, cloneUser(u))
	}
	return page, total, nil
}

func (m memoryUsers) ConsumeCredits(ctx context.Context, userID string, amount int, kind models.MediaKind, rec models.GenerationRecord) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}

	next := cloneUser(u)
	if err := ledger.ConsumeCredit(next, amount); err != nil {
		if err == ledger.ErrInsufficientCredits {
			return nil, ErrInsufficientCredits
		}
		return nil, err
	}
	ledger.RecordGeneration(next, kind, rec)
	next.UpdatedAt = time.Now().UTC()

	m.s.users[userID] = next
	return cloneUser(next), nil
}

type memoryPayments struct{ s *MemoryStore }

func (m memoryPayments) Create(ctx context.Context, p *models.Payment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, exists := m.s.payments[p.ID]; exists {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	c := *p
	m.s.payments[p.ID] = &c
	return nil
}

func (m memoryPayments) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	p, ok := m.s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m memoryPayments) ListByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*models.Payment
	for _, p := range m.s.payments {
		if p.UserID == userID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m memoryPayments) UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus) (*models.Payment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	p, ok := m.s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != from {
		return nil, ErrConflict
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()

	c := *p
	return &c, nil
}

// PrepareNewUser fills the defaults every store applies on insert
func PrepareNewUser(user *models.User) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
}

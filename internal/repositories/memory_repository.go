package repositories

import (
	"context"
	"strings"
	"sync"

	"skillswap/internal/models"
)

// memoryTable is a goroutine-safe map that remembers insertion order, so
// listings come back oldest first without sorting. Keys are only ever set by
// insert; update writes through the stored pointer so a caller's id string is
// never kept as a key.
type memoryTable[T any] struct {
	mu    sync.RWMutex
	rows  map[string]*T
	order []string
	clone func(T) T
}

func newMemoryTable[T any](clone func(T) T) *memoryTable[T] {
	return &memoryTable[T]{rows: make(map[string]*T), clone: clone}
}

func (t *memoryTable[T]) list(match func(*T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		row := t.clone(*t.rows[id])
		if match(&row) {
			out = append(out, row)
		}
	}
	return out
}

func (t *memoryTable[T]) get(id string) (*T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stored, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	row := t.clone(*stored)
	return &row, true
}

func (t *memoryTable[T]) find(match func(*T) bool) (*T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range t.order {
		row := t.clone(*t.rows[id])
		if match(&row) {
			return &row, true
		}
	}
	return nil, false
}

// insert stores row under id after guard accepts every existing row. The id
// is cloned so the key never aliases caller memory.
func (t *memoryTable[T]) insert(id string, row T, guard func(existing *T) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if guard != nil {
		for _, existingID := range t.order {
			existing := t.clone(*t.rows[existingID])
			if err := guard(&existing); err != nil {
				return err
			}
		}
	}
	id = strings.Clone(id)
	stored := t.clone(row)
	t.rows[id] = &stored
	t.order = append(t.order, id)
	return nil
}

func (t *memoryTable[T]) update(id string, mutate func(*T)) (*T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stored, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	row := t.clone(*stored)
	mutate(&row)
	*stored = t.clone(row)
	return &row, true
}

func (t *memoryTable[T]) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, existingID := range t.order {
		if existingID == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	table *memoryTable[models.User]
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{table: newMemoryTable(models.User.Clone)}
}

// FindAll returns the users matching filter, oldest first.
func (r *MemoryUserRepository) FindAll(_ context.Context, filter models.UserFilter) ([]models.User, error) {
	return r.table.list(filter.Matches), nil
}

// FindByID returns a user by its ID.
func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.table.get(id)
	if !ok {
		return nil, notFound("user", id)
	}
	return u, nil
}

// FindByEmail returns a user by email, compared case-insensitively.
func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	u, ok := r.table.find(func(u *models.User) bool { return u.Email == email })
	if !ok {
		return nil, notFound("user", email)
	}
	return u, nil
}

// Create adds a new user. The email must not be registered yet.
func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return r.table.insert(user.ID, *user, func(existing *models.User) error {
		if existing.Email == user.Email {
			return emailTaken(user.Email)
		}
		return nil
	})
}

// Update applies patch to the stored user and returns the result.
func (r *MemoryUserRepository) Update(_ context.Context, id string, patch models.UserPatch) (*models.User, error) {
	u, ok := r.table.update(id, func(u *models.User) {
		patch.Apply(u)
		u.UpdatedAt = now()
	})
	if !ok {
		return nil, notFound("user", id)
	}
	return u, nil
}

// Delete removes a user by its ID.
func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	if !r.table.remove(id) {
		return notFound("user", id)
	}
	return nil
}

// MemorySwapRepository is an in-memory implementation of SwapRepository.
type MemorySwapRepository struct {
	table *memoryTable[models.Swap]
}

// NewMemorySwapRepository creates a new instance of MemorySwapRepository.
func NewMemorySwapRepository() *MemorySwapRepository {
	return &MemorySwapRepository{table: newMemoryTable(models.Swap.Clone)}
}

func (r *MemorySwapRepository) FindAll(_ context.Context, filter models.SwapFilter) ([]models.Swap, error) {
	return r.table.list(filter.Matches), nil
}

func (r *MemorySwapRepository) FindByID(_ context.Context, id string) (*models.Swap, error) {
	s, ok := r.table.get(id)
	if !ok {
		return nil, notFound("swap", id)
	}
	return s, nil
}

func (r *MemorySwapRepository) Create(_ context.Context, swap *models.Swap) error {
	return r.table.insert(swap.ID, *swap, nil)
}

func (r *MemorySwapRepository) Update(_ context.Context, id string, patch models.SwapPatch) (*models.Swap, error) {
	s, ok := r.table.update(id, func(s *models.Swap) {
		patch.Apply(s)
		s.UpdatedAt = now()
	})
	if !ok {
		return nil, notFound("swap", id)
	}
	return s, nil
}

func (r *MemorySwapRepository) Delete(_ context.Context, id string) error {
	if !r.table.remove(id) {
		return notFound("swap", id)
	}
	return nil
}

// MemoryMessageRepository is an in-memory implementation of MessageRepository.
type MemoryMessageRepository struct {
	table *memoryTable[models.PlatformMessage]
}

// NewMemoryMessageRepository creates a new instance of MemoryMessageRepository.
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{table: newMemoryTable(models.PlatformMessage.Clone)}
}

func (r *MemoryMessageRepository) FindAll(_ context.Context, filter models.MessageFilter) ([]models.PlatformMessage, error) {
	return r.table.list(filter.Matches), nil
}

func (r *MemoryMessageRepository) FindByID(_ context.Context, id string) (*models.PlatformMessage, error) {
	m, ok := r.table.get(id)
	if !ok {
		return nil, notFound("message", id)
	}
	return m, nil
}

func (r *MemoryMessageRepository) Create(_ context.Context, msg *models.PlatformMessage) error {
	return r.table.insert(msg.ID, *msg, nil)
}

func (r *MemoryMessageRepository) Update(_ context.Context, id string, patch models.MessagePatch) (*models.PlatformMessage, error) {
	m, ok := r.table.update(id, func(m *models.PlatformMessage) {
		patch.Apply(m)
		m.UpdatedAt = now()
	})
	if !ok {
		return nil, notFound("message", id)
	}
	return m, nil
}

func (r *MemoryMessageRepository) Delete(_ context.Context, id string) error {
	if !r.table.remove(id) {
		return notFound("message", id)
	}
	return nil
}

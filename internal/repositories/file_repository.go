package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"skillswap/internal/models"
)

// jsonFile persists a collection as one JSON array. Every call re-reads the
// file, so edits made by hand while the server runs are picked up. Writes go
// through a temp file and rename, so a crash never leaves half a document.
type jsonFile[T any] struct {
	mu   sync.Mutex
	path string
}

func newJSONFile[T any](dir, name string) *jsonFile[T] {
	return &jsonFile[T]{path: filepath.Join(dir, name)}
}

// load must be called with mu held.
func (f *jsonFile[T]) load() ([]T, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	rows := []T{}
	if len(data) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}
	return rows, nil
}

// save must be called with mu held.
func (f *jsonFile[T]) save(rows []T) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

func (f *jsonFile[T]) read() ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// modify runs a read-modify-write cycle under the file lock. fn returns the
// new contents; an error aborts without writing.
func (f *jsonFile[T]) modify(fn func([]T) ([]T, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows, err := f.load()
	if err != nil {
		return err
	}
	rows, err = fn(rows)
	if err != nil {
		return err
	}
	return f.save(rows)
}

func indexWhere[T any](rows []T, match func(*T) bool) int {
	for i := range rows {
		if match(&rows[i]) {
			return i
		}
	}
	return -1
}

func filterRows[T any](rows []T, match func(*T) bool) []T {
	out := make([]T, 0, len(rows))
	for i := range rows {
		if match(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

// FileUserRepository stores users in users.json.
type FileUserRepository struct {
	file *jsonFile[models.User]
}

// NewFileUserRepository creates a repository backed by dir/users.json.
func NewFileUserRepository(dir string) *FileUserRepository {
	return &FileUserRepository{file: newJSONFile[models.User](dir, "users.json")}
}

func (r *FileUserRepository) FindAll(_ context.Context, filter models.UserFilter) ([]models.User, error) {
	rows, err := r.file.read()
	if err != nil {
		return nil, err
	}
	return filterRows(rows, filter.Matches), nil
}

func (r *FileUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	rows, err := r.file.read()
	if err != nil {
		return nil, err
	}
	i := indexWhere(rows, func(u *models.User) bool { return u.ID == id })
	if i < 0 {
		return nil, notFound("user", id)
	}
	return &rows[i], nil
}

func (r *FileUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	rows, err := r.file.read()
	if err != nil {
		return nil, err
	}
	email = models.NormalizeEmail(email)
	i := indexWhere(rows, func(u *models.User) bool { return models.NormalizeEmail(u.Email) == email })
	if i < 0 {
		return nil, notFound("user", email)
	}
	return &rows[i], nil
}

func (r *FileUserRepository) Create(_ context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return r.file.modify(func(rows []models.User) ([]models.User, error) {
		if indexWhere(rows, func(u *models.User) bool { return models.NormalizeEmail(u.Email) == user.Email }) >= 0 {
			return nil, emailTaken(user.Email)
		}
		return append(rows, *user), nil
	})
}

func (r *FileUserRepository) Update(_ context.Context, id string, patch models.UserPatch) (*models.User, error) {
	var updated models.User
	err := r.file.modify(func(rows []models.User) ([]models.User, error) {
		i := indexWhere(rows, func(u *models.User) bool { return u.ID == id })
		if i < 0 {
			return nil, notFound("user", id)
		}
		patch.Apply(&rows[i])
		rows[i].UpdatedAt = now()
		updated = rows[i]
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *FileUserRepository) Delete(_ context.Context, id string) error {
	return r.file.modify(func(rows []models.User) ([]models.User, error) {
		i := indexWhere(rows, func(u *models.User) bool { return u.ID == id })
		if i < 0 {
			return nil, notFound("user", id)
		}
		return append(rows[:i], rows[i+1:]...), nil
	})
}

// FileSwapRepository stores swaps in swaps.json.
type FileSwapRepository struct {
	file *jsonFile[models.Swap]
}

// NewFileSwapRepository creates a repository backed by dir/swaps.json.
func NewFileSwapRepository(dir string) *FileSwapRepository {
	return &FileSwapRepository{file: newJSONFile[models.Swap](dir, "swaps.json")}
}

func (r *FileSwapRepository) FindAll(_ context.Context, filter models.SwapFilter) ([]models.Swap, error) {
	rows, err := r.file.read()
	if err != nil {
		return nil, err
	}
	return filterRows(rows, filter.Matches), nil
}

func (r *FileSwapRepository) FindByID(_ context.Context, id string) (*models.Swap, error) {
	rows, err := r.file.read()
	if err != nil {
		return nil, err
	}
	i := indexWhere(rows, func(s *models.Swap) bool { return s.ID == id })
	if i < 0 {
		return nil, notFound("swap", id)
	}
	return &rows[i], nil
}

func (r *FileSwapRepository) Create(_ context.Context, swap *models.Swap) error {
	return r.file.modify(func(rows []models.Swap) ([]models.Swap, error) {
		return append(rows, *swap), nil
	})
}

func (r *FileSwapRepository) Update(_ context.Context, id string, patch models.SwapPatch) (*models.Swap, error) {
	var updated models.Swap
	err := r.file.modify(func(rows []models.Swap) ([]models.Swap, error) {
		i := indexWhere(rows, func(s *models.Swap) bool { return s.ID == id })
		if i < 0 {
			return nil, notFound("swap", id)
		}
		patch.Apply(&rows[i])
		rows[i].UpdatedAt = now()
		updated = rows[i]
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *FileSwapRepository) Delete(_ context.Context, id string) error {
	return r.file.modify(func(rows []models.Swap) ([]models.Swap, error) {
		i := indexWhere(rows, func(s *models.Swap) bool { return s.ID == id })
		if i < 0 {
			return nil, notFound("swap", id)
		}
		return append(rows[:i], rows[i+1:]...), nil
	})
}

// FileMessageRepository stores platform messages in messages.json.
type FileMessageRepository struct {
	file *jsonFile[models.PlatformMessage]
}

// NewFileMessageRepository creates a repository backed by dir/messages.json.
func NewFileMessageRepository(dir string) *FileMessageRepository {
	return &FileMessageRepository{file: newJSONFile[models.PlatformMessage](dir, "messages.json")}
}

func (r *FileMessageRepository) FindAll(_ context.Context, filter models.MessageFilter) ([]models.PlatformMessage, error) {
	rows, err := r.file.read()
	if err != nil {
		return nil, err
	}
	return filterRows(rows, filter.Matches), nil
}

func (r *FileMessageRepository) FindByID(_ context.Context, id string) (*models.PlatformMessage, error) {
	rows, err := r.file.read()
	if err != nil {
		return nil, err
	}
	i := indexWhere(rows, func(m *models.PlatformMessage) bool { return m.ID == id })
	if i < 0 {
		return nil, notFound("message", id)
	}
	return &rows[i], nil
}

func (r *FileMessageRepository) Create(_ context.Context, msg *models.PlatformMessage) error {
	return r.file.modify(func(rows []models.PlatformMessage) ([]models.PlatformMessage, error) {
		return append(rows, *msg), nil
	})
}

func (r *FileMessageRepository) Update(_ context.Context, id string, patch models.MessagePatch) (*models.PlatformMessage, error) {
	var updated models.PlatformMessage
	err := r.file.modify(func(rows []models.PlatformMessage) ([]models.PlatformMessage, error) {
		i := indexWhere(rows, func(m *models.PlatformMessage) bool { return m.ID == id })
		if i < 0 {
			return nil, notFound("message", id)
		}
		patch.Apply(&rows[i])
		rows[i].UpdatedAt = now()
		updated = rows[i]
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *FileMessageRepository) Delete(_ context.Context, id string) error {
	return r.file.modify(func(rows []models.PlatformMessage) ([]models.PlatformMessage, error) {
		i := indexWhere(rows, func(m *models.PlatformMessage) bool { return m.ID == id })
		if i < 0 {
			return nil, notFound("message", id)
		}
		return append(rows[:i], rows[i+1:]...), nil
	})
}

package repositories

import (
	"context"
	"errors"
	"time"

	"skillswap/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// FindAll retrieves the users matching filter, oldest first.
func (r *GORMUserRepository) FindAll(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	q = whereContains(q, "name", filter.Name)
	q = whereContains(q, "email", filter.Email)
	q = whereContains(q, "location", filter.Location)
	q = whereBool(q, "is_public", filter.IsPublic)
	q = whereBool(q, "is_banned", filter.IsBanned)
	q = whereBool(q, "is_admin", filter.IsAdmin)

	users := []models.User{}
	if err := q.Order(creationOrder).Find(&users).Error; err != nil {
		return nil, gormError(err, "user", "", "list")
	}
	return users, nil
}

// FindByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, gormError(err, "user", id, "get")
	}
	return &user, nil
}

// FindByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, gormError(err, "user", email, "get")
	}
	return &user, nil
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = models.NormalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return emailTaken(user.Email)
		}
		return gormError(err, "user", user.ID, "create")
	}
	return nil
}

// Update loads, patches and saves a user inside one transaction.
func (r *GORMUserRepository) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&user, "id = ?", id).Error; err != nil {
			return err
		}
		patch.Apply(&user)
		user.UpdatedAt = time.Now()
		return updateColumns(tx, &user, userPatchColumns(patch))
	})
	if err != nil {
		return nil, gormError(err, "user", id, "update")
	}
	return &user, nil
}

// Delete deletes a user by its ID from the database.
func (r *GORMUserRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return gormError(res.Error, "user", id, "delete")
	}
	if res.RowsAffected == 0 {
		return notFound("user", id)
	}
	return nil
}

func userPatchColumns(p models.UserPatch) []string {
	return patchColumns(
		field(p.Name != nil, "name"),
		field(p.Bio != nil, "bio"),
		field(p.Location != nil, "location"),
		field(p.ProfilePhoto != nil, "profile_photo"),
		field(p.IsPublic != nil, "is_public"),
		field(p.Availability != nil,
			"availability_weekdays", "availability_weekends", "availability_evenings",
			"availability_mornings", "availability_afternoons"),
		field(p.SkillsOffered != nil, "skills_offered"),
		field(p.SkillsWanted != nil, "skills_wanted"),
		field(p.Rating != nil, "rating_average", "rating_count"),
		field(p.IsAdmin != nil, "is_admin"),
		field(p.IsBanned != nil, "is_banned"),
		field(p.BanReason != nil, "ban_reason"),
		field(p.LastActive != nil, "last_active"),
	)
}

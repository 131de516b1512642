package repositories

import (
	"context"
	"time"

	"skillswap/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMMessageRepository is a GORM implementation of MessageRepository.
type GORMMessageRepository struct {
	db *gorm.DB
}

// NewGORMMessageRepository creates a new instance of GORMMessageRepository.
func NewGORMMessageRepository(db *gorm.DB) *GORMMessageRepository {
	return &GORMMessageRepository{db: db}
}

func (r *GORMMessageRepository) FindAll(ctx context.Context, filter models.MessageFilter) ([]models.PlatformMessage, error) {
	q := r.db.WithContext(ctx).Model(&models.PlatformMessage{})
	q = whereContains(q, "title", filter.Title)
	q = whereEq(q, "type", filter.Type)
	q = whereBool(q, "is_active", filter.IsActive)

	msgs := []models.PlatformMessage{}
	if err := q.Order(creationOrder).Find(&msgs).Error; err != nil {
		return nil, gormError(err, "message", "", "list")
	}
	return msgs, nil
}

func (r *GORMMessageRepository) FindByID(ctx context.Context, id string) (*models.PlatformMessage, error) {
	var msg models.PlatformMessage
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, gormError(err, "message", id, "get")
	}
	return &msg, nil
}

func (r *GORMMessageRepository) Create(ctx context.Context, msg *models.PlatformMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return gormError(err, "message", msg.ID, "create")
	}
	return nil
}

func (r *GORMMessageRepository) Update(ctx context.Context, id string, patch models.MessagePatch) (*models.PlatformMessage, error) {
	var msg models.PlatformMessage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&msg, "id = ?", id).Error; err != nil {
			return err
		}
		patch.Apply(&msg)
		msg.UpdatedAt = time.Now()
		return updateColumns(tx, &msg, messagePatchColumns(patch))
	})
	if err != nil {
		return nil, gormError(err, "message", id, "update")
	}
	return &msg, nil
}

func (r *GORMMessageRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.PlatformMessage{}, "id = ?", id)
	if res.Error != nil {
		return gormError(res.Error, "message", id, "delete")
	}
	if res.RowsAffected == 0 {
		return notFound("message", id)
	}
	return nil
}

func messagePatchColumns(p models.MessagePatch) []string {
	return patchColumns(
		field(p.IsActive != nil, "is_active"),
		field(p.ReadBy != nil, "read_by"),
	)
}

package repositories

import (
	"context"

	"skillswap/internal/models"
)

// MessageRepository defines the interface for platform message data access.
type MessageRepository interface {
	FindAll(ctx context.Context, filter models.MessageFilter) ([]models.PlatformMessage, error)
	FindByID(ctx context.Context, id string) (*models.PlatformMessage, error)
	Create(ctx context.Context, msg *models.PlatformMessage) error
	Update(ctx context.Context, id string, patch models.MessagePatch) (*models.PlatformMessage, error)
	Delete(ctx context.Context, id string) error
}

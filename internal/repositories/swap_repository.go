package repositories

import (
	"context"

	"skillswap/internal/models"
)

// SwapRepository defines the interface for swap data access.
type SwapRepository interface {
	FindAll(ctx context.Context, filter models.SwapFilter) ([]models.Swap, error)
	FindByID(ctx context.Context, id string) (*models.Swap, error)
	Create(ctx context.Context, swap *models.Swap) error
	Update(ctx context.Context, id string, patch models.SwapPatch) (*models.Swap, error)
	Delete(ctx context.Context, id string) error
}

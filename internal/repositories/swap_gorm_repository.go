package repositories

import (
	"context"
	"time"

	"skillswap/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMSwapRepository is a GORM implementation of SwapRepository.
type GORMSwapRepository struct {
	db *gorm.DB
}

// NewGORMSwapRepository creates a new instance of GORMSwapRepository.
func NewGORMSwapRepository(db *gorm.DB) *GORMSwapRepository {
	return &GORMSwapRepository{db: db}
}

func (r *GORMSwapRepository) FindAll(ctx context.Context, filter models.SwapFilter) ([]models.Swap, error) {
	q := r.db.WithContext(ctx).Model(&models.Swap{})
	q = whereEq(q, "requester_id", filter.RequesterID)
	q = whereEq(q, "provider_id", filter.ProviderID)
	if filter.Participant != "" {
		q = q.Where("requester_id = ? OR provider_id = ?", filter.Participant, filter.Participant)
	}
	q = whereEq(q, "status", string(filter.Status))
	q = whereBool(q, "is_reported", filter.IsReported)

	swaps := []models.Swap{}
	if err := q.Order(creationOrder).Find(&swaps).Error; err != nil {
		return nil, gormError(err, "swap", "", "list")
	}
	return swaps, nil
}

func (r *GORMSwapRepository) FindByID(ctx context.Context, id string) (*models.Swap, error) {
	var swap models.Swap
	if err := r.db.WithContext(ctx).First(&swap, "id = ?", id).Error; err != nil {
		return nil, gormError(err, "swap", id, "get")
	}
	return &swap, nil
}

func (r *GORMSwapRepository) Create(ctx context.Context, swap *models.Swap) error {
	if swap.ID == "" {
		swap.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(swap).Error; err != nil {
		return gormError(err, "swap", swap.ID, "create")
	}
	return nil
}

func (r *GORMSwapRepository) Update(ctx context.Context, id string, patch models.SwapPatch) (*models.Swap, error) {
	var swap models.Swap
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&swap, "id = ?", id).Error; err != nil {
			return err
		}
		patch.Apply(&swap)
		swap.UpdatedAt = time.Now()
		return updateColumns(tx, &swap, swapPatchColumns(patch))
	})
	if err != nil {
		return nil, gormError(err, "swap", id, "update")
	}
	return &swap, nil
}

func (r *GORMSwapRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Swap{}, "id = ?", id)
	if res.Error != nil {
		return gormError(res.Error, "swap", id, "delete")
	}
	if res.RowsAffected == 0 {
		return notFound("swap", id)
	}
	return nil
}

func swapPatchColumns(p models.SwapPatch) []string {
	return patchColumns(
		field(p.Status != nil, "status"),
		field(p.RequesterFeedback != nil, "requester_feedback"),
		field(p.ProviderFeedback != nil, "provider_feedback"),
		field(p.AdminNotes != nil, "admin_notes"),
		field(p.IsReported != nil, "is_reported"),
		field(p.ReportReason != nil, "report_reason"),
	)
}

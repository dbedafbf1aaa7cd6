// services/gift_repository.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"crypto-gift-system/models"

	"gorm.io/gorm"
)

// GiftRepository is durable storage for gifts keyed by gift id.
type GiftRepository interface {
	Create(ctx context.Context, gift *models.GiftCard) error
	// FindByID reports found=false with a nil error when the gift does not exist.
	FindByID(ctx context.Context, giftID string) (*models.GiftCard, bool, error)
	UpdateFields(ctx context.Context, giftID string, fields map[string]any) error
	// UpdateFieldsIfStatus applies fields only while the stored status equals expected.
	// updated=false means the condition did not hold (or the gift is gone).
	UpdateFieldsIfStatus(ctx context.Context, giftID string, expected models.GiftStatus, fields map[string]any) (bool, error)
	List(ctx context.Context, status models.GiftStatus, limit int) ([]models.GiftCard, error)
}

// GormGiftRepository stores gifts through GORM.
type GormGiftRepository struct {
	DB *gorm.DB
}

func NewGormGiftRepository(db *gorm.DB) *GormGiftRepository {
	return &GormGiftRepository{DB: db}
}

func (r *GormGiftRepository) Create(ctx context.Context, gift *models.GiftCard) error {
	if err := r.DB.WithContext(ctx).Create(gift).Error; err != nil {
		if isDuplicateKey(err) {
			return newError(CodeDuplicateID, "gift id already exists: "+gift.GiftID, err)
		}
		return err
	}
	return nil
}

func (r *GormGiftRepository) FindByID(ctx context.Context, giftID string) (*models.GiftCard, bool, error) {
	var gift models.GiftCard
	if err := r.DB.WithContext(ctx).Where("gift_id = ?", giftID).First(&gift).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &gift, true, nil
}

func (r *GormGiftRepository) UpdateFields(ctx context.Context, giftID string, fields map[string]any) error {
	return r.DB.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("gift_id = ?", giftID).
		Updates(withUpdatedAt(fields)).Error
}

func (r *GormGiftRepository) UpdateFieldsIfStatus(ctx context.Context, giftID string, expected models.GiftStatus, fields map[string]any) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("gift_id = ? AND status = ?", giftID, expected).
		Updates(withUpdatedAt(fields))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List returns gifts newest first, optionally filtered by status.
func (r *GormGiftRepository) List(ctx context.Context, status models.GiftStatus, limit int) ([]models.GiftCard, error) {
	q := r.DB.WithContext(ctx).Model(&models.GiftCard{}).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var gifts []models.GiftCard
	if err := q.Find(&gifts).Error; err != nil {
		return nil, err
	}
	return gifts, nil
}

func withUpdatedAt(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["updated_at"] = time.Now().UTC()
	return out
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

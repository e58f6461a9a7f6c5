package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/social-platform/internal/model"
)

type MediaRepository interface {
	Create(ctx context.Context, media *model.Media) error
	ListByUser(ctx context.Context, userID string) ([]*model.Media, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Media, error)
	Delete(ctx context.Context, id string) error
}

type mediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) MediaRepository { return &mediaRepository{db: db} }

func (r *mediaRepository) Create(ctx context.Context, media *model.Media) error {
	return r.db.WithContext(ctx).Create(media).Error
}

func (r *mediaRepository) ListByUser(ctx context.Context, userID string) ([]*model.Media, error) {
	var media []*model.Media
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&media).Error
	return media, err
}

func (r *mediaRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Media, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var media []*model.Media
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&media).Error
	return media, err
}

func (r *mediaRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Media{}).Error
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/social-platform/internal/model"
)

type SearchRepository interface {
	// Upsert inserts the projection, treating a duplicate post_id as a
	// no-op so redelivered creation events stay idempotent.
	Upsert(ctx context.Context, doc *model.SearchPost) error
	DeleteByPostID(ctx context.Context, postID string) error
	Search(ctx context.Context, query string, limit int) ([]*model.SearchPost, error)
	ListAll(ctx context.Context) ([]*model.SearchPost, error)
}

type searchRepository struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) SearchRepository { return &searchRepository{db: db} }

func (r *searchRepository) Upsert(ctx context.Context, doc *model.SearchPost) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}},
			DoNothing: true,
		}).
		Create(doc).Error
}

func (r *searchRepository) DeleteByPostID(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&model.SearchPost{}).Error
}

func (r *searchRepository) Search(ctx context.Context, query string, limit int) ([]*model.SearchPost, error) {
	var docs []*model.SearchPost
	err := r.db.WithContext(ctx).
		Where("content LIKE ?", "%"+query+"%").
		Order("created_at DESC").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

func (r *searchRepository) ListAll(ctx context.Context) ([]*model.SearchPost, error) {
	var docs []*model.SearchPost
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

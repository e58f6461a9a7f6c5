package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/internal/event"
	"github.com/d60-Lab/social-platform/internal/model"
	"github.com/d60-Lab/social-platform/internal/repository"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

const searchResultLimit = 10

// SearchService maintains the searchable projection of posts. The projection
// is written only by choreography, never by client request.
type SearchService struct {
	repo repository.SearchRepository
}

func NewSearchService(repo repository.SearchRepository) *SearchService {
	return &SearchService{repo: repo}
}

func (s *SearchService) Search(ctx context.Context, query string) ([]*model.SearchPost, error) {
	return s.repo.Search(ctx, query, searchResultLimit)
}

func (s *SearchService) ListAll(ctx context.Context) ([]*model.SearchPost, error) {
	return s.repo.ListAll(ctx)
}

// HandlePostCreated indexes a new post. The projection is keyed by the source
// post id, so a duplicate delivery collapses into the existing row.
func (s *SearchService) HandlePostCreated(ctx context.Context, payload []byte) error {
	var ev event.PostCreatedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}

	doc := &model.SearchPost{
		ID:        uuid.New().String(),
		PostID:    ev.PostID,
		UserID:    ev.UserID,
		Content:   ev.Content,
		CreatedAt: ev.CreatedAt,
	}
	if err := s.repo.Upsert(ctx, doc); err != nil {
		return err
	}

	logger.Info("post indexed for search", zap.String("post_id", ev.PostID))
	return nil
}

// HandlePostDeleted removes the projection. Deleting an absent row is a
// benign no-op, which keeps redelivery and create/delete races harmless.
func (s *SearchService) HandlePostDeleted(ctx context.Context, payload []byte) error {
	var ev event.PostDeletedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}

	if err := s.repo.DeleteByPostID(ctx, ev.PostID); err != nil {
		return err
	}

	logger.Info("post removed from search index", zap.String("post_id", ev.PostID))
	return nil
}

package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/internal/bus"
	"github.com/d60-Lab/social-platform/internal/cache"
	"github.com/d60-Lab/social-platform/internal/event"
	"github.com/d60-Lab/social-platform/internal/model"
	"github.com/d60-Lab/social-platform/internal/repository"
	"github.com/d60-Lab/social-platform/pkg/errs"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

// PostListing is the cached shape of one listing page.
type PostListing struct {
	Posts       []*model.Post `json:"posts"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	TotalPosts  int64         `json:"totalPosts"`
}

// PostService owns the post lifecycle: persistence, cache consistency and
// event publication. Write order is fixed: persist, then publish, then
// invalidate. Invalidation completes before the response so a client reading
// its own write never sees a pre-write cache entry.
type PostService struct {
	repo  repository.PostRepository
	cache *cache.PostCache
	bus   bus.Bus
}

func NewPostService(repo repository.PostRepository, c *cache.PostCache, b bus.Bus) *PostService {
	return &PostService{repo: repo, cache: c, bus: b}
}

func (s *PostService) Create(ctx context.Context, userID, content string, mediaIDs []string) (*model.Post, error) {
	post := &model.Post{
		ID:       uuid.New().String(),
		UserID:   userID,
		Content:  content,
		MediaIDs: mediaIDs,
	}
	if post.MediaIDs == nil {
		post.MediaIDs = []string{}
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}

	// The post is committed; a publish failure leaves dependent services
	// stale until the next event for this entity. Known consistency gap.
	if err := s.bus.Publish(ctx, event.PostCreated, event.PostCreatedEvent{
		PostID:    post.ID,
		UserID:    post.UserID,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
	}); err != nil {
		logger.Error("publish post.created failed",
			zap.String("post_id", post.ID), zap.Error(err))
	}

	s.invalidate(ctx, post.ID)
	return post, nil
}

func (s *PostService) List(ctx context.Context, page, limit int) (*PostListing, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	key := cache.ListingKey(page, limit)
	var cached PostListing
	if hit := s.cacheGet(ctx, key, &cached); hit {
		return &cached, nil
	}

	posts, err := s.repo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	listing := &PostListing{
		Posts:       posts,
		CurrentPage: page,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		TotalPosts:  total,
	}
	if err := s.cache.SetListing(ctx, key, listing); err != nil {
		logger.Warn("cache listing set failed", zap.Error(err))
	}
	return listing, nil
}

func (s *PostService) Get(ctx context.Context, postID string) (*model.Post, error) {
	key := cache.PostKey(postID)
	var cached model.Post
	if hit := s.cacheGet(ctx, key, &cached); hit {
		return &cached, nil
	}

	post, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetPost(ctx, key, post); err != nil {
		logger.Warn("cache post set failed", zap.String("post_id", postID), zap.Error(err))
	}
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, postID, userID string) error {
	post, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteOwned(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return errs.New(errs.KindNotFound, "post.Delete", "Post not found!")
	}

	if err := s.bus.Publish(ctx, event.PostDeleted, event.PostDeletedEvent{
		PostID:   post.ID,
		UserID:   userID,
		MediaIDs: post.MediaIDs,
	}); err != nil {
		logger.Error("publish post.deleted failed",
			zap.String("post_id", post.ID), zap.Error(err))
	}

	s.invalidate(ctx, postID)
	return nil
}

// cacheGet treats store failures as misses so the read path degrades to the
// source of truth instead of failing the request.
func (s *PostService) cacheGet(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		logger.Warn("cache get failed, falling back to store",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *PostService) invalidate(ctx context.Context, postID string) {
	// Bound the sweep so a slow cache cannot stall the response for long.
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.cache.InvalidatePost(ctx, postID); err != nil {
		logger.Warn("cache invalidation failed",
			zap.String("post_id", postID), zap.Error(err))
	}
}

package service

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/internal/event"
	"github.com/d60-Lab/social-platform/internal/model"
	"github.com/d60-Lab/social-platform/internal/repository"
	"github.com/d60-Lab/social-platform/internal/storage"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

// MediaService uploads blobs and purges them when their owning post dies.
type MediaService struct {
	repo  repository.MediaRepository
	store storage.Store
}

func NewMediaService(repo repository.MediaRepository, store storage.Store) *MediaService {
	return &MediaService{repo: repo, store: store}
}

func (s *MediaService) Upload(ctx context.Context, userID, originalName, mimeType string, r io.Reader) (*model.Media, error) {
	obj, err := s.store.Upload(ctx, originalName, mimeType, r)
	if err != nil {
		return nil, err
	}

	media := &model.Media{
		ID:           uuid.New().String(),
		UserID:       userID,
		Handle:       obj.Handle,
		OriginalName: originalName,
		MimeType:     mimeType,
		URL:          obj.URL,
	}
	if err := s.repo.Create(ctx, media); err != nil {
		// Avoid orphaning the blob when the record write fails.
		if derr := s.store.Delete(ctx, obj.Handle); derr != nil {
			logger.Error("orphaned blob cleanup failed",
				zap.String("handle", obj.Handle), zap.Error(derr))
		}
		return nil, err
	}

	logger.Info("media uploaded",
		zap.String("media_id", media.ID), zap.String("handle", obj.Handle))
	return media, nil
}

func (s *MediaService) List(ctx context.Context, userID string) ([]*model.Media, error) {
	return s.repo.ListByUser(ctx, userID)
}

// HandlePostDeleted is the post.deleted choreography: best-effort fan-out
// over the event's media ids. Each deletion is attempted independently; a
// failure is logged and the loop continues so one bad blob cannot block the
// rest of the purge.
func (s *MediaService) HandlePostDeleted(ctx context.Context, payload []byte) error {
	var ev event.PostDeletedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}

	media, err := s.repo.FindByIDs(ctx, ev.MediaIDs)
	if err != nil {
		return err
	}

	for _, m := range media {
		if err := s.store.Delete(ctx, m.Handle); err != nil {
			logger.Error("blob deletion failed",
				zap.String("media_id", m.ID),
				zap.String("post_id", ev.PostID),
				zap.Error(err))
			continue
		}
		if err := s.repo.Delete(ctx, m.ID); err != nil {
			logger.Error("media record deletion failed",
				zap.String("media_id", m.ID), zap.Error(err))
			continue
		}
		logger.Info("media deleted with its post",
			zap.String("media_id", m.ID), zap.String("post_id", ev.PostID))
	}

	logger.Info("media purge complete", zap.String("post_id", ev.PostID))
	return nil
}

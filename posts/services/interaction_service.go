package services

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/feed/internal/cache"
	"github.com/qolzam/feed/internal/pkg/log"
	postsErrors "github.com/qolzam/feed/posts/errors"
	"github.com/qolzam/feed/posts/models"
	"github.com/qolzam/feed/posts/repository"
	"github.com/qolzam/feed/posts/validation"
)

// interactionService implements InteractionService. It holds no per-post
// state; serialization of concurrent updates is left to the store.
type interactionService struct {
	repo         repository.PostRepository
	cacheService *cache.GenericCacheService
	now          func() time.Time
}

// NewInteractionService creates the like and comment engine
func NewInteractionService(repo repository.PostRepository, cacheService *cache.GenericCacheService) InteractionService {
	return &interactionService{
		repo:         repo,
		cacheService: cacheService,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ToggleLike flips the user's like inside one atomic update
func (s *interactionService) ToggleLike(ctx context.Context, postID, userID uuid.UUID, author models.AuthorSnapshot) ([]models.Like, error) {
	now := s.now()
	var liked bool

	updated, err := s.repo.AtomicUpdate(ctx, postID, func(post *models.Post) error {
		liked = post.ToggleLike(userID, author, now)
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, postsErrors.ErrPostNotFound)
	}

	invalidatePost(ctx, s.cacheService, postID)
	log.Debug("post %s like by %s set to %t", postID, userID, liked)
	return updated.Likes, nil
}

// AddComment appends a comment with a fresh id
func (s *interactionService) AddComment(ctx context.Context, postID, authorID uuid.UUID, author models.AuthorSnapshot, text string) ([]models.Comment, error) {
	if err := validation.ValidateCommentText(text); err != nil {
		return nil, postsErrors.WrapValidationError(postsErrors.ErrValidationFailed, err.Error())
	}

	comment, err := models.NewComment(authorID, author, text, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate comment ID: %w", err)
	}

	updated, err := s.repo.AtomicUpdate(ctx, postID, func(post *models.Post) error {
		post.Comments = append(post.Comments, comment)
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, postsErrors.ErrPostNotFound)
	}

	invalidatePost(ctx, s.cacheService, postID)
	return updated.Comments, nil
}

// RemoveComment deletes a comment after checking that it exists and that
// requesterID wrote it, in that order
func (s *interactionService) RemoveComment(ctx context.Context, postID, commentID, requesterID uuid.UUID) ([]models.Comment, error) {
	updated, err := s.repo.AtomicUpdate(ctx, postID, func(post *models.Post) error {
		comment, ok := post.FindComment(commentID)
		if !ok {
			return postsErrors.ErrCommentNotFound
		}
		if !comment.IsAuthoredBy(requesterID) {
			return postsErrors.ErrCommentUnauthorized
		}
		post.RemoveComment(commentID)
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, postsErrors.ErrCommentNotFound)
	}

	invalidatePost(ctx, s.cacheService, postID)
	return updated.Comments, nil
}

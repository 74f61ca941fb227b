package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/feed/internal/cache"
	"github.com/qolzam/feed/internal/pkg/log"
	platformconfig "github.com/qolzam/feed/internal/platform/config"
	postsErrors "github.com/qolzam/feed/posts/errors"
	"github.com/qolzam/feed/posts/models"
	"github.com/qolzam/feed/posts/repository"
	"github.com/qolzam/feed/posts/validation"
)

// postService implements the PostService interface
type postService struct {
	repo         repository.PostRepository
	cacheService *cache.GenericCacheService
	config       platformconfig.PostsConfig
	now          func() time.Time
}

// NewPostService creates a new instance of the post service.
// cacheService may be nil, in which case every read goes to the store.
func NewPostService(repo repository.PostRepository, cacheService *cache.GenericCacheService, cfg platformconfig.PostsConfig) PostService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 3
	}
	if cfg.MaxPageSize < cfg.PageSize {
		cfg.MaxPageSize = cfg.PageSize
	}
	return &postService{
		repo:         repo,
		cacheService: cacheService,
		config:       cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func postCacheKey(postID uuid.UUID) string {
	return "post:" + postID.String()
}

// mapStoreError translates store sentinels into service errors
func mapStoreError(err error, notFound error) error {
	if errors.Is(err, repository.ErrPostNotFound) {
		return notFound
	}
	return err
}

// CreatePost validates the request and stores a new post with empty likes and comments
func (s *postService) CreatePost(ctx context.Context, ownerID uuid.UUID, author models.AuthorSnapshot, req *models.CreatePostRequest) (*models.Post, error) {
	if err := validation.ValidateCreatePostRequest(req); err != nil {
		return nil, postsErrors.WrapValidationError(postsErrors.ErrValidationFailed, err.Error())
	}

	post, err := models.NewPost(ownerID, author, req.Text, req.Images, req.Location, req.Tags, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate post ID: %w", err)
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	log.InfoWithContext(ctx, "post %s created by %s", post.ObjectId, ownerID)
	return post, nil
}

// GetPost retrieves a post by ID, reading through the cache
func (s *postService) GetPost(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	if s.cacheService.IsEnabled() {
		var cached models.Post
		if err := s.cacheService.GetCached(ctx, postCacheKey(postID), &cached); err == nil {
			return &cached, nil
		}
	}

	// a write committed while the post is loaded bumps the generation, so
	// the stale copy is not cached
	generation := s.cacheService.Generation(postCacheKey(postID))

	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return nil, mapStoreError(err, postsErrors.ErrPostNotFound)
	}

	if s.cacheService.IsEnabled() {
		stored, err := s.cacheService.CacheDataIfCurrent(ctx, postCacheKey(postID), post, generation)
		if err != nil {
			log.WarnWithContext(ctx, "failed to cache post %s: %v", postID, err)
		} else if !stored {
			log.Debug("post %s changed while loading, not cached", postID)
		}
	}
	return post, nil
}

// QueryPosts lists posts newest first, one page at a time
func (s *postService) QueryPosts(ctx context.Context, filter *models.PostQueryFilter) (*models.PostsListResponse, error) {
	if filter == nil {
		filter = &models.PostQueryFilter{}
	}
	if err := validation.ValidatePostQueryFilter(filter, s.config.PageSize, s.config.MaxPageSize); err != nil {
		return nil, postsErrors.WrapValidationError(postsErrors.ErrValidationFailed, err.Error())
	}

	repoFilter := repository.PostFilter{
		OwnerUserID: filter.OwnerUserId,
		Location:    filter.Location,
	}
	offset := (filter.Page - 1) * filter.Limit

	// one extra row tells whether another page exists
	posts, err := s.repo.Find(ctx, repoFilter, filter.Limit+1, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	hasMore := len(posts) > filter.Limit
	if hasMore {
		posts = posts[:filter.Limit]
	}

	return &models.PostsListResponse{
		Posts:   posts,
		Page:    filter.Page,
		Limit:   filter.Limit,
		HasMore: hasMore,
	}, nil
}

// DeletePost removes a post owned by requesterID together with its likes and comments
func (s *postService) DeletePost(ctx context.Context, postID uuid.UUID, requesterID uuid.UUID) error {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return mapStoreError(err, postsErrors.ErrPostNotFound)
	}

	if !post.IsOwnedBy(requesterID) {
		return postsErrors.ErrPostUnauthorized
	}

	if err := s.repo.Delete(ctx, postID); err != nil {
		return mapStoreError(err, postsErrors.ErrPostNotFound)
	}

	invalidatePost(ctx, s.cacheService, postID)
	log.InfoWithContext(ctx, "post %s deleted by %s", postID, requesterID)
	return nil
}

func invalidatePost(ctx context.Context, cacheService *cache.GenericCacheService, postID uuid.UUID) {
	if !cacheService.IsEnabled() {
		return
	}
	if err := cacheService.InvalidateKey(ctx, postCacheKey(postID)); err != nil {
		log.WarnWithContext(ctx, "failed to invalidate cached post %s: %v", postID, err)
	}
}

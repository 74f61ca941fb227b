package services

import (
	"context"

	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/feed/posts/models"
)

// PostService defines the interface for post operations
type PostService interface {
	CreatePost(ctx context.Context, ownerID uuid.UUID, author models.AuthorSnapshot, req *models.CreatePostRequest) (*models.Post, error)
	GetPost(ctx context.Context, postID uuid.UUID) (*models.Post, error)
	QueryPosts(ctx context.Context, filter *models.PostQueryFilter) (*models.PostsListResponse, error)
	DeletePost(ctx context.Context, postID uuid.UUID, requesterID uuid.UUID) error
}

// InteractionService maintains the likes and comments embedded in a post.
// Every method performs a single atomic read-modify-write on the post store.
type InteractionService interface {
	// ToggleLike adds the user's like if absent and removes it otherwise.
	// It returns the resulting like list.
	ToggleLike(ctx context.Context, postID, userID uuid.UUID, author models.AuthorSnapshot) ([]models.Like, error)

	// AddComment appends a comment and returns the resulting comment list
	AddComment(ctx context.Context, postID, authorID uuid.UUID, author models.AuthorSnapshot, text string) ([]models.Comment, error)

	// RemoveComment deletes one comment written by requesterID and returns
	// the remaining comments in their original order
	RemoveComment(ctx context.Context, postID, commentID, requesterID uuid.UUID) ([]models.Comment, error)
}

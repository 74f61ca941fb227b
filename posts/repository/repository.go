// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"errors"

	uuid "github.com/gofrs/uuid"

	postsErrors "github.com/qolzam/feed/posts/errors"
	"github.com/qolzam/feed/posts/models"
)

var (
	// ErrPostNotFound is returned by every store when the id is unknown
	ErrPostNotFound = errors.New("post not found in store")
	// ErrPostExists is returned by Create when the id is already taken
	ErrPostExists = errors.New("post already exists in store")
)

// PostFilter represents filtering criteria for querying posts
type PostFilter struct {
	OwnerUserID *uuid.UUID
	Location    string
}

// Mutator edits a private copy of a post inside AtomicUpdate.
// It may run more than once for a single call when the store retries after
// a concurrent write, so it must depend on its argument only.
type Mutator func(post *models.Post) error

// PostRepository defines the interface for post-specific storage operations.
// Each post is stored as one document with its likes and comments embedded.
type PostRepository interface {
	// Create inserts a new post
	Create(ctx context.Context, post *models.Post) error

	// FindByID retrieves a post by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)

	// Find retrieves posts matching the filter, newest first, with pagination
	Find(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error)

	// AtomicUpdate loads the post, applies mutator to a copy and persists the
	// result as one write. Concurrent updates of the same post are serialized;
	// updates of different posts never contend. A mutator error aborts the
	// write and is returned unchanged.
	AtomicUpdate(ctx context.Context, id uuid.UUID, mutator Mutator) (*models.Post, error)

	// Delete removes the post together with its likes and comments
	Delete(ctx context.Context, id uuid.UUID) error
}

// storeError marks I/O failures as transient. Context errors pass through so
// callers can tell a cancelled request from an unavailable store.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return postsErrors.WrapStoreError(err)
}

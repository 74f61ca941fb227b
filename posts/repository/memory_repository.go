package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/feed/posts/models"
)

type memoryEntry struct {
	mu      sync.Mutex
	post    *models.Post
	deleted bool
}

// memoryRepository keeps posts in process memory. The map lock is only held
// to look entries up; each post carries its own lock for the whole
// read-modify-write cycle.
type memoryRepository struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]*memoryEntry
}

// NewMemoryRepository creates an in-process post store
func NewMemoryRepository() PostRepository {
	return &memoryRepository{
		posts: make(map[uuid.UUID]*memoryEntry),
	}
}

func (r *memoryRepository) entry(id uuid.UUID) (*memoryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.posts[id]
	return e, ok
}

// Create inserts a new post
func (r *memoryRepository) Create(ctx context.Context, post *models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ObjectId]; exists {
		return ErrPostExists
	}
	stored := post.Clone()
	stored.Version = 1
	post.Version = 1
	r.posts[post.ObjectId] = &memoryEntry{post: stored}
	return nil
}

// FindByID retrieves a post by its ID
func (r *memoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, ok := r.entry(id)
	if !ok {
		return nil, ErrPostNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, ErrPostNotFound
	}
	return e.post.Clone(), nil
}

// Find retrieves posts matching the filter, newest first
func (r *memoryRepository) Find(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset cannot be negative: %d", offset)
	}

	r.mu.RLock()
	entries := make([]*memoryEntry, 0, len(r.posts))
	for _, e := range r.posts {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	matched := make([]*models.Post, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && matches(e.post, filter) {
			matched = append(matched, e.post.Clone())
		}
		e.mu.Unlock()
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ObjectId.String() > matched[j].ObjectId.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []*models.Post{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func matches(post *models.Post, filter PostFilter) bool {
	if filter.OwnerUserID != nil && post.OwnerUserId != *filter.OwnerUserID {
		return false
	}
	if filter.Location != "" && post.Location != filter.Location {
		return false
	}
	return true
}

// AtomicUpdate applies mutator under the post's own lock
func (r *memoryRepository) AtomicUpdate(ctx context.Context, id uuid.UUID, mutator Mutator) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, ok := r.entry(id)
	if !ok {
		return nil, ErrPostNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, ErrPostNotFound
	}

	next := e.post.Clone()
	if err := mutator(next); err != nil {
		return nil, err
	}

	// nothing is committed once the caller has gone away
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next.ObjectId = e.post.ObjectId
	next.Version = e.post.Version + 1
	e.post = next
	return next.Clone(), nil
}

// Delete removes the post in a single step. Only the post's own lock is
// waited on; the map lock is taken once the entry is already marked.
func (r *memoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, ok := r.entry(id)
	if !ok {
		return ErrPostNotFound
	}

	// wait for an in-flight update of this post to finish
	e.mu.Lock()
	if e.deleted {
		e.mu.Unlock()
		return ErrPostNotFound
	}
	e.deleted = true
	e.mu.Unlock()

	r.mu.Lock()
	if r.posts[id] == e {
		delete(r.posts, id)
	}
	r.mu.Unlock()
	return nil
}

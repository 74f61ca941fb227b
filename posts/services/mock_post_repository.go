// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"

	uuid "github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/qolzam/feed/posts/models"
	"github.com/qolzam/feed/posts/repository"
)

// MockPostRepository is a mock implementation of PostRepository for testing
type MockPostRepository struct {
	mock.Mock
}

var _ repository.PostRepository = (*MockPostRepository)(nil)

// Create mocks the Create method
func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *MockPostRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post).Clone(), args.Error(1)
}

// Find mocks the Find method
func (m *MockPostRepository) Find(ctx context.Context, filter repository.PostFilter, limit, offset int) ([]*models.Post, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

// AtomicUpdate mocks the AtomicUpdate method. When the expectation returns a
// post, the mutator runs against a copy of it.
func (m *MockPostRepository) AtomicUpdate(ctx context.Context, id uuid.UUID, mutator repository.Mutator) (*models.Post, error) {
	args := m.Called(ctx, id)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	post := args.Get(0).(*models.Post).Clone()
	if err := mutator(post); err != nil {
		return nil, err
	}
	post.Version++
	return post, nil
}

// Delete mocks the Delete method
func (m *MockPostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

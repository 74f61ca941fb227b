package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/qolzam/feed/posts/models"
)

func TestMemoryRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) PostRepository {
		return NewMemoryRepository()
	})
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	post := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now())

	found, err := repo.FindByID(ctx, post.ObjectId)
	require.NoError(t, err)
	found.ToggleLike(uuid.Must(uuid.NewV4()), contractAuthor, time.Now())
	found.Tags[0] = "changed"

	again, err := repo.FindByID(ctx, post.ObjectId)
	require.NoError(t, err)
	assert.Empty(t, again.Likes)
	assert.Equal(t, "tag", again.Tags[0])
}

func TestMemoryRepository_DifferentPostsDoNotContend(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	slow := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now())
	fast := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now())

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := repo.AtomicUpdate(ctx, slow.ObjectId, func(p *models.Post) error {
			close(entered)
			<-release
			return nil
		})
		done <- err
	}()

	<-entered
	_, err := repo.AtomicUpdate(ctx, fast.ObjectId, func(p *models.Post) error {
		p.ToggleLike(uuid.Must(uuid.NewV4()), contractAuthor, time.Now())
		return nil
	})
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
}

func TestMemoryRepository_SamePostIsSerialized(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	post := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now())

	var inside int32
	var overlap int32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := repo.AtomicUpdate(gctx, post.ObjectId, func(p *models.Post) error {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Zero(t, atomic.LoadInt32(&overlap))

	found, err := repo.FindByID(ctx, post.ObjectId)
	require.NoError(t, err)
	assert.Equal(t, post.Version+20, found.Version)
}

func TestMemoryRepository_DeleteWaitsForUpdate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	post := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now())

	entered := make(chan struct{})
	release := make(chan struct{})
	updateDone := make(chan error, 1)
	go func() {
		_, err := repo.AtomicUpdate(ctx, post.ObjectId, func(p *models.Post) error {
			close(entered)
			<-release
			return nil
		})
		updateDone <- err
	}()
	<-entered

	deleteDone := make(chan error, 1)
	go func() { deleteDone <- repo.Delete(ctx, post.ObjectId) }()

	select {
	case <-deleteDone:
		t.Fatal("delete finished while an update held the post")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-updateDone)
	require.NoError(t, <-deleteDone)

	_, err := repo.AtomicUpdate(ctx, post.ObjectId, func(p *models.Post) error { return nil })
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestMemoryRepository_DeleteDoesNotBlockOtherPosts(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	busy := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now())
	other := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now())

	entered := make(chan struct{})
	release := make(chan struct{})
	updateDone := make(chan error, 1)
	go func() {
		_, err := repo.AtomicUpdate(ctx, busy.ObjectId, func(p *models.Post) error {
			close(entered)
			<-release
			return nil
		})
		updateDone <- err
	}()
	<-entered

	deleteDone := make(chan error, 1)
	go func() { deleteDone <- repo.Delete(ctx, busy.ObjectId) }()

	lookupDone := make(chan error, 1)
	go func() {
		if _, err := repo.FindByID(ctx, other.ObjectId); err != nil {
			lookupDone <- err
			return
		}
		post, err := models.NewPost(uuid.Must(uuid.NewV4()), contractAuthor, "text", []string{"a.png"}, "LA", []string{"tag"}, time.Now())
		if err == nil {
			err = repo.Create(ctx, post)
		}
		lookupDone <- err
	}()

	select {
	case err := <-lookupDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("lookup of another post waited on a pending delete")
	}

	close(release)
	require.NoError(t, <-updateDone)
	require.NoError(t, <-deleteDone)
}

func TestMemoryRepository_ConcurrentDeleteReportsNotFoundOnce(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	post := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now())

	var removed, missing int32
	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			switch err := repo.Delete(ctx, post.ObjectId); {
			case err == nil:
				atomic.AddInt32(&removed, 1)
			case errors.Is(err, ErrPostNotFound):
				atomic.AddInt32(&missing, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), removed)
	assert.Equal(t, int32(7), missing)
}

func TestMemoryRepository_NegativeOffset(t *testing.T) {
	repo := NewMemoryRepository()
	seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now())

	_, err := repo.Find(context.Background(), PostFilter{}, 3, -3)
	assert.Error(t, err)
}

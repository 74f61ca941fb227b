package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/qolzam/feed/posts/models"
)

var contractAuthor = models.AuthorSnapshot{Username: "owner", FirstName: "Olive", LastName: "Owner", Avatar: "o.png"}

func seedPost(t *testing.T, repo PostRepository, ownerID uuid.UUID, location string, createdAt time.Time) *models.Post {
	t.Helper()
	post, err := models.NewPost(ownerID, contractAuthor, "text", []string{"a.png"}, location, []string{"tag"}, createdAt)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), post))
	return post
}

// runRepositoryContract exercises the behaviour every PostRepository must share
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) PostRepository) {
	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		post := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now().UTC().Truncate(time.Millisecond))

		found, err := repo.FindByID(ctx, post.ObjectId)
		require.NoError(t, err)
		assert.Equal(t, post.ObjectId, found.ObjectId)
		assert.Equal(t, post.OwnerUserId, found.OwnerUserId)
		assert.Equal(t, post.AuthorSnapshot, found.AuthorSnapshot)
		assert.Equal(t, post.Images, found.Images)
		assert.Empty(t, found.Likes)
		assert.Empty(t, found.Comments)

		assert.ErrorIs(t, repo.Create(ctx, post), ErrPostExists)
	})

	t.Run("find unknown id", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByID(context.Background(), uuid.Must(uuid.NewV4()))
		assert.ErrorIs(t, err, ErrPostNotFound)
	})

	t.Run("atomic update bumps version", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		post := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now().UTC())
		userID := uuid.Must(uuid.NewV4())

		updated, err := repo.AtomicUpdate(ctx, post.ObjectId, func(p *models.Post) error {
			p.ToggleLike(userID, contractAuthor, time.Now().UTC())
			return nil
		})
		require.NoError(t, err)
		assert.True(t, updated.HasLike(userID))

		found, err := repo.FindByID(ctx, post.ObjectId)
		require.NoError(t, err)
		assert.True(t, found.HasLike(userID))
		assert.Greater(t, found.Version, post.Version)
	})

	t.Run("mutator error aborts the write", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		post := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now().UTC())
		errAbort := errors.New("abort")

		_, err := repo.AtomicUpdate(ctx, post.ObjectId, func(p *models.Post) error {
			p.ToggleLike(uuid.Must(uuid.NewV4()), contractAuthor, time.Now())
			return errAbort
		})
		assert.Equal(t, errAbort, err)

		found, err := repo.FindByID(ctx, post.ObjectId)
		require.NoError(t, err)
		assert.Empty(t, found.Likes)
		assert.Equal(t, post.Version, found.Version)
	})

	t.Run("atomic update of unknown id", func(t *testing.T) {
		repo := newRepo(t)
		called := false
		_, err := repo.AtomicUpdate(context.Background(), uuid.Must(uuid.NewV4()), func(p *models.Post) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrPostNotFound)
		assert.False(t, called)
	})

	t.Run("cancelled context leaves no partial state", func(t *testing.T) {
		repo := newRepo(t)
		post := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now().UTC())

		ctx, cancel := context.WithCancel(context.Background())
		_, err := repo.AtomicUpdate(ctx, post.ObjectId, func(p *models.Post) error {
			p.ToggleLike(uuid.Must(uuid.NewV4()), contractAuthor, time.Now())
			cancel()
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)

		found, err := repo.FindByID(context.Background(), post.ObjectId)
		require.NoError(t, err)
		assert.Empty(t, found.Likes)
	})

	t.Run("concurrent toggles by distinct users", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		post := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now().UTC())

		const n = 16
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < n; i++ {
			userID := uuid.Must(uuid.NewV4())
			g.Go(func() error {
				_, err := repo.AtomicUpdate(gctx, post.ObjectId, func(p *models.Post) error {
					p.ToggleLike(userID, contractAuthor, time.Now().UTC())
					return nil
				})
				return err
			})
		}
		require.NoError(t, g.Wait())

		found, err := repo.FindByID(ctx, post.ObjectId)
		require.NoError(t, err)
		assert.Len(t, found.Likes, n)
	})

	t.Run("find filters and orders newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		ownerA := uuid.Must(uuid.NewV4())
		ownerB := uuid.Must(uuid.NewV4())
		base := time.Now().UTC().Truncate(time.Second)

		oldest := seedPost(t, repo, ownerA, "NYC", base.Add(-3*time.Minute))
		middle := seedPost(t, repo, ownerB, "LA", base.Add(-2*time.Minute))
		newest := seedPost(t, repo, ownerA, "LA", base.Add(-1*time.Minute))

		all, err := repo.Find(ctx, PostFilter{}, 10, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, newest.ObjectId, all[0].ObjectId)
		assert.Equal(t, middle.ObjectId, all[1].ObjectId)
		assert.Equal(t, oldest.ObjectId, all[2].ObjectId)

		page, err := repo.Find(ctx, PostFilter{}, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, oldest.ObjectId, page[0].ObjectId)

		byOwner, err := repo.Find(ctx, PostFilter{OwnerUserID: &ownerA}, 10, 0)
		require.NoError(t, err)
		require.Len(t, byOwner, 2)
		assert.Equal(t, newest.ObjectId, byOwner[0].ObjectId)

		byLocation, err := repo.Find(ctx, PostFilter{Location: "LA"}, 10, 0)
		require.NoError(t, err)
		assert.Len(t, byLocation, 2)

		both, err := repo.Find(ctx, PostFilter{OwnerUserID: &ownerB, Location: "LA"}, 10, 0)
		require.NoError(t, err)
		require.Len(t, both, 1)
		assert.Equal(t, middle.ObjectId, both[0].ObjectId)

		none, err := repo.Find(ctx, PostFilter{}, 10, 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		post := seedPost(t, repo, uuid.Must(uuid.NewV4()), "NYC", time.Now().UTC())

		require.NoError(t, repo.Delete(ctx, post.ObjectId))
		_, err := repo.FindByID(ctx, post.ObjectId)
		assert.ErrorIs(t, err, ErrPostNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, post.ObjectId), ErrPostNotFound)
	})
}

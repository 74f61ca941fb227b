package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformconfig "github.com/qolzam/feed/internal/platform/config"
)

func TestNewPostRepositoryFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config", func(t *testing.T) {
		_, _, err := NewPostRepositoryFromConfig(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("memory", func(t *testing.T) {
		cfg := &platformconfig.Config{Database: platformconfig.DatabaseConfig{Type: platformconfig.DatabaseTypeMemory}}
		repo, closeFn, err := NewPostRepositoryFromConfig(ctx, cfg)
		require.NoError(t, err)
		assert.NotNil(t, repo)
		assert.NoError(t, closeFn(ctx))
	})

	t.Run("unsupported type", func(t *testing.T) {
		cfg := &platformconfig.Config{Database: platformconfig.DatabaseConfig{Type: "cassandra"}}
		_, _, err := NewPostRepositoryFromConfig(ctx, cfg)
		assert.ErrorContains(t, err, "unsupported database type")
	})

	t.Run("unreachable mongo", func(t *testing.T) {
		cfg := &platformconfig.Config{Database: platformconfig.DatabaseConfig{
			Type: platformconfig.DatabaseTypeMongo,
			Mongo: platformconfig.MongoDBConfig{
				URI:            "mongodb://127.0.0.1:1",
				Database:       "feed",
				Collection:     "posts",
				ConnectTimeout: 200 * time.Millisecond,
			},
		}}
		repo, closeFn, err := NewPostRepositoryFromConfig(ctx, cfg)
		assert.ErrorContains(t, err, "failed to create mongo client")
		assert.Nil(t, repo)
		assert.Nil(t, closeFn)
	})
}

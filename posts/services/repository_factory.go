// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"fmt"

	"github.com/qolzam/feed/internal/database/migrations"
	"github.com/qolzam/feed/internal/database/mongodb"
	"github.com/qolzam/feed/internal/database/postgres"
	"github.com/qolzam/feed/internal/pkg/log"
	platformconfig "github.com/qolzam/feed/internal/platform/config"
	"github.com/qolzam/feed/posts/repository"
)

// CloseFunc releases the connections held by a repository
type CloseFunc func(ctx context.Context) error

// NewPostRepositoryFromConfig creates the PostRepository selected by DB_TYPE.
// The returned CloseFunc must be called on shutdown.
func NewPostRepositoryFromConfig(ctx context.Context, cfg *platformconfig.Config) (repository.PostRepository, CloseFunc, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	switch cfg.Database.Type {
	case platformconfig.DatabaseTypeMemory:
		log.Warn("using the in-memory post store, data is lost on restart")
		return repository.NewMemoryRepository(), func(context.Context) error { return nil }, nil

	case platformconfig.DatabaseTypePostgres:
		client, err := postgres.NewClient(ctx, cfg.Database.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres client: %w", err)
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := migrations.Up(client.DB().DB); err != nil {
				if closeErr := client.Close(); closeErr != nil {
					log.Warn("failed to close postgres client: %v", closeErr)
				}
				return nil, nil, err
			}
		}
		log.Info("connected to PostgreSQL at %s:%d", cfg.Database.Postgres.Host, cfg.Database.Postgres.Port)
		return repository.NewPostgresRepository(client), func(context.Context) error { return client.Close() }, nil

	case platformconfig.DatabaseTypeMongo:
		client, err := mongodb.NewClient(ctx, cfg.Database.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create mongo client: %w", err)
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			if closeErr := client.Close(ctx); closeErr != nil {
				log.Warn("failed to close mongo client: %v", closeErr)
			}
			return nil, nil, err
		}
		log.Info("connected to MongoDB database %s", cfg.Database.Mongo.Database)
		repo := repository.NewMongoRepository(client.Collection(), repository.MongoOptions{
			MaxRetries: uint64(cfg.Posts.MaxUpdateRetries),
		})
		return repo, client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/qolzam/feed/internal/pkg/log"
	"github.com/qolzam/feed/internal/platform/config"
)

// Client wraps a connected mongo.Client and the configured database
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	cfg      config.MongoDBConfig
}

// ClientOptions translates the service config into driver options
func ClientOptions(cfg config.MongoDBConfig) *options.ClientOptions {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	if cfg.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}
	if cfg.ConnectTimeout > 0 {
		clientOptions.SetConnectTimeout(cfg.ConnectTimeout)
		clientOptions.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	return clientOptions
}

// NewClient connects to MongoDB and verifies the connection
func NewClient(ctx context.Context, cfg config.MongoDBConfig) (*Client, error) {
	client, err := mongo.Connect(ctx, ClientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if disconnectErr := client.Disconnect(context.Background()); disconnectErr != nil {
			log.Warn("failed to disconnect from MongoDB: %v", disconnectErr)
		}
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{
		client:   client,
		database: client.Database(cfg.Database),
		cfg:      cfg,
	}, nil
}

// Collection returns the posts collection
func (c *Client) Collection() *mongo.Collection {
	return c.database.Collection(c.cfg.Collection)
}

// EnsureIndexes creates the indexes the feed queries rely on
func (c *Client) EnsureIndexes(ctx context.Context) error {
	_, err := c.Collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "ownerUserId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "location", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Ping checks that the primary is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
// Close disconnects from the server
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

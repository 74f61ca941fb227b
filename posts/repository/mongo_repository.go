package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qolzam/feed/internal/pkg/log"
	"github.com/qolzam/feed/posts/models"
)

var errVersionConflict = errors.New("post was modified concurrently")

// MongoOptions tunes the optimistic update loop
type MongoOptions struct {
	MaxRetries  uint64
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// mongoRepository stores each post as one document and serializes updates
// through a version check on replace.
type mongoRepository struct {
	collection *mongo.Collection
	opts       MongoOptions
}

type likeDocument struct {
	UserID    string                `bson:"userId"`
	Author    models.AuthorSnapshot `bson:",inline"`
	CreatedAt time.Time             `bson:"createdAt"`
}

type commentDocument struct {
	ID          string                `bson:"objectId"`
	OwnerUserID string                `bson:"ownerUserId"`
	Author      models.AuthorSnapshot `bson:",inline"`
	Text        string                `bson:"text"`
	CreatedAt   time.Time             `bson:"createdAt"`
	CreatedDate int64                 `bson:"createdDate"`
}

// postDocument keeps ids as strings so they stay readable and indexable
type postDocument struct {
	ID          string                `bson:"_id"`
	OwnerUserID string                `bson:"ownerUserId"`
	Author      models.AuthorSnapshot `bson:",inline"`
	Text        string                `bson:"text"`
	Images      []string              `bson:"images"`
	Location    string                `bson:"location"`
	Tags        []string              `bson:"tags"`
	Likes       []likeDocument        `bson:"likes"`
	Comments    []commentDocument     `bson:"comments"`
	CreatedAt   time.Time             `bson:"createdAt"`
	CreatedDate int64                 `bson:"createdDate"`
	Version     int64                 `bson:"version"`
}

// NewMongoRepository creates a MongoDB repository over the given collection
func NewMongoRepository(collection *mongo.Collection, opts MongoOptions) PostRepository {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 8
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 5 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 250 * time.Millisecond
	}
	return &mongoRepository{collection: collection, opts: opts}
}

func toDocument(post *models.Post) *postDocument {
	doc := &postDocument{
		ID:          post.ObjectId.String(),
		OwnerUserID: post.OwnerUserId.String(),
		Author:      post.AuthorSnapshot,
		Text:        post.Text,
		Images:      post.Images,
		Location:    post.Location,
		Tags:        post.Tags,
		Likes:       make([]likeDocument, 0, len(post.Likes)),
		Comments:    make([]commentDocument, 0, len(post.Comments)),
		CreatedAt:   post.CreatedAt,
		CreatedDate: post.CreatedDate,
		Version:     post.Version,
	}
	for _, like := range post.Likes {
		doc.Likes = append(doc.Likes, likeDocument{
			UserID:    like.UserId.String(),
			Author:    like.AuthorSnapshot,
			CreatedAt: like.CreatedAt,
		})
	}
	for _, c := range post.Comments {
		doc.Comments = append(doc.Comments, commentDocument{
			ID:          c.ObjectId.String(),
			OwnerUserID: c.OwnerUserId.String(),
			Author:      c.AuthorSnapshot,
			Text:        c.Text,
			CreatedAt:   c.CreatedAt,
			CreatedDate: c.CreatedDate,
		})
	}
	return doc
}

func (doc *postDocument) toPost() (*models.Post, error) {
	id, err := uuid.FromString(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid post id %q: %w", doc.ID, err)
	}
	ownerID, err := uuid.FromString(doc.OwnerUserID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id on post %s: %w", doc.ID, err)
	}

	post := &models.Post{
		ObjectId:       id,
		OwnerUserId:    ownerID,
		AuthorSnapshot: doc.Author,
		Text:           doc.Text,
		Images:         doc.Images,
		Location:       doc.Location,
		Tags:           doc.Tags,
		Likes:          make([]models.Like, 0, len(doc.Likes)),
		Comments:       make([]models.Comment, 0, len(doc.Comments)),
		CreatedAt:      doc.CreatedAt,
		CreatedDate:    doc.CreatedDate,
		Version:        doc.Version,
	}
	for _, l := range doc.Likes {
		userID, err := uuid.FromString(l.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid like user id on post %s: %w", doc.ID, err)
		}
		post.Likes = append(post.Likes, models.Like{UserId: userID, AuthorSnapshot: l.Author, CreatedAt: l.CreatedAt})
	}
	for _, c := range doc.Comments {
		commentID, err := uuid.FromString(c.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid comment id on post %s: %w", doc.ID, err)
		}
		authorID, err := uuid.FromString(c.OwnerUserID)
		if err != nil {
			return nil, fmt.Errorf("invalid comment author on post %s: %w", doc.ID, err)
		}
		post.Comments = append(post.Comments, models.Comment{
			ObjectId:       commentID,
			OwnerUserId:    authorID,
			AuthorSnapshot: c.Author,
			Text:           c.Text,
			CreatedAt:      c.CreatedAt,
			CreatedDate:    c.CreatedDate,
		})
	}
	return post, nil
}

// Create inserts a new post
func (r *mongoRepository) Create(ctx context.Context, post *models.Post) error {
	post.Version = 1
	if _, err := r.collection.InsertOne(ctx, toDocument(post)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrPostExists
		}
		return storeError(fmt.Errorf("failed to insert post: %w", err))
	}
	return nil
}

// FindByID retrieves a post by its ID
func (r *mongoRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var doc postDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, storeError(fmt.Errorf("failed to find post: %w", err))
	}
	return doc.toPost()
}

// Find retrieves posts matching the filter, newest first
func (r *mongoRepository) Find(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error) {
	query := bson.M{}
	if filter.OwnerUserID != nil {
		query["ownerUserId"] = filter.OwnerUserID.String()
	}
	if filter.Location != "" {
		query["location"] = filter.Location
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, storeError(fmt.Errorf("failed to find posts: %w", err))
	}
	defer cursor.Close(ctx)

	var docs []postDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError(fmt.Errorf("failed to decode posts: %w", err))
	}

	result := make([]*models.Post, 0, len(docs))
	for i := range docs {
		post, err := docs[i].toPost()
		if err != nil {
			return nil, err
		}
		result = append(result, post)
	}
	return result, nil
}

func (r *mongoRepository) backoff() retry.Backoff {
	b := retry.NewExponential(r.opts.BaseBackoff)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithCappedDuration(r.opts.MaxBackoff, b)
	return retry.WithMaxRetries(r.opts.MaxRetries, b)
}

// AtomicUpdate replaces the document only if its version is unchanged since
// it was read. On a version mismatch the read and the mutator are repeated.
func (r *mongoRepository) AtomicUpdate(ctx context.Context, id uuid.UUID, mutator Mutator) (*models.Post, error) {
	var updated *models.Post
	attempt := 0

	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}

		next := current.Clone()
		if err := mutator(next); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		next.ObjectId = current.ObjectId
		next.Version = current.Version + 1

		result, err := r.collection.ReplaceOne(ctx,
			bson.M{"_id": id.String(), "version": current.Version},
			toDocument(next))
		if err != nil {
			return storeError(fmt.Errorf("failed to replace post: %w", err))
		}
		if result.MatchedCount == 0 {
			log.Debug("version conflict on post %s (attempt %d)", id, attempt)
			return retry.RetryableError(errVersionConflict)
		}

		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, errVersionConflict) {
			return nil, storeError(fmt.Errorf("giving up after %d attempts: %w", attempt, err))
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes the document holding the post and its sub-collections
func (r *mongoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return storeError(fmt.Errorf("failed to delete post: %w", err))
	}
	if result.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/qolzam/feed/internal/database/postgres"
	"github.com/qolzam/feed/posts/models"
)

const uniqueViolation = "23505"

type txKey struct{}

// postgresRepository implements PostRepository with the post stored as a
// JSONB document plus the columns the feed queries filter and sort on.
type postgresRepository struct {
	client *postgres.Client
}

// postRow is the on-disk shape of a post
type postRow struct {
	ID          uuid.UUID `db:"id"`
	OwnerUserID uuid.UUID `db:"owner_user_id"`
	Location    string    `db:"location"`
	CreatedAt   time.Time `db:"created_at"`
	CreatedDate int64     `db:"created_date"`
	Version     int64     `db:"version"`
	Document    []byte    `db:"document"`
}

// NewPostgresRepository creates a new PostgreSQL repository for posts
func NewPostgresRepository(client *postgres.Client) PostRepository {
	return &postgresRepository{client: client}
}

// getExecutor returns either the transaction from context or the DB connection
func (r *postgresRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return r.client.DB()
}

func toRow(post *models.Post) (*postRow, error) {
	document, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("failed to encode post: %w", err)
	}
	return &postRow{
		ID:          post.ObjectId,
		OwnerUserID: post.OwnerUserId,
		Location:    post.Location,
		CreatedAt:   post.CreatedAt,
		CreatedDate: post.CreatedDate,
		Version:     post.Version,
		Document:    document,
	}, nil
}

func (row *postRow) toPost() (*models.Post, error) {
	var post models.Post
	if err := json.Unmarshal(row.Document, &post); err != nil {
		return nil, fmt.Errorf("failed to decode post %s: %w", row.ID, err)
	}
	post.ObjectId = row.ID
	post.Version = row.Version
	if post.Likes == nil {
		post.Likes = []models.Like{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	return &post, nil
}

// Create inserts a new post
func (r *postgresRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, owner_user_id, location, created_at, created_date, version, document)
		VALUES (:id, :owner_user_id, :location, :created_at, :created_date, :version, :document)`

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.CreatedDate == 0 {
		post.CreatedDate = post.CreatedAt.Unix()
	}
	post.Version = 1

	row, err := toRow(post)
	if err != nil {
		return err
	}

	if _, err := sqlx.NamedExecContext(ctx, r.getExecutor(ctx), query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrPostExists
		}
		return storeError(fmt.Errorf("failed to insert post: %w", err))
	}
	return nil
}

// FindByID retrieves a post by its ID
func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return r.findByID(ctx, id, false)
}

func (r *postgresRepository) findByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Post, error) {
	query := `
		SELECT id, owner_user_id, location, created_at, created_date, version, document
		FROM posts
		WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var row postRow
	if err := sqlx.GetContext(ctx, r.getExecutor(ctx), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, storeError(fmt.Errorf("failed to find post: %w", err))
	}
	return row.toPost()
}

// Find retrieves posts matching the filter criteria with pagination
func (r *postgresRepository) Find(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error) {
	query, args := buildFindQuery(filter, limit, offset)

	var rows []postRow
	if err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &rows, query, args...); err != nil {
		return nil, storeError(fmt.Errorf("failed to find posts: %w", err))
	}

	result := make([]*models.Post, 0, len(rows))
	for i := range rows {
		post, err := rows[i].toPost()
		if err != nil {
			return nil, err
		}
		result = append(result, post)
	}
	return result, nil
}

// buildFindQuery constructs a SQL query with WHERE clause based on filter criteria
func buildFindQuery(filter PostFilter, limit, offset int) (string, []interface{}) {
	query := `
		SELECT id, owner_user_id, location, created_at, created_date, version, document
		FROM posts
		WHERE 1=1`

	var args []interface{}
	argIndex := 1

	if filter.OwnerUserID != nil {
		query += fmt.Sprintf(" AND owner_user_id = $%d", argIndex)
		args = append(args, *filter.OwnerUserID)
		argIndex++
	}

	if filter.Location != "" {
		query += fmt.Sprintf(" AND location = $%d", argIndex)
		args = append(args, filter.Location)
		argIndex++
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	return query, args
}

// AtomicUpdate locks the post row for the duration of one transaction
func (r *postgresRepository) AtomicUpdate(ctx context.Context, id uuid.UUID, mutator Mutator) (*models.Post, error) {
	var updated *models.Post

	err := r.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := r.findByID(txCtx, id, true)
		if err != nil {
			return err
		}

		next := current.Clone()
		if err := mutator(next); err != nil {
			return err
		}
		if err := txCtx.Err(); err != nil {
			return err
		}

		next.ObjectId = current.ObjectId
		next.Version = current.Version + 1
		row, err := toRow(next)
		if err != nil {
			return err
		}

		query := `UPDATE posts SET document = $1, version = $2 WHERE id = $3`
		if _, err := r.getExecutor(txCtx).ExecContext(txCtx, query, row.Document, row.Version, row.ID); err != nil {
			return storeError(fmt.Errorf("failed to update post: %w", err))
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the post row. Likes and comments live inside the row.
func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return storeError(fmt.Errorf("failed to delete post: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storeError(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// WithTransaction executes a function within a database transaction.
// The transaction travels in the context so repository calls made by fn
// join it.
func (r *postgresRepository) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.client.BeginTxx(ctx, nil)
	if err != nil {
		return storeError(fmt.Errorf("failed to begin transaction: %w", err))
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

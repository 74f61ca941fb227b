// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/feed/internal/database/migrations"
	"github.com/qolzam/feed/internal/database/postgres"
	"github.com/qolzam/feed/internal/testutil"
)

func TestBuildFindQuery(t *testing.T) {
	ownerID := uuid.Must(uuid.NewV4())

	query, args := buildFindQuery(PostFilter{}, 3, 6)
	assert.NotContains(t, query, "owner_user_id =")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(query), "ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2"))
	assert.Equal(t, []interface{}{3, 6}, args)

	query, args = buildFindQuery(PostFilter{OwnerUserID: &ownerID, Location: "NYC"}, 10, 0)
	assert.Contains(t, query, "AND owner_user_id = $1")
	assert.Contains(t, query, "AND location = $2")
	assert.Contains(t, query, "LIMIT $3 OFFSET $4")
	assert.Equal(t, []interface{}{ownerID, "NYC", 10, 0}, args)
}

// TestPostgresRepository_Integration runs the store contract against a real
// database. Set RUN_DB_TESTS=1 and the POSTGRES_* variables to enable it.
func TestPostgresRepository_Integration(t *testing.T) {
	if !testutil.ShouldRunDatabaseTests() {
		t.Skip("set RUN_DB_TESTS=1 to run database tests")
	}
	cfg := testutil.PostgresTestConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := postgres.NewClient(ctx, cfg.Database.Postgres)
	if err != nil {
		t.Skipf("PostgreSQL not available, skipping test: %v", err)
	}
	defer client.Close()

	require.NoError(t, migrations.Up(client.DB().DB))

	runRepositoryContract(t, func(t *testing.T) PostRepository {
		_, err := client.DB().ExecContext(context.Background(), `TRUNCATE posts`)
		require.NoError(t, err)
		return NewPostgresRepository(client)
	})
}

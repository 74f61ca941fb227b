package posts

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/feed/internal/cache"
	platformconfig "github.com/qolzam/feed/internal/platform/config"
	"github.com/qolzam/feed/internal/server"
	"github.com/qolzam/feed/internal/testutil"
	"github.com/qolzam/feed/internal/types"
	postsErrors "github.com/qolzam/feed/posts/errors"
	"github.com/qolzam/feed/posts/handlers"
	"github.com/qolzam/feed/posts/models"
	"github.com/qolzam/feed/posts/repository"
	"github.com/qolzam/feed/posts/services"
)

type testEnv struct {
	helper     *testutil.HTTPHelper
	privateKey string
	cfg        *platformconfig.Config
}

// newTestEnv assembles the full HTTP stack over the in-memory store
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	pubPEM, privPEM := testutil.GenerateECDSAKeyPairPEM(t)
	cfg := testutil.NewTestConfig(t, pubPEM, nil)

	cacheService, err := cache.NewCacheService(cfg.Cache)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheService.Close() })

	repo := repository.NewMemoryRepository()
	postService := services.NewPostService(repo, cacheService, cfg.Posts)
	interactionService := services.NewInteractionService(repo, cacheService)

	app := server.New(cfg.Server)
	RegisterRoutes(app, &PostsHandlers{
		PostHandler: handlers.NewPostHandler(postService, interactionService),
	}, cfg)

	return &testEnv{helper: testutil.NewHTTPHelper(t, app), privateKey: privPEM, cfg: cfg}
}

func (e *testEnv) token(t *testing.T, user types.UserContext) string {
	t.Helper()
	token, err := testutil.GenerateTestJWT(e.privateKey, user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) createPost(t *testing.T, token, location string) *models.Post {
	t.Helper()
	resp := e.helper.NewRequest(http.MethodPost, "/posts", models.CreatePostRequest{
		Text:     "hello from " + location,
		Images:   []string{"https://cdn.example.com/a.png"},
		Location: location,
		Tags:     []string{"travel"},
	}).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body models.CreatePostResponse
	testutil.DecodeJSON(t, resp, &body)
	return body.Post
}

func TestPostRoutingPrecedence(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUserContext("alice")
	token := env.token(t, alice)
	post := env.createPost(t, token, "NYC")

	tests := []struct {
		name   string
		method string
		path   string
		auth   bool
		status int
	}{
		{"health is public", http.MethodGet, "/health", false, http.StatusOK},
		{"user listing is public", http.MethodGet, "/posts/user/" + alice.UserID.String(), false, http.StatusOK},
		{"user listing rejects non-uuid", http.MethodGet, "/posts/user/alice", false, http.StatusNotFound},
		{"feed requires auth", http.MethodGet, "/posts", false, http.StatusUnauthorized},
		{"get requires auth", http.MethodGet, "/posts/" + post.ObjectId.String(), false, http.StatusUnauthorized},
		{"location is not taken as a post id", http.MethodGet, "/posts/location/NYC", true, http.StatusOK},
		{"non-uuid post id", http.MethodGet, "/posts/not-a-uuid", true, http.StatusNotFound},
		{"non-uuid comment id", http.MethodDelete, "/posts/comment/" + post.ObjectId.String() + "/nope", true, http.StatusNotFound},
		{"get by id", http.MethodGet, "/posts/" + post.ObjectId.String(), true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := env.helper.NewRequest(tt.method, tt.path, nil)
			if tt.auth {
				req = req.WithJWTAuth(token)
			}
			resp := req.Send()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestCookieAuthentication(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, testutil.CreateTestUserContext("carol"))

	resp := env.helper.NewRequest(http.MethodGet, "/posts", nil).WithCookieAuth(token).Send()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFeedPagination(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateTestUserContext("alice")
	bob := testutil.CreateTestUserContext("bob")
	aliceToken, bobToken := env.token(t, alice), env.token(t, bob)

	for i := 0; i < 4; i++ {
		env.createPost(t, aliceToken, "NYC")
	}
	env.createPost(t, bobToken, "Paris")

	t.Run("default page size", func(t *testing.T) {
		resp := env.helper.NewRequest(http.MethodGet, "/posts?page=1", nil).WithJWTAuth(bobToken).Send()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page models.PostsListResponse
		testutil.DecodeJSON(t, resp, &page)
		assert.Len(t, page.Posts, 3)
		assert.True(t, page.HasMore)
	})

	t.Run("by user", func(t *testing.T) {
		resp := env.helper.NewRequest(http.MethodGet, fmt.Sprintf("/posts/user/%s?limit=10", alice.UserID), nil).Send()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page models.PostsListResponse
		testutil.DecodeJSON(t, resp, &page)
		require.Len(t, page.Posts, 4)
		assert.False(t, page.HasMore)
		for _, p := range page.Posts {
			assert.Equal(t, alice.UserID, p.OwnerUserId)
		}
		assert.False(t, page.Posts[0].CreatedAt.Before(page.Posts[3].CreatedAt))
	})

	t.Run("by location", func(t *testing.T) {
		resp := env.helper.NewRequest(http.MethodGet, "/posts/location/Paris", nil).WithJWTAuth(aliceToken).Send()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page models.PostsListResponse
		testutil.DecodeJSON(t, resp, &page)
		require.Len(t, page.Posts, 1)
		assert.Equal(t, bob.UserID, page.Posts[0].OwnerUserId)
	})
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, testutil.CreateTestUserContext("alice"))

	resp := env.helper.NewRequest(http.MethodPost, "/posts", models.CreatePostRequest{
		Text: "no images", Location: "NYC", Tags: []string{"x"},
	}).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body postsErrors.ErrorResponse
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, postsErrors.CodeValidationFailed, body.Code)
}

// TestPostLifecycle drives create, like, comment, remove and delete over HTTP
func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	userA := testutil.CreateTestUserContext("usera")
	userB := testutil.CreateTestUserContext("userb")
	tokenA, tokenB := env.token(t, userA), env.token(t, userB)

	post := env.createPost(t, tokenA, "NYC")
	postPath := "/posts/" + post.ObjectId.String()

	// B likes the post
	resp := env.helper.NewRequest(http.MethodPut, "/posts/like-unlike/"+post.ObjectId.String(), nil).WithJWTAuth(tokenB).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var likes []models.Like
	testutil.DecodeJSON(t, resp, &likes)
	require.Len(t, likes, 1)
	assert.Equal(t, userB.UserID, likes[0].UserId)
	assert.Equal(t, userB.Username, likes[0].Username)

	// B comments
	resp = env.helper.NewRequest(http.MethodPost, "/posts/comment/"+post.ObjectId.String(), models.CreateCommentRequest{Text: "nice"}).WithJWTAuth(tokenB).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var comments []models.Comment
	testutil.DecodeJSON(t, resp, &comments)
	require.Len(t, comments, 1)
	commentPath := "/posts/comment/" + post.ObjectId.String() + "/" + comments[0].ObjectId.String()

	// the post reflects both interactions
	resp = env.helper.NewRequest(http.MethodGet, postPath, nil).WithJWTAuth(tokenA).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.Post
	testutil.DecodeJSON(t, resp, &got)
	assert.Len(t, got.Likes, 1)
	assert.Len(t, got.Comments, 1)

	// A may not remove B's comment
	resp = env.helper.NewRequest(http.MethodDelete, commentPath, nil).WithJWTAuth(tokenA).Send()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// B removes it, then it is gone
	resp = env.helper.NewRequest(http.MethodDelete, commentPath, nil).WithJWTAuth(tokenB).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &comments)
	assert.Empty(t, comments)

	resp = env.helper.NewRequest(http.MethodDelete, commentPath, nil).WithJWTAuth(tokenB).Send()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var errBody postsErrors.ErrorResponse
	testutil.DecodeJSON(t, resp, &errBody)
	assert.Equal(t, postsErrors.CodeCommentNotFound, errBody.Code)

	// B unlikes
	resp = env.helper.NewRequest(http.MethodPut, "/posts/like-unlike/"+post.ObjectId.String(), nil).WithJWTAuth(tokenB).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &likes)
	assert.Empty(t, likes)

	// only A may delete the post
	resp = env.helper.NewRequest(http.MethodDelete, postPath, nil).WithJWTAuth(tokenB).Send()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.helper.NewRequest(http.MethodDelete, postPath, nil).WithJWTAuth(tokenA).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.helper.NewRequest(http.MethodGet, postPath, nil).WithJWTAuth(tokenA).Send()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &errBody)
	assert.Equal(t, postsErrors.CodePostNotFound, errBody.Code)
}

func TestInteractionsOnUnknownPost(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, testutil.CreateTestUserContext("alice"))
	missing := uuid.Must(uuid.NewV4()).String()

	resp := env.helper.NewRequest(http.MethodPut, "/posts/like-unlike/"+missing, nil).WithJWTAuth(token).Send()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.helper.NewRequest(http.MethodPost, "/posts/comment/"+missing, models.CreateCommentRequest{Text: "hi"}).WithJWTAuth(token).Send()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.helper.NewRequest(http.MethodDelete, "/posts/comment/"+missing+"/"+missing, nil).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body postsErrors.ErrorResponse
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, postsErrors.CodeCommentNotFound, body.Code)
}

func TestServerFromLoadedConfig(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, "*", env.cfg.Server.CORSOrigins)

	resp := env.helper.NewRequest(http.MethodGet, "/health", nil).
		WithHeader("Origin", "https://client.example.com").Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestGetAfterDeleteWithCache(t *testing.T) {
	env := newTestEnv(t)
	require.True(t, env.cfg.Cache.Enabled)

	owner := testutil.CreateTestUserContext("owner")
	token := env.token(t, owner)
	post := env.createPost(t, token, "NYC")
	postPath := "/posts/" + post.ObjectId.String()

	// the second read is served from the cache
	for i := 0; i < 2; i++ {
		resp := env.helper.NewRequest(http.MethodGet, postPath, nil).WithJWTAuth(token).Send()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := env.helper.NewRequest(http.MethodDelete, postPath, nil).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.helper.NewRequest(http.MethodGet, postPath, nil).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body postsErrors.ErrorResponse
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, postsErrors.CodePostNotFound, body.Code)
}

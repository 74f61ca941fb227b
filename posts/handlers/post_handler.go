package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"

	"github.com/qolzam/feed/internal/pkg/parser"
	"github.com/qolzam/feed/internal/types"
	"github.com/qolzam/feed/posts/errors"
	"github.com/qolzam/feed/posts/models"
	"github.com/qolzam/feed/posts/services"
)

// PostHandler handles all post-related HTTP requests
type PostHandler struct {
	postService        services.PostService
	interactionService services.InteractionService
}

// NewPostHandler creates a new PostHandler with injected dependencies
func NewPostHandler(postService services.PostService, interactionService services.InteractionService) *PostHandler {
	return &PostHandler{
		postService:        postService,
		interactionService: interactionService,
	}
}

// currentUser returns the identity attached by the auth middleware
func currentUser(c *fiber.Ctx) (types.UserContext, bool) {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok || !user.IsAuthenticated() {
		return types.UserContext{}, false
	}
	return user, true
}

func authorSnapshot(user types.UserContext) models.AuthorSnapshot {
	return models.AuthorSnapshot{
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Avatar:    user.Avatar,
	}
}

// uuidParam parses a path parameter. RequireUUID runs before the handler,
// so a failure here only happens when the route is wired without it.
func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Params(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CreatePost handles post creation
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return errors.HandleUserContextError(c, "Invalid user context")
	}

	var req models.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "Invalid request body")
	}

	post, err := h.postService.CreatePost(c.UserContext(), user.UserID, authorSnapshot(user), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(models.CreatePostResponse{
		ObjectId: post.ObjectId.String(),
		Post:     post,
	})
}

// QueryPosts handles the paged global feed
func (h *PostHandler) QueryPosts(c *fiber.Ctx) error {
	return h.queryPosts(c, &models.PostQueryFilter{})
}

// QueryPostsByUser lists the posts of one owner
func (h *PostHandler) QueryPostsByUser(c *fiber.Ctx) error {
	ownerID, ok := uuidParam(c, "userId")
	if !ok {
		return errors.HandleUUIDError(c, "user id")
	}
	return h.queryPosts(c, &models.PostQueryFilter{OwnerUserId: &ownerID})
}

// QueryPostsByLocation lists the posts tagged with one location
func (h *PostHandler) QueryPostsByLocation(c *fiber.Ctx) error {
	location, err := url.PathUnescape(c.Params("location"))
	if err != nil || strings.TrimSpace(location) == "" {
		return errors.HandleInvalidRequestError(c, "Invalid location")
	}
	return h.queryPosts(c, &models.PostQueryFilter{Location: location})
}

func (h *PostHandler) queryPosts(c *fiber.Ctx, filter *models.PostQueryFilter) error {
	if err := parser.QueryParser(c, filter); err != nil {
		return errors.HandleValidationError(c, "Invalid query parameters", err.Error())
	}

	result, err := h.postService.QueryPosts(c.UserContext(), filter)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(result)
}

// GetPost handles retrieving a single post with its likes and comments
func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	postID, ok := uuidParam(c, "postId")
	if !ok {
		return errors.HandleUUIDError(c, "post id")
	}

	post, err := h.postService.GetPost(c.UserContext(), postID)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost removes a post owned by the caller
func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return errors.HandleUserContextError(c, "Invalid user context")
	}
	postID, ok := uuidParam(c, "postId")
	if !ok {
		return errors.HandleUUIDError(c, "post id")
	}

	if err := h.postService.DeletePost(c.UserContext(), postID, user.UserID); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(models.MessageResponse{Message: "Post removed"})
}

// ToggleLike likes or unlikes a post and returns the resulting like list
func (h *PostHandler) ToggleLike(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return errors.HandleUserContextError(c, "Invalid user context")
	}
	postID, ok := uuidParam(c, "postId")
	if !ok {
		return errors.HandleUUIDError(c, "post id")
	}

	likes, err := h.interactionService.ToggleLike(c.UserContext(), postID, user.UserID, authorSnapshot(user))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(likes)
}

// AddComment appends a comment and returns the resulting comment list
func (h *PostHandler) AddComment(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return errors.HandleUserContextError(c, "Invalid user context")
	}
	postID, ok := uuidParam(c, "postId")
	if !ok {
		return errors.HandleUUIDError(c, "post id")
	}

	var req models.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "Invalid request body")
	}

	comments, err := h.interactionService.AddComment(c.UserContext(), postID, user.UserID, authorSnapshot(user), req.Text)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(comments)
}

// RemoveComment deletes the caller's comment and returns the remaining ones
func (h *PostHandler) RemoveComment(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return errors.HandleUserContextError(c, "Invalid user context")
	}
	postID, ok := uuidParam(c, "postId")
	if !ok {
		return errors.HandleUUIDError(c, "post id")
	}
	commentID, ok := uuidParam(c, "commentId")
	if !ok {
		return errors.HandleUUIDError(c, "comment id")
	}

	comments, err := h.interactionService.RemoveComment(c.UserContext(), postID, commentID, user.UserID)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(comments)
}

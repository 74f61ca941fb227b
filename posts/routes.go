package posts

import (
	"github.com/gofiber/fiber/v2"

	"github.com/qolzam/feed/internal/middleware/authjwt"
	"github.com/qolzam/feed/internal/middleware/constraints"
	platformconfig "github.com/qolzam/feed/internal/platform/config"
	"github.com/qolzam/feed/internal/types"
	"github.com/qolzam/feed/posts/handlers"
)

// PostsHandlers holds all the handlers this router needs.
type PostsHandlers struct {
	PostHandler *handlers.PostHandler
}

// RegisterRoutes is the single entry point for setting up posts routes.
// Listing a user's posts is public; every other route requires a JWT.
func RegisterRoutes(app *fiber.App, handlers *PostsHandlers, cfg *platformconfig.Config) {
	jwtMiddleware := authjwt.New(authjwt.Config{
		PublicKey:   cfg.JWT.PublicKey,
		ClaimKey:    types.ClaimKey,
		UserCtxName: types.UserCtxName,
	})

	group := app.Group("/posts")

	// --- Public Routes ---
	// Registered before the authenticated group so its middleware never runs for them.
	group.Get("/user/:userId", constraints.RequireUUID("userId"), handlers.PostHandler.QueryPostsByUser)

	// --- User-Facing Routes (JWT) ---
	userGroup := group.Group("", jwtMiddleware)

	userGroup.Post("/", handlers.PostHandler.CreatePost)
	userGroup.Get("/", handlers.PostHandler.QueryPosts)
	userGroup.Get("/location/:location", handlers.PostHandler.QueryPostsByLocation)

	// Interaction sub-resources
	userGroup.Put("/like-unlike/:postId", constraints.RequireUUID("postId"), handlers.PostHandler.ToggleLike)
	userGroup.Post("/comment/:postId", constraints.RequireUUID("postId"), handlers.PostHandler.AddComment)
	userGroup.Delete("/comment/:postId/:commentId", constraints.RequireUUID("postId", "commentId"), handlers.PostHandler.RemoveComment)

	// --- Parameterized Routes for Specific Resources (MUST BE LAST) ---
	userGroup.Get("/:postId", constraints.RequireUUID("postId"), handlers.PostHandler.GetPost)
	userGroup.Delete("/:postId", constraints.RequireUUID("postId"), handlers.PostHandler.DeletePost)
}

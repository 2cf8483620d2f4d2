package router

import (
	"context"
	"time"

	"pixelnest/internal/handlers"
	"pixelnest/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxUploadMemory = 10 << 20

type Deps struct {
	Auth    *handlers.AuthHandler
	Posts   *handlers.PostHandler
	Contact *handlers.ContactHandler

	Resolver middleware.Resolver
	// Limiter may be nil, which disables rate limiting.
	Limiter         middleware.Limiter
	RateLimit       int64
	RateLimitWindow time.Duration

	Ping func(ctx context.Context) error
}

// New builds the engine with every route mounted under /api/v1.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.Metrics())
	r.MaxMultipartMemory = maxUploadMemory

	r.GET("/healthz", handlers.Health(d.Ping))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(r.Group("/api/v1"), d)
	return r
}

func RegisterRoutes(api *gin.RouterGroup, d Deps) {
	authRequired := middleware.AuthRequired(d.Resolver)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", d.Auth.Signup)
		auth.POST("/login", middleware.RateLimit(d.Limiter, "login", d.RateLimit, d.RateLimitWindow), d.Auth.Login)
		auth.GET("/logout", d.Auth.Logout)
		auth.GET("/profile", authRequired, d.Auth.Profile)
	}

	api.POST("/contact", middleware.RateLimit(d.Limiter, "contact", d.RateLimit, d.RateLimitWindow), d.Contact.Submit)

	posts := api.Group("/posts")
	{
		// Public
		posts.GET("/allPosts", d.Posts.ListAll)
		posts.GET("/getUserComments/:id", d.Posts.ListComments)

		authorized := posts.Group("")
		authorized.Use(authRequired)
		{
			authorized.POST("/createPost", d.Posts.Create)
			authorized.PUT("/editPost/:id", d.Posts.Edit)
			authorized.DELETE("/deletePost/:id", d.Posts.Delete)
			authorized.GET("/myPosts", d.Posts.ListMine)
			authorized.GET("/getPost/:id", d.Posts.Get)

			authorized.PUT("/likeToggle/:id", d.Posts.ToggleLike)
			authorized.GET("/getUser/:id", d.Posts.ListLikers)

			authorized.POST("/comment/:id", d.Posts.AddComment)
			authorized.PUT("/comment/:id/edit/:commentId", d.Posts.EditComment)
			authorized.DELETE("/comment/:id/delete/:commentId", d.Posts.DeleteComment)
		}
	}
}

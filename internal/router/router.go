package router

import (
	"commentease/internal/handlers"
	"commentease/internal/middleware"
	"commentease/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRoutes wires the demo HTTP surface over the engines. The
// handlers are thin glue: entity lookup and form decoding, then a
// dispatcher or service call.
func RegisterRoutes(r *gin.Engine, conn *gorm.DB, voting *services.VotingService, comments *services.CommentService, dispatcher *services.ActionDispatcher) {
	authHandler := handlers.NewAuthHandler(conn)
	postHandler := handlers.NewPostHandler(conn, voting, comments)
	voteHandler := handlers.NewVoteHandler(conn, dispatcher, voting)
	commentHandler := handlers.NewCommentHandler(conn, dispatcher, comments)

	// Public routes
	r.POST("/signup", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.GET("/posts/:id", postHandler.Detail)
	r.GET("/comments/:id/replies", commentHandler.Replies)

	// Protected routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", postHandler.Create)
		authorized.POST("/posts/:id/vote", voteHandler.Vote)
		authorized.POST("/posts/:id/comment", commentHandler.Action)
		authorized.POST("/comments/:id/vote", voteHandler.CommentVote)
	}
}

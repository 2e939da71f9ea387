package handlers

import (
	"net/http"
	"strconv"

	"commentease/internal/middleware"
	"commentease/internal/models"
	"commentease/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PostHandler manages the demo host entity. Creating a post provisions
// the owned vote and comment sets when the matching feature is enabled.
type PostHandler struct {
	db       *gorm.DB
	voting   *services.VotingService
	comments *services.CommentService
}

func NewPostHandler(conn *gorm.DB, voting *services.VotingService, comments *services.CommentService) *PostHandler {
	return &PostHandler{db: conn, voting: voting, comments: comments}
}

func (h *PostHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	title := c.PostForm("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}

	post := models.Post{
		UserID:          user.ID,
		Title:           title,
		Body:            c.PostForm("body"),
		AllowVoting:     c.DefaultPostForm("allow_voting", "true") == "true",
		AllowCommenting: c.DefaultPostForm("allow_commenting", "true") == "true",
	}

	ctx := c.Request.Context()
	if post.AllowVoting {
		votes, err := h.voting.NewVoteSet(ctx, "POST", models.PatternUpDown, nil, nil)
		if err != nil {
			RenderError(c, err)
			return
		}
		post.VoteSetID = &votes.ID
	}
	if post.AllowCommenting {
		comments, err := h.comments.NewCommentSet(ctx, "POST", true)
		if err != nil {
			RenderError(c, err)
			return
		}
		post.CommentSetID = &comments.ID
	}

	if err := h.db.Create(&post).Error; err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Detail(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	var post models.Post
	if err := h.db.Preload("User").Preload("Votes").Preload("Comments").
		First(&post, id).Error; err != nil {
		RenderError(c, err)
		return
	}

	data := gin.H{"post": post}
	if setID, ok := post.GetCommentSetID(); ok {
		comments, err := h.comments.List(c.Request.Context(), setID)
		if err != nil {
			RenderError(c, err)
			return
		}
		data["comments"] = comments
	}
	c.JSON(http.StatusOK, data)
}

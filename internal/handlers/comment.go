package handlers

import (
	"net/http"
	"strconv"

	"commentease/internal/middleware"
	"commentease/internal/models"
	"commentease/internal/services"
	"commentease/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CommentHandler is the comment action entry point: new comments, replies,
// edits and deletions all flow through the dispatcher.
type CommentHandler struct {
	db         *gorm.DB
	dispatcher *services.ActionDispatcher
	comments   *services.CommentService
}

func NewCommentHandler(conn *gorm.DB, dispatcher *services.ActionDispatcher, comments *services.CommentService) *CommentHandler {
	return &CommentHandler{db: conn, dispatcher: dispatcher, comments: comments}
}

// Action handles POST /posts/:id/comment. Form fields: message, parser,
// reply_to, edit_id, delete_id.
func (h *CommentHandler) Action(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	var post models.Post
	if err := h.db.First(&post, id).Error; err != nil {
		RenderError(c, err)
		return
	}

	sub := services.CommentSubmission{
		Message:   c.PostForm("message"),
		Parser:    c.PostForm("parser"),
		ReplyToID: optionalID(c.PostForm("reply_to")),
		EditID:    optionalID(c.PostForm("edit_id")),
		DeleteID:  optionalID(c.PostForm("delete_id")),
	}
	if sub.DeleteID == nil && sub.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message required"})
		return
	}

	comment, err := h.dispatcher.CommentAction(c.Request.Context(), &post, user.ID, sub)
	if err != nil {
		RenderError(c, err)
		return
	}
	if comment == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Replies handles GET /comments/:id/replies, returning direct children in
// vote-count order.
func (h *CommentHandler) Replies(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	replies, err := h.comments.SortedReplies(c.Request.Context(), uint(id))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, replies)
}

// optionalID parses a form value into a comment id, nil when empty.
func optionalID(s string) *uint {
	if s == "" {
		return nil
	}
	id := uint(utils.StringToInt(s))
	if id == 0 {
		return nil
	}
	return &id
}

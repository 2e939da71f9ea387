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

// VoteHandler exposes the vote action entry point over HTTP. The handler
// only resolves the target entity and the acting user; everything else is
// the dispatcher's job.
type VoteHandler struct {
	db         *gorm.DB
	dispatcher *services.ActionDispatcher
	voting     *services.VotingService
}

func NewVoteHandler(conn *gorm.DB, dispatcher *services.ActionDispatcher, voting *services.VotingService) *VoteHandler {
	return &VoteHandler{db: conn, dispatcher: dispatcher, voting: voting}
}

// Vote handles POST /posts/:id/vote with form field "action"
// ("vote" | "votedown" | "cancel" | numeric payload).
func (h *VoteHandler) Vote(c *gin.Context) {
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

	action := c.DefaultPostForm("action", "vote")
	record, err := h.dispatcher.VoteAction(c.Request.Context(), &post, user.ID, action)
	if err != nil {
		RenderError(c, err)
		return
	}

	set, err := h.voting.GetVoteSet(c.Request.Context(), *post.VoteSetID)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": set.Count, "score": set.Score, "vote": record})
}

// CommentVote handles POST /comments/:id/vote, voting on a single comment's
// own vote set.
func (h *VoteHandler) CommentVote(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, id).Error; err != nil {
		RenderError(c, err)
		return
	}

	action := c.DefaultPostForm("action", "vote")
	record, err := h.dispatcher.VoteAction(c.Request.Context(), commentVotable{&comment}, user.ID, action)
	if err != nil {
		RenderError(c, err)
		return
	}

	set, err := h.voting.GetVoteSet(c.Request.Context(), comment.VoteSetID)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": set.Count, "score": set.Score, "vote": record})
}

// commentVotable adapts a comment to the votable capability; comments
// always carry a vote set.
type commentVotable struct {
	comment *models.Comment
}

func (v commentVotable) GetVoteSetID() (uint, bool) {
	return v.comment.VoteSetID, true
}

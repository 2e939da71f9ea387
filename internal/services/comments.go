package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commentease/internal/models"
	"commentease/internal/utils"

	"gorm.io/gorm"
)

// voteSetTypeComment tags the VoteSet owned by every comment.
const voteSetTypeComment = "CMNT"

// CommentService manages threaded comments: creation, author-only edits,
// tombstone-preserving deletion and PUBLIC-only counter maintenance.
// Every mutation runs in a single transaction together with its counter
// deltas and closure-table upkeep.
type CommentService struct {
	db       *gorm.DB
	renderer utils.Renderer
	pattern  models.VotePattern // vote pattern for new comment vote sets
}

func NewCommentService(db *gorm.DB, renderer utils.Renderer) *CommentService {
	return &CommentService{db: db, renderer: renderer, pattern: models.PatternUpDown}
}

// WithVotePattern overrides the vote pattern attached to new comments.
func (s *CommentService) WithVotePattern(pattern models.VotePattern) *CommentService {
	s.pattern = pattern
	return s
}

// NewCommentSet creates and persists a CommentSet for a commentable entity.
func (s *CommentService) NewCommentSet(ctx context.Context, typ string, downvoting bool) (*models.CommentSet, error) {
	set := models.CommentSet{Type: typ, Downvoting: downvoting}
	if err := s.db.WithContext(ctx).Create(&set).Error; err != nil {
		return nil, fmt.Errorf("create comment set: %w", err)
	}
	return &set, nil
}

// Create submits a new comment or reply. The reply target, when given,
// must belong to the same comment set.
func (s *CommentService) Create(ctx context.Context, commentSetID, authorID uint, message, parserTag string, replyToID *uint) (*models.Comment, error) {
	if parserTag == "" {
		parserTag = "markdown"
	}

	var comment models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var set models.CommentSet
		if err := tx.First(&set, commentSetID).Error; err != nil {
			return fmt.Errorf("load comment set %d: %w", commentSetID, err)
		}

		if replyToID != nil {
			var parent models.Comment
			if err := tx.First(&parent, *replyToID).Error; err != nil {
				return fmt.Errorf("load reply target %d: %w", *replyToID, err)
			}
			if parent.CommentSetID != commentSetID {
				return ErrWrongCommentSet
			}
		}

		votes := models.VoteSet{Type: voteSetTypeComment, Pattern: s.pattern}
		if err := tx.Create(&votes).Error; err != nil {
			return fmt.Errorf("create comment vote set: %w", err)
		}

		var seq int
		if err := tx.Model(&models.Comment{}).
			Where("comment_set_id = ?", commentSetID).
			Select("COALESCE(MAX(seq), 0) + 1").Scan(&seq).Error; err != nil {
			return fmt.Errorf("allocate comment seq: %w", err)
		}

		comment = models.Comment{
			Seq:          seq,
			CommentSetID: commentSetID,
			AuthorID:     &authorID,
			ReplyToID:    replyToID,
			Parser:       parserTag,
			Message:      message,
			MessageHTML:  s.renderer.Render(parserTag, message),
			Status:       models.CommentPublic,
			VoteSetID:    votes.ID,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		comment.Votes = votes

		if err := insertTreeEntries(tx, comment.ID, replyToID); err != nil {
			return err
		}
		return bumpCommentSet(tx, commentSetID, 1, replyToID == nil)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Edit replaces the comment's message. Only the author may edit; the
// rendered HTML is recomputed and the edit timestamp set.
func (s *CommentService) Edit(ctx context.Context, commentID, editorID uint, newMessage string) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, commentID).Error; err != nil {
			return fmt.Errorf("load comment %d: %w", commentID, err)
		}
		if comment.AuthorID == nil || *comment.AuthorID != editorID {
			return ErrNotAuthorized
		}

		now := time.Now()
		comment.Message = newMessage
		comment.MessageHTML = s.renderer.Render(comment.Parser, newMessage)
		comment.EditedAt = &now

		if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).
			UpdateColumns(map[string]interface{}{
				"message":      comment.Message,
				"message_html": comment.MessageHTML,
				"edited_at":    comment.EditedAt,
			}).Error; err != nil {
			return fmt.Errorf("update comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete removes a comment. A comment that still has replies becomes a
// tombstone so the thread structure survives; a childless comment is
// hard-deleted, and if its parent is a tombstone the deletion walks up
// the chain removing tombstones that just lost their last descendant.
// The whole cascade runs in one transaction.
func (s *CommentService) Delete(ctx context.Context, commentID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, commentID).Error; err != nil {
			return fmt.Errorf("load comment %d: %w", commentID, err)
		}
		return deleteComment(tx, &comment)
	})
}

func deleteComment(tx *gorm.DB, comment *models.Comment) error {
	var replies int64
	if err := tx.Model(&models.Comment{}).
		Where("reply_to_id = ?", comment.ID).Count(&replies).Error; err != nil {
		return fmt.Errorf("count replies: %w", err)
	}

	wasPublic := comment.Status == models.CommentPublic

	if replies > 0 {
		// Tombstone: clear content and authorship, keep the node so the
		// replies stay attached.
		if err := tx.Model(&models.Comment{}).Where("id = ?", comment.ID).
			UpdateColumns(map[string]interface{}{
				"status":       models.CommentDeleted,
				"author_id":    nil,
				"message":      "",
				"message_html": "",
			}).Error; err != nil {
			return fmt.Errorf("tombstone comment: %w", err)
		}
		if wasPublic {
			return bumpCommentSet(tx, comment.CommentSetID, -1, comment.ReplyToID == nil)
		}
		return nil
	}

	// Childless: hard delete the node together with its vote set and
	// index rows.
	if err := removeTreeEntries(tx, comment.ID); err != nil {
		return err
	}
	if err := tx.Delete(&models.Comment{}, comment.ID).Error; err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if err := tx.Where("vote_set_id = ?", comment.VoteSetID).
		Delete(&models.VoteRecord{}).Error; err != nil {
		return fmt.Errorf("delete comment votes: %w", err)
	}
	if err := tx.Delete(&models.VoteSet{}, comment.VoteSetID).Error; err != nil {
		return fmt.Errorf("delete comment vote set: %w", err)
	}
	if wasPublic {
		if err := bumpCommentSet(tx, comment.CommentSetID, -1, comment.ReplyToID == nil); err != nil {
			return err
		}
	}

	// A tombstoned parent that just lost its last reply should reconsider
	// removing itself, possibly cascading further up.
	if comment.ReplyToID != nil {
		var parent models.Comment
		if err := tx.First(&parent, *comment.ReplyToID).Error; err != nil {
			return fmt.Errorf("load parent %d: %w", *comment.ReplyToID, err)
		}
		if parent.IsDeleted() {
			return deleteComment(tx, &parent)
		}
	}
	return nil
}

// SortedReplies returns the direct children of a comment ordered ascending
// by their vote count. Count, not score: low-traffic replies first.
func (s *CommentService) SortedReplies(ctx context.Context, commentID uint) ([]models.Comment, error) {
	var replies []models.Comment
	err := s.db.WithContext(ctx).
		Joins("JOIN vote_sets ON vote_sets.id = comments.vote_set_id").
		Where("comments.reply_to_id = ?", commentID).
		Order("vote_sets.count ASC, comments.seq ASC").
		Preload("Votes").
		Find(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("load replies: %w", err)
	}
	return replies, nil
}

// Recount repairs the comment set counters from the stored comments.
// Only PUBLIC comments are counted, partitioned on top-level vs reply.
func (s *CommentService) Recount(ctx context.Context, commentSetID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topLevel, repliesCount int64
		if err := tx.Model(&models.Comment{}).
			Where("comment_set_id = ? AND status = ? AND reply_to_id IS NULL",
				commentSetID, models.CommentPublic).
			Count(&topLevel).Error; err != nil {
			return fmt.Errorf("count top-level comments: %w", err)
		}
		if err := tx.Model(&models.Comment{}).
			Where("comment_set_id = ? AND status = ? AND reply_to_id IS NOT NULL",
				commentSetID, models.CommentPublic).
			Count(&repliesCount).Error; err != nil {
			return fmt.Errorf("count replies: %w", err)
		}
		if err := tx.Model(&models.CommentSet{}).Where("id = ?", commentSetID).
			UpdateColumns(map[string]interface{}{
				"count":          topLevel + repliesCount,
				"count_toplevel": topLevel,
				"count_replies":  repliesCount,
			}).Error; err != nil {
			return fmt.Errorf("store recount: %w", err)
		}
		return nil
	})
}

// Get loads one comment with its vote set.
func (s *CommentService) Get(ctx context.Context, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Preload("Votes").First(&comment, commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load comment %d: %w", commentID, err)
	}
	return &comment, nil
}

// List returns all comments of a set in thread order (by seq).
func (s *CommentService) List(ctx context.Context, commentSetID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).Preload("Votes").
		Where("comment_set_id = ?", commentSetID).
		Order("seq ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// bumpCommentSet applies relative counter deltas at the storage layer,
// keeping count == count_toplevel + count_replies.
func bumpCommentSet(tx *gorm.DB, commentSetID uint, delta int, topLevel bool) error {
	cols := map[string]interface{}{
		"count": gorm.Expr("count + ?", delta),
	}
	if topLevel {
		cols["count_toplevel"] = gorm.Expr("count_toplevel + ?", delta)
	} else {
		cols["count_replies"] = gorm.Expr("count_replies + ?", delta)
	}
	if err := tx.Model(&models.CommentSet{}).Where("id = ?", commentSetID).
		UpdateColumns(cols).Error; err != nil {
		return fmt.Errorf("update comment set counters: %w", err)
	}
	return nil
}

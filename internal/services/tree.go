package services

import (
	"context"
	"errors"
	"fmt"

	"commentease/internal/models"

	"gorm.io/gorm"
)

// TreeService answers hierarchy queries from the closure-table index.
// The index stores one row per ancestor/descendant pair with its distance,
// including a depth-0 self-pair for every comment. Rows are maintained by
// the comment engine inside the same transaction that mutates the
// adjacency list, so the index never observes a half-applied mutation.
type TreeService struct {
	db *gorm.DB
}

func NewTreeService(db *gorm.DB) *TreeService {
	return &TreeService{db: db}
}

// Ancestors returns the comments on the path from the root down to the
// given comment, nearest ancestor last. The comment itself is excluded.
func (s *TreeService) Ancestors(ctx context.Context, commentID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Joins("JOIN comment_tree ON comment_tree.ancestor_id = comments.id").
		Where("comment_tree.descendant_id = ? AND comment_tree.depth > 0", commentID).
		Order("comment_tree.depth DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("load ancestors: %w", err)
	}
	return comments, nil
}

// Descendants returns the full subtree below the given comment, shallowest
// first. The comment itself is excluded.
func (s *TreeService) Descendants(ctx context.Context, commentID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Joins("JOIN comment_tree ON comment_tree.descendant_id = comments.id").
		Where("comment_tree.ancestor_id = ? AND comment_tree.depth > 0", commentID).
		Order("comment_tree.depth ASC, comments.seq ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("load descendants: %w", err)
	}
	return comments, nil
}

// Depth returns the distance between an ancestor and a descendant, or
// -1 when the pair is not related. A comment is at depth 0 from itself.
func (s *TreeService) Depth(ctx context.Context, ancestorID, descendantID uint) (int, error) {
	var entry models.CommentTreeEntry
	err := s.db.WithContext(ctx).
		Where("ancestor_id = ? AND descendant_id = ?", ancestorID, descendantID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load tree entry: %w", err)
	}
	return entry.Depth, nil
}

// Rebuild drops and regenerates the index for one comment set by walking
// the adjacency list. Repair tool for drift; normal operation maintains
// the index incrementally.
func (s *TreeService) Rebuild(ctx context.Context, commentSetID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comments []models.Comment
		if err := tx.Select("id", "reply_to_id").
			Where("comment_set_id = ?", commentSetID).
			Find(&comments).Error; err != nil {
			return fmt.Errorf("load comments: %w", err)
		}

		ids := make([]uint, 0, len(comments))
		parent := make(map[uint]*uint, len(comments))
		for _, c := range comments {
			ids = append(ids, c.ID)
			parent[c.ID] = c.ReplyToID
		}

		if len(ids) > 0 {
			if err := tx.Where("descendant_id IN ?", ids).
				Delete(&models.CommentTreeEntry{}).Error; err != nil {
				return fmt.Errorf("clear tree entries: %w", err)
			}
		}

		var entries []models.CommentTreeEntry
		for _, id := range ids {
			depth := 0
			node := id
			for {
				entries = append(entries, models.CommentTreeEntry{
					AncestorID:   node,
					DescendantID: id,
					Depth:        depth,
				})
				up, ok := parent[node]
				if !ok || up == nil {
					break
				}
				node = *up
				depth++
			}
		}
		if len(entries) == 0 {
			return nil
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("insert tree entries: %w", err)
		}
		return nil
	})
}

// insertTreeEntries records a freshly created comment in the index:
// its self-pair plus one row per ancestor of the parent, one level deeper.
func insertTreeEntries(tx *gorm.DB, commentID uint, replyToID *uint) error {
	if err := tx.Create(&models.CommentTreeEntry{
		AncestorID:   commentID,
		DescendantID: commentID,
		Depth:        0,
	}).Error; err != nil {
		return fmt.Errorf("insert tree self pair: %w", err)
	}
	if replyToID == nil {
		return nil
	}
	err := tx.Exec(
		`INSERT INTO comment_tree (ancestor_id, descendant_id, depth)
		 SELECT ancestor_id, ?, depth + 1 FROM comment_tree WHERE descendant_id = ?`,
		commentID, *replyToID,
	).Error
	if err != nil {
		return fmt.Errorf("insert tree ancestor rows: %w", err)
	}
	return nil
}

// removeTreeEntries drops a hard-deleted comment from the index. The
// delete cascade only hard-deletes leaves, so rows keyed by the comment
// as descendant are the complete footprint.
func removeTreeEntries(tx *gorm.DB, commentID uint) error {
	if err := tx.Where("descendant_id = ?", commentID).
		Delete(&models.CommentTreeEntry{}).Error; err != nil {
		return fmt.Errorf("remove tree entries: %w", err)
	}
	return nil
}

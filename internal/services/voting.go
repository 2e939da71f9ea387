package services

import (
	"context"
	"errors"
	"fmt"

	"commentease/internal/models"

	"gorm.io/gorm"
)

// VotingService maintains VoteSet aggregates under the four vote patterns.
// Count/score changes are issued as relative updates evaluated by the
// database, never as fetch-then-write-back, so concurrent voters cannot
// lose increments.
type VotingService struct {
	db *gorm.DB
}

func NewVotingService(db *gorm.DB) *VotingService {
	return &VotingService{db: db}
}

// NewVoteSet creates and persists a VoteSet for a votable entity.
// min/max are only consulted for PatternRange.
func (s *VotingService) NewVoteSet(ctx context.Context, typ string, pattern models.VotePattern, min, max *int) (*models.VoteSet, error) {
	switch pattern {
	case models.PatternUpOnly, models.PatternUpDown, models.PatternCustom:
		min, max = nil, nil
	case models.PatternRange:
		if min == nil || max == nil || *min > *max {
			return nil, ErrInvalidPattern
		}
	default:
		return nil, ErrInvalidPattern
	}

	set := models.VoteSet{Type: typ, Pattern: pattern, Min: min, Max: max}
	if err := s.db.WithContext(ctx).Create(&set).Error; err != nil {
		return nil, fmt.Errorf("create vote set: %w", err)
	}
	return &set, nil
}

// GetVoteSet loads a vote set by id.
func (s *VotingService) GetVoteSet(ctx context.Context, voteSetID uint) (*models.VoteSet, error) {
	var set models.VoteSet
	if err := s.db.WithContext(ctx).First(&set, voteSetID).Error; err != nil {
		return nil, fmt.Errorf("load vote set %d: %w", voteSetID, err)
	}
	return &set, nil
}

// Vote records or updates the user's vote on the set. Revoting with an
// unchanged value is a no-op; a duplicate-insert race with another request
// from the same user is resolved through the revote path rather than
// surfaced as an error.
func (s *VotingService) Vote(ctx context.Context, voteSetID, userID uint, data *int) (*models.VoteRecord, error) {
	var record *models.VoteRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var set models.VoteSet
		if err := tx.First(&set, voteSetID).Error; err != nil {
			return fmt.Errorf("load vote set %d: %w", voteSetID, err)
		}

		if err := validatePayload(&set, data); err != nil {
			return err
		}

		var existing models.VoteRecord
		err := tx.Where("vote_set_id = ? AND user_id = ?", voteSetID, userID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fresh := models.VoteRecord{UserID: userID, VoteSetID: voteSetID, Data: data}
			if err := tx.Create(&fresh).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// Lost the insert race to a concurrent vote by the
					// same user; treat it as a revote.
					if err := tx.Where("vote_set_id = ? AND user_id = ?", voteSetID, userID).First(&existing).Error; err != nil {
						return fmt.Errorf("reload vote after duplicate insert: %w", err)
					}
					record = &existing
					return s.revote(tx, &set, &existing, data)
				}
				return fmt.Errorf("create vote: %w", err)
			}
			record = &fresh
			return bumpVoteSet(tx, voteSetID, 1, firstVoteScore(&set, data))
		}
		if err != nil {
			return fmt.Errorf("load vote: %w", err)
		}
		record = &existing
		return s.revote(tx, &set, &existing, data)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// CancelVote removes the user's vote and reverses its contribution.
// A user who never voted is a no-op.
func (s *VotingService) CancelVote(ctx context.Context, voteSetID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var set models.VoteSet
		if err := tx.First(&set, voteSetID).Error; err != nil {
			return fmt.Errorf("load vote set %d: %w", voteSetID, err)
		}

		var existing models.VoteRecord
		err := tx.Where("vote_set_id = ? AND user_id = ?", voteSetID, userID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load vote: %w", err)
		}

		if err := tx.Where("vote_set_id = ? AND user_id = ?", voteSetID, userID).
			Delete(&models.VoteRecord{}).Error; err != nil {
			return fmt.Errorf("delete vote: %w", err)
		}

		var scoreDelta int
		switch set.Pattern {
		case models.PatternUpOnly:
			scoreDelta = -1
		case models.PatternUpDown, models.PatternRange:
			if existing.Data != nil {
				scoreDelta = -*existing.Data
			}
		case models.PatternCustom:
			scoreDelta = 0
		default:
			return ErrInvalidPattern
		}
		return bumpVoteSet(tx, voteSetID, -1, scoreDelta)
	})
}

// GetVote returns the user's vote on the set, or nil when absent.
func (s *VotingService) GetVote(ctx context.Context, voteSetID, userID uint) (*models.VoteRecord, error) {
	var record models.VoteRecord
	err := s.db.WithContext(ctx).
		Where("vote_set_id = ? AND user_id = ?", voteSetID, userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load vote: %w", err)
	}
	return &record, nil
}

// Recount recomputes count and score from the full record set. Used for
// repair after bulk operations or detected drift; normal operation keeps
// the aggregates current incrementally.
func (s *VotingService) Recount(ctx context.Context, voteSetID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var set models.VoteSet
		if err := tx.First(&set, voteSetID).Error; err != nil {
			return fmt.Errorf("load vote set %d: %w", voteSetID, err)
		}

		var count int64
		if err := tx.Model(&models.VoteRecord{}).
			Where("vote_set_id = ?", voteSetID).Count(&count).Error; err != nil {
			return fmt.Errorf("count votes: %w", err)
		}

		cols := map[string]interface{}{"count": count}
		switch set.Pattern {
		case models.PatternUpOnly:
			// Every record contributes +1, so the score is the count.
			cols["score"] = count
		case models.PatternUpDown, models.PatternRange:
			var score int64
			if err := tx.Model(&models.VoteRecord{}).
				Where("vote_set_id = ?", voteSetID).
				Select("COALESCE(SUM(data), 0)").Scan(&score).Error; err != nil {
				return fmt.Errorf("sum votes: %w", err)
			}
			cols["score"] = score
		case models.PatternCustom:
			// Score has no defined meaning for CUSTOM, leave it alone.
		default:
			return ErrInvalidPattern
		}

		if err := tx.Model(&models.VoteSet{}).Where("id = ?", voteSetID).
			UpdateColumns(cols).Error; err != nil {
			return fmt.Errorf("store recount: %w", err)
		}
		return nil
	})
}

// revote applies a changed payload to an existing record. Unchanged
// payloads leave both the record and the aggregates untouched, except for
// CUSTOM where the payload is always replaced.
func (s *VotingService) revote(tx *gorm.DB, set *models.VoteSet, existing *models.VoteRecord, data *int) error {
	switch set.Pattern {
	case models.PatternUpOnly:
		return nil
	case models.PatternUpDown:
		if intEqual(existing.Data, data) {
			return nil
		}
		// Removes the old contribution and adds the new: flipping from
		// -1 to +1 moves the score by +2.
		if err := bumpVoteSet(tx, set.ID, 0, 2*(*data)); err != nil {
			return err
		}
	case models.PatternRange:
		if intEqual(existing.Data, data) {
			return nil
		}
		old := 0
		if existing.Data != nil {
			old = *existing.Data
		}
		if err := bumpVoteSet(tx, set.ID, 0, *data-old); err != nil {
			return err
		}
	case models.PatternCustom:
		// Count only; the payload is the caller's to interpret.
	default:
		return ErrInvalidPattern
	}

	existing.Data = data
	if err := tx.Model(&models.VoteRecord{}).
		Where("vote_set_id = ? AND user_id = ?", existing.VoteSetID, existing.UserID).
		Update("data", data).Error; err != nil {
		return fmt.Errorf("update vote: %w", err)
	}
	return nil
}

// validatePayload enforces the pattern's payload contract before any
// store mutation.
func validatePayload(set *models.VoteSet, data *int) error {
	switch set.Pattern {
	case models.PatternUpOnly:
		if data != nil {
			return ErrVotePayload
		}
	case models.PatternUpDown:
		if data == nil || (*data != 1 && *data != -1) {
			return ErrVotePayload
		}
	case models.PatternRange:
		if set.Min == nil || set.Max == nil {
			return ErrInvalidPattern
		}
		if data == nil {
			return ErrVotePayload
		}
		// The bounds check rejects out-of-range payloads. An earlier
		// revision rejected in-range payloads instead; tests pin the
		// corrected behavior.
		if *data < *set.Min || *data > *set.Max {
			return ErrVoteOutOfRange
		}
	case models.PatternCustom:
		// Any payload, including nil.
	default:
		return ErrInvalidPattern
	}
	return nil
}

// firstVoteScore is the score contribution of a fresh vote.
func firstVoteScore(set *models.VoteSet, data *int) int {
	switch set.Pattern {
	case models.PatternUpOnly:
		return 1
	case models.PatternUpDown, models.PatternRange:
		return *data
	default:
		return 0
	}
}

// bumpVoteSet applies relative aggregate deltas at the storage layer so
// that concurrent voters on the same set cannot lose updates.
func bumpVoteSet(tx *gorm.DB, voteSetID uint, countDelta, scoreDelta int) error {
	cols := map[string]interface{}{}
	if countDelta != 0 {
		cols["count"] = gorm.Expr("count + ?", countDelta)
	}
	if scoreDelta != 0 {
		cols["score"] = gorm.Expr("score + ?", scoreDelta)
	}
	if len(cols) == 0 {
		return nil
	}
	if err := tx.Model(&models.VoteSet{}).Where("id = ?", voteSetID).
		UpdateColumns(cols).Error; err != nil {
		return fmt.Errorf("update vote set aggregates: %w", err)
	}
	return nil
}

func intEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

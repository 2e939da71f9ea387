package models

import (
	"time"
)

// VotePattern selects the voting semantics enforced by a VoteSet.
type VotePattern int

const (
	PatternUpOnly VotePattern = 1 // upvote only, idempotent per user
	PatternUpDown VotePattern = 2 // +1 / -1
	PatternRange  VotePattern = 3 // integer within [Min, Max]
	PatternCustom VotePattern = 4 // opaque payload, count maintained only
)

// VoteSet owns the aggregate count/score for one votable entity.
// Count always equals the number of VoteRecords referencing the set;
// the meaning of Score depends on Pattern.
type VoteSet struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Type      string      `gorm:"size:4" json:"type"` // tag naming the owning entity kind, e.g. "CMNT"
	Pattern   VotePattern `gorm:"not null;default:2" json:"pattern"`
	Count     int         `gorm:"not null;default:0" json:"count"`
	Score     int         `gorm:"not null;default:0" json:"score"`
	Min       *int        `json:"min"` // required iff Pattern == PatternRange
	Max       *int        `json:"max"`
	CreatedAt time.Time   `json:"created_at"`
}

// VoteRecord is one user's vote within a VoteSet. The composite primary
// key is the concurrency guard: a double-vote race hits a duplicate-key
// error instead of creating a second record.
type VoteRecord struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	VoteSetID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"vote_set_id"`
	Data      *int      `json:"data"` // payload meaning depends on the set's pattern
	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"
)

// CommentStatus values match the original numbering used by existing rows.
type CommentStatus int

const (
	CommentDraft    CommentStatus = 1 // partially composed
	CommentPublic   CommentStatus = 2 // regular comment
	CommentScreened CommentStatus = 3 // awaiting approval
	CommentHidden   CommentStatus = 4 // hidden by a moderator/owner
	CommentSpam     CommentStatus = 5 // marked as spam (no detection logic, placeholder)
	CommentDeleted  CommentStatus = 6 // tombstone: content cleared, kept for its replies
)

// CommentSet owns the collection of comments attached to one commentable
// entity. The counters cover PUBLIC comments only and satisfy
// Count == CountTopLevel + CountReplies.
type CommentSet struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Type          string    `gorm:"size:4" json:"type"`
	Count         int       `gorm:"not null;default:0" json:"count"`
	CountTopLevel int       `gorm:"column:count_toplevel;not null;default:0" json:"count_toplevel"`
	CountReplies  int       `gorm:"not null;default:0" json:"count_replies"`
	Downvoting    bool      `gorm:"not null;default:true" json:"downvoting"` // legacy, superseded by the per-comment vote pattern
	CreatedAt     time.Time `json:"created_at"`
}

// Comment is one message node in a thread. ReplyToID forms the adjacency
// list and, if set, must reference a comment in the same CommentSet.
type Comment struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Seq          int           `gorm:"not null;uniqueIndex:idx_comment_set_seq" json:"seq"` // sequential within the set
	CommentSetID uint          `gorm:"not null;uniqueIndex:idx_comment_set_seq;index" json:"comment_set_id"`
	CommentSet   CommentSet    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AuthorID     *uint         `gorm:"index" json:"author_id"` // nil after tombstoning
	ReplyToID    *uint         `gorm:"index" json:"reply_to_id"`
	ReplyTo      *Comment      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Parser       string        `gorm:"size:10;not null;default:'markdown'" json:"parser"`
	Message      string        `gorm:"type:text;not null" json:"message"`
	MessageHTML  string        `gorm:"type:text;not null" json:"message_html"` // recomputed whenever Message changes
	Status       CommentStatus `gorm:"not null;default:2" json:"status"`
	VoteSetID    uint          `gorm:"not null;index" json:"vote_set_id"`
	Votes        VoteSet       `gorm:"foreignKey:VoteSetID" json:"votes"`
	EditedAt     *time.Time    `json:"edited_at"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsDeleted reports whether the comment is a tombstone.
func (c *Comment) IsDeleted() bool {
	return c.Status == CommentDeleted
}

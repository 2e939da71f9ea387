package models

import (
	"time"
)

// HasVoteSet is the capability an entity exposes when voting is enabled on
// it. Host entities gain voting by owning a VoteSet, not by inheritance.
type HasVoteSet interface {
	GetVoteSetID() (uint, bool)
}

// HasCommentSet is the commenting counterpart of HasVoteSet.
type HasCommentSet interface {
	GetCommentSetID() (uint, bool)
}

// Post is a host entity demonstrating the voting/commenting capabilities.
// VoteSetID/CommentSetID are nil until the corresponding feature is enabled.
type Post struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	UserID          uint        `gorm:"not null;index" json:"user_id"`
	User            User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Title           string      `gorm:"not null" json:"title"`
	Body            string      `gorm:"type:text" json:"body"`
	VoteSetID       *uint       `json:"vote_set_id"`
	Votes           *VoteSet    `gorm:"foreignKey:VoteSetID;constraint:OnDelete:CASCADE;" json:"votes"`
	CommentSetID    *uint       `json:"comment_set_id"`
	Comments        *CommentSet `gorm:"foreignKey:CommentSetID;constraint:OnDelete:CASCADE;" json:"comments"`
	AllowVoting     bool        `gorm:"not null;default:false" json:"allow_voting"`
	AllowCommenting bool        `gorm:"not null;default:false" json:"allow_commenting"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (p *Post) GetVoteSetID() (uint, bool) {
	if !p.AllowVoting || p.VoteSetID == nil {
		return 0, false
	}
	return *p.VoteSetID, true
}

func (p *Post) GetCommentSetID() (uint, bool) {
	if !p.AllowCommenting || p.CommentSetID == nil {
		return 0, false
	}
	return *p.CommentSetID, true
}

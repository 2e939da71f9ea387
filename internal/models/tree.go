package models

// CommentTreeEntry is one row of the closure-table index over the comment
// hierarchy: exactly one row per reachable ancestor/descendant pair with
// its distance, including a depth-0 self-pair for every comment. The
// adjacency list (Comment.ReplyToID) remains the source of truth; this
// index only buys O(1) subtree and ancestor-chain queries.
type CommentTreeEntry struct {
	AncestorID   uint `gorm:"primaryKey;autoIncrement:false" json:"ancestor_id"`
	DescendantID uint `gorm:"primaryKey;autoIncrement:false;index" json:"descendant_id"`
	Depth        int  `gorm:"not null" json:"depth"`
}

func (CommentTreeEntry) TableName() string {
	return "comment_tree"
}

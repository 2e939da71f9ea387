package services

import (
	"context"
	"testing"

	"commentease/internal/models"
	"commentease/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCommentService(t *testing.T) (*gorm.DB, *CommentService) {
	t.Helper()
	conn := newTestDB(t)
	return conn, NewCommentService(conn, utils.NewHTMLRenderer())
}

func mustCommentSet(t *testing.T, s *CommentService) *models.CommentSet {
	t.Helper()
	set, err := s.NewCommentSet(context.Background(), "POST", true)
	require.NoError(t, err)
	return set
}

func loadCommentSet(t *testing.T, conn *gorm.DB, id uint) *models.CommentSet {
	t.Helper()
	var set models.CommentSet
	require.NoError(t, conn.First(&set, id).Error)
	return &set
}

func TestCreateCommentAndReply(t *testing.T) {
	conn, s := newCommentService(t)
	ctx := context.Background()
	set := mustCommentSet(t, s)

	top, err := s.Create(ctx, set.ID, 1, "hello **world**", "markdown", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, top.Seq)
	assert.Equal(t, models.CommentPublic, top.Status)
	assert.Contains(t, top.MessageHTML, "<strong>world</strong>")
	assert.NotZero(t, top.VoteSetID)

	reply, err := s.Create(ctx, set.ID, 2, "a reply", "markdown", &top.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reply.Seq)
	require.NotNil(t, reply.ReplyToID)
	assert.Equal(t, top.ID, *reply.ReplyToID)

	got := loadCommentSet(t, conn, set.ID)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 1, got.CountTopLevel)
	assert.Equal(t, 1, got.CountReplies)
}

func TestCreateReplyAcrossSetsFails(t *testing.T) {
	_, s := newCommentService(t)
	ctx := context.Background()
	setA := mustCommentSet(t, s)
	setB := mustCommentSet(t, s)

	parent, err := s.Create(ctx, setA.ID, 1, "parent", "markdown", nil)
	require.NoError(t, err)

	_, err = s.Create(ctx, setB.ID, 2, "stray reply", "markdown", &parent.ID)
	assert.ErrorIs(t, err, ErrWrongCommentSet)
}

func TestEditOnlyByAuthor(t *testing.T) {
	_, s := newCommentService(t)
	ctx := context.Background()
	set := mustCommentSet(t, s)

	comment, err := s.Create(ctx, set.ID, 1, "original", "markdown", nil)
	require.NoError(t, err)
	assert.Nil(t, comment.EditedAt)

	_, err = s.Edit(ctx, comment.ID, 2, "hijacked")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	edited, err := s.Edit(ctx, comment.ID, 1, "updated *text*")
	require.NoError(t, err)
	assert.Equal(t, "updated *text*", edited.Message)
	assert.Contains(t, edited.MessageHTML, "<em>text</em>")
	assert.NotNil(t, edited.EditedAt)
}

func TestDeleteWithRepliesBecomesTombstone(t *testing.T) {
	conn, s := newCommentService(t)
	ctx := context.Background()
	set := mustCommentSet(t, s)

	parent, err := s.Create(ctx, set.ID, 1, "parent", "markdown", nil)
	require.NoError(t, err)
	reply, err := s.Create(ctx, set.ID, 2, "reply", "markdown", &parent.ID)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, parent.ID))

	tombstone, err := s.Get(ctx, parent.ID)
	require.NoError(t, err)
	require.NotNil(t, tombstone)
	assert.Equal(t, models.CommentDeleted, tombstone.Status)
	assert.Nil(t, tombstone.AuthorID)
	assert.Empty(t, tombstone.Message)
	assert.Empty(t, tombstone.MessageHTML)

	// The reply survives, still attached.
	kept, err := s.Get(ctx, reply.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	require.NotNil(t, kept.ReplyToID)
	assert.Equal(t, parent.ID, *kept.ReplyToID)

	got := loadCommentSet(t, conn, set.ID)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, 0, got.CountTopLevel)
	assert.Equal(t, 1, got.CountReplies)
}

func TestDeleteCollapsesTombstoneChain(t *testing.T) {
	conn, s := newCommentService(t)
	ctx := context.Background()
	set := mustCommentSet(t, s)

	parent, err := s.Create(ctx, set.ID, 1, "parent", "markdown", nil)
	require.NoError(t, err)
	reply, err := s.Create(ctx, set.ID, 2, "reply", "markdown", &parent.ID)
	require.NoError(t, err)

	// Tombstone the parent, then remove its last real descendant: both
	// nodes must disappear.
	require.NoError(t, s.Delete(ctx, parent.ID))
	require.NoError(t, s.Delete(ctx, reply.ID))

	var remaining int64
	require.NoError(t, conn.Model(&models.Comment{}).
		Where("comment_set_id = ?", set.ID).Count(&remaining).Error)
	assert.EqualValues(t, 0, remaining)

	// Owned vote sets are gone with their comments.
	var voteSets int64
	require.NoError(t, conn.Model(&models.VoteSet{}).
		Where("type = ?", "CMNT").Count(&voteSets).Error)
	assert.EqualValues(t, 0, voteSets)

	got := loadCommentSet(t, conn, set.ID)
	assert.Equal(t, 0, got.Count)
	assert.Equal(t, 0, got.CountTopLevel)
	assert.Equal(t, 0, got.CountReplies)
}

func TestDeleteKeepsTombstoneWithOtherChildren(t *testing.T) {
	conn, s := newCommentService(t)
	ctx := context.Background()
	set := mustCommentSet(t, s)

	parent, err := s.Create(ctx, set.ID, 1, "parent", "markdown", nil)
	require.NoError(t, err)
	first, err := s.Create(ctx, set.ID, 2, "first reply", "markdown", &parent.ID)
	require.NoError(t, err)
	second, err := s.Create(ctx, set.ID, 3, "second reply", "markdown", &parent.ID)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, parent.ID))
	require.NoError(t, s.Delete(ctx, first.ID))

	// The tombstone still guards the second reply.
	tombstone, err := s.Get(ctx, parent.ID)
	require.NoError(t, err)
	require.NotNil(t, tombstone)
	assert.Equal(t, models.CommentDeleted, tombstone.Status)

	kept, err := s.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	got := loadCommentSet(t, conn, set.ID)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, 1, got.CountReplies)
}

func TestDeleteChildlessHardDeletes(t *testing.T) {
	conn, s := newCommentService(t)
	ctx := context.Background()
	set := mustCommentSet(t, s)

	comment, err := s.Create(ctx, set.ID, 1, "short lived", "markdown", nil)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, comment.ID))

	gone, err := s.Get(ctx, comment.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	got := loadCommentSet(t, conn, set.ID)
	assert.Equal(t, 0, got.Count)
	assert.Equal(t, 0, got.CountTopLevel)
}

func TestSortedRepliesOrderedByVoteCount(t *testing.T) {
	conn, s := newCommentService(t)
	voting := NewVotingService(conn)
	ctx := context.Background()
	set := mustCommentSet(t, s)

	parent, err := s.Create(ctx, set.ID, 1, "parent", "markdown", nil)
	require.NoError(t, err)

	popular, err := s.Create(ctx, set.ID, 2, "popular", "markdown", &parent.ID)
	require.NoError(t, err)
	middle, err := s.Create(ctx, set.ID, 3, "middle", "markdown", &parent.ID)
	require.NoError(t, err)
	quiet, err := s.Create(ctx, set.ID, 4, "quiet", "markdown", &parent.ID)
	require.NoError(t, err)

	for _, user := range []uint{10, 11, 12} {
		_, err = voting.Vote(ctx, popular.VoteSetID, user, intPtr(1))
		require.NoError(t, err)
	}
	_, err = voting.Vote(ctx, middle.VoteSetID, 10, intPtr(-1))
	require.NoError(t, err)

	replies, err := s.SortedReplies(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, replies, 3)

	// Ascending by vote count, not score: the downvoted reply has count 1
	// and still sorts ahead of the thrice-upvoted one.
	assert.Equal(t, quiet.ID, replies[0].ID)
	assert.Equal(t, middle.ID, replies[1].ID)
	assert.Equal(t, popular.ID, replies[2].ID)
}

func TestRecountRestoresCounters(t *testing.T) {
	conn, s := newCommentService(t)
	ctx := context.Background()
	set := mustCommentSet(t, s)

	top, err := s.Create(ctx, set.ID, 1, "top", "markdown", nil)
	require.NoError(t, err)
	_, err = s.Create(ctx, set.ID, 2, "reply", "markdown", &top.ID)
	require.NoError(t, err)
	hidden, err := s.Create(ctx, set.ID, 3, "screened later", "markdown", nil)
	require.NoError(t, err)

	// A screened comment drops out of every counter.
	require.NoError(t, conn.Model(&models.Comment{}).Where("id = ?", hidden.ID).
		UpdateColumn("status", models.CommentScreened).Error)

	require.NoError(t, conn.Model(&models.CommentSet{}).Where("id = ?", set.ID).
		UpdateColumns(map[string]interface{}{
			"count": 42, "count_toplevel": 40, "count_replies": 2,
		}).Error)
	require.NoError(t, s.Recount(ctx, set.ID))

	got := loadCommentSet(t, conn, set.ID)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 1, got.CountTopLevel)
	assert.Equal(t, 1, got.CountReplies)
}

func TestHTMLParserTagSanitizesOnly(t *testing.T) {
	_, s := newCommentService(t)
	ctx := context.Background()
	set := mustCommentSet(t, s)

	comment, err := s.Create(ctx, set.ID, 1,
		`<em>fine</em><script>alert("no")</script>`, "html", nil)
	require.NoError(t, err)
	assert.Contains(t, comment.MessageHTML, "<em>fine</em>")
	assert.NotContains(t, comment.MessageHTML, "<script>")
}

package services

import (
	"context"
	"testing"

	"commentease/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// buildChain creates a root -> mid -> leaf thread and returns the nodes.
func buildChain(t *testing.T, s *CommentService) (root, mid, leaf *models.Comment) {
	t.Helper()
	ctx := context.Background()
	set := mustCommentSet(t, s)

	root, err := s.Create(ctx, set.ID, 1, "root", "markdown", nil)
	require.NoError(t, err)
	mid, err = s.Create(ctx, set.ID, 2, "mid", "markdown", &root.ID)
	require.NoError(t, err)
	leaf, err = s.Create(ctx, set.ID, 3, "leaf", "markdown", &mid.ID)
	require.NoError(t, err)
	return root, mid, leaf
}

func TestTreeEntriesOnCreate(t *testing.T) {
	conn, s := newCommentService(t)
	tree := NewTreeService(conn)
	ctx := context.Background()

	root, mid, leaf := buildChain(t, s)

	// Self-pairs are stored at depth 0.
	depth, err := tree.Depth(ctx, root.ID, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	depth, err = tree.Depth(ctx, root.ID, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	// Unrelated pairs report -1.
	depth, err = tree.Depth(ctx, leaf.ID, root.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, depth)

	ancestors, err := tree.Ancestors(ctx, leaf.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, root.ID, ancestors[0].ID)
	assert.Equal(t, mid.ID, ancestors[1].ID)

	descendants, err := tree.Descendants(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, descendants, 2)
	assert.Equal(t, mid.ID, descendants[0].ID)
	assert.Equal(t, leaf.ID, descendants[1].ID)
}

func TestTreeEntriesRemovedOnHardDelete(t *testing.T) {
	conn, s := newCommentService(t)
	tree := NewTreeService(conn)
	ctx := context.Background()

	root, mid, leaf := buildChain(t, s)

	require.NoError(t, s.Delete(ctx, leaf.ID))

	var rows int64
	require.NoError(t, conn.Model(&models.CommentTreeEntry{}).
		Where("descendant_id = ?", leaf.ID).Count(&rows).Error)
	assert.EqualValues(t, 0, rows)

	// The surviving pair is intact.
	depth, err := tree.Depth(ctx, root.ID, mid.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestTreeCascadeRemovesWholeChain(t *testing.T) {
	conn, s := newCommentService(t)
	ctx := context.Background()

	root, mid, leaf := buildChain(t, s)

	// Tombstone root and mid, then delete the leaf: the collapse removes
	// every node and every index row.
	require.NoError(t, s.Delete(ctx, root.ID))
	require.NoError(t, s.Delete(ctx, mid.ID))
	require.NoError(t, s.Delete(ctx, leaf.ID))

	var rows int64
	require.NoError(t, conn.Model(&models.CommentTreeEntry{}).Count(&rows).Error)
	assert.EqualValues(t, 0, rows)
}

func TestTreeRebuildReproducesIndex(t *testing.T) {
	conn, s := newCommentService(t)
	tree := NewTreeService(conn)
	ctx := context.Background()

	root, _, leaf := buildChain(t, s)

	var before int64
	require.NoError(t, conn.Model(&models.CommentTreeEntry{}).Count(&before).Error)

	// Wipe the index, then rebuild it from the adjacency list.
	require.NoError(t, conn.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.CommentTreeEntry{}).Error)
	require.NoError(t, tree.Rebuild(ctx, root.CommentSetID))

	var after int64
	require.NoError(t, conn.Model(&models.CommentTreeEntry{}).Count(&after).Error)
	assert.Equal(t, before, after)

	depth, err := tree.Depth(ctx, root.ID, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
}

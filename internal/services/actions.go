package services

import (
	"context"
	"strconv"

	"commentease/internal/models"
)

// Capability tags consulted before mutating engine calls.
const (
	CapVote     = "vote"
	CapComment  = "comment"
	CapModerate = "moderate"
)

// PermissionChecker reports the capabilities a user holds on an entity.
// It is consulted before any store mutation; a missing capability aborts
// the operation.
type PermissionChecker interface {
	Permissions(entity any, userID uint) []string
}

// AllowAll grants every capability to any user with a non-zero id.
// Suitable default for applications that gate access upstream.
type AllowAll struct{}

func (AllowAll) Permissions(entity any, userID uint) []string {
	if userID == 0 {
		return nil
	}
	return []string{CapVote, CapComment}
}

// CommentSubmission is the structured input of CommentAction. Exactly one
// intent applies: EditID set means edit, DeleteID set means delete,
// otherwise a new comment (a reply when ReplyToID is set).
type CommentSubmission struct {
	Message   string
	Parser    string
	ReplyToID *uint
	EditID    *uint
	DeleteID  *uint
}

// ActionDispatcher translates inbound user intents into engine calls.
// It sits above the engines and below the (external) HTTP layer.
type ActionDispatcher struct {
	voting   *VotingService
	comments *CommentService
	perms    PermissionChecker
}

func NewActionDispatcher(voting *VotingService, comments *CommentService, perms PermissionChecker) *ActionDispatcher {
	if perms == nil {
		perms = AllowAll{}
	}
	return &ActionDispatcher{voting: voting, comments: comments, perms: perms}
}

// VoteAction performs one voting intent on the entity's vote set.
// Recognized actions: "vote", "votedown", "cancel", or a numeric payload
// for RANGE/CUSTOM sets. Anything else fails with ErrUnknownAction.
func (d *ActionDispatcher) VoteAction(ctx context.Context, entity models.HasVoteSet, userID uint, action string) (*models.VoteRecord, error) {
	if !hasCap(d.perms.Permissions(entity, userID), CapVote) {
		return nil, ErrPermissionDenied
	}
	voteSetID, ok := entity.GetVoteSetID()
	if !ok {
		return nil, ErrPermissionDenied
	}

	set, err := d.voting.GetVoteSet(ctx, voteSetID)
	if err != nil {
		return nil, err
	}

	switch action {
	case "vote":
		if set.Pattern == models.PatternUpOnly {
			return d.voting.Vote(ctx, voteSetID, userID, nil)
		}
		up := 1
		return d.voting.Vote(ctx, voteSetID, userID, &up)
	case "votedown":
		down := -1
		return d.voting.Vote(ctx, voteSetID, userID, &down)
	case "cancel":
		return nil, d.voting.CancelVote(ctx, voteSetID, userID)
	default:
		if n, err := strconv.Atoi(action); err == nil {
			return d.voting.Vote(ctx, voteSetID, userID, &n)
		}
		return nil, ErrUnknownAction
	}
}

// CommentAction routes a structured submission to the comment engine.
func (d *ActionDispatcher) CommentAction(ctx context.Context, entity models.HasCommentSet, userID uint, sub CommentSubmission) (*models.Comment, error) {
	caps := d.perms.Permissions(entity, userID)
	if !hasCap(caps, CapComment) {
		return nil, ErrPermissionDenied
	}
	commentSetID, ok := entity.GetCommentSetID()
	if !ok {
		return nil, ErrPermissionDenied
	}

	switch {
	case sub.DeleteID != nil:
		target, err := d.comments.Get(ctx, *sub.DeleteID)
		if err != nil {
			return nil, err
		}
		if target == nil || target.CommentSetID != commentSetID {
			return nil, ErrWrongCommentSet
		}
		owner := target.AuthorID != nil && *target.AuthorID == userID
		if !owner && !hasCap(caps, CapModerate) {
			return nil, ErrNotAuthorized
		}
		return nil, d.comments.Delete(ctx, target.ID)
	case sub.EditID != nil:
		target, err := d.comments.Get(ctx, *sub.EditID)
		if err != nil {
			return nil, err
		}
		if target == nil || target.CommentSetID != commentSetID {
			return nil, ErrWrongCommentSet
		}
		return d.comments.Edit(ctx, target.ID, userID, sub.Message)
	default:
		return d.comments.Create(ctx, commentSetID, userID, sub.Message, sub.Parser, sub.ReplyToID)
	}
}

func hasCap(caps []string, want string) bool {
	for _, c := range caps {
		if c == want {
			return true
		}
	}
	return false
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/kharelcodes/bloghub/internal/config"
	"github.com/kharelcodes/bloghub/internal/domain/blog"
	"github.com/kharelcodes/bloghub/internal/domain/comment"
	"github.com/kharelcodes/bloghub/internal/domain/job"
	"github.com/kharelcodes/bloghub/internal/domain/user"
	"github.com/kharelcodes/bloghub/internal/http/middlewares"
	"github.com/kharelcodes/bloghub/internal/jobs"
)

type CommentStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, c comment.Comment) (comment.Comment, error)
	GetByID(ctx context.Context, id string) (comment.Comment, error)
	ListByBlog(ctx context.Context, blogID string) ([]comment.Comment, error)
	Delete(ctx context.Context, id string) error
}

type JobTxEnqueuer interface {
	CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error)
}

type BlogReader interface {
	GetByID(ctx context.Context, id string) (blog.Blog, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type CommentsHandler struct {
	comments CommentStore
	blogs    BlogReader
	users    UserGetter
	jobs     JobTxEnqueuer
}

func NewCommentsHandler(comments CommentStore, blogs BlogReader, users UserGetter, jobQueue JobTxEnqueuer) *CommentsHandler {
	return &CommentsHandler{
		comments: comments,
		blogs:    blogs,
		users:    users,
		jobs:     jobQueue,
	}
}

// Create inserts the comment and enqueues the owner notification in one
// transaction: either both land or neither does.
func (h *CommentsHandler) Create(ctx *gin.Context) {
	blogID := ctx.Param("id")

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req comment.CreateCommentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	b, err := h.blogs.GetByID(cctx, blogID)

	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return
		}
		RespondInternal(ctx, "Could not create comment")
		return
	}

	commenter, err := h.users.GetByID(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not create comment")
		return
	}

	tx, err := h.comments.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not create comment")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	c, err := h.comments.CreateTx(cctx, tx, comment.NewFromCreateRequest(req, blogID, userID))

	if err != nil {
		if errors.Is(err, comment.ErrParentInvalid) {
			RespondBadRequest(ctx, "Parent comment does not belong to this blog", gin.H{"field": "parentId"})
			return
		}
		RespondInternal(ctx, "Could not create comment")
		return
	}

	// owners don't get notified about their own comments
	if b.UserID != userID {
		payload, perr := jobs.CommentNotifyEmailPayload{
			BlogID:         b.ID,
			CommentID:      c.ID,
			BlogTitle:      b.Title,
			CommenterName:  commenter.FirstName + " " + commenter.LastName,
			RecipientEmail: b.Author.Email,
		}.JSON()

		if perr != nil {
			RespondInternal(ctx, "Could not create comment")
			return
		}

		idemKey := "comment_notify:" + c.ID

		_, err = h.jobs.CreateTx(cctx, tx, job.CreateRequest{
			Type:           string(jobs.JobCommentNotifyEmail),
			Payload:        payload,
			IdempotencyKey: &idemKey,
		})

		if err != nil {
			RespondInternal(ctx, "Could not create comment")
			return
		}
	}

	if err := tx.Commit(cctx); err != nil {
		RespondInternal(ctx, "Could not create comment")
		return
	}

	c.Author = commenter.Summary()

	ctx.JSON(http.StatusCreated, gin.H{"comment": c})
}

func (h *CommentsHandler) ListForBlog(ctx *gin.Context) {
	blogID := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if _, err := h.blogs.GetByID(cctx, blogID); err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return
		}
		RespondInternal(ctx, "Could not list comments")
		return
	}

	comments, err := h.comments.ListByBlog(cctx, blogID)

	if err != nil {
		RespondInternal(ctx, "Could not list comments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"comments": comments})
}

// Delete removes a comment. The author may always delete their own; admins
// may remove anyone's.
func (h *CommentsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("commentId")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	c, err := h.comments.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			RespondNotFound(ctx, "Comment not found")
			return
		}
		RespondInternal(ctx, "Could not delete comment")
		return
	}

	actorID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || (actorID != c.UserID && !middlewares.IsAdminFromContext(ctx)) {
		RespondForbidden(ctx, "Only the comment author or an admin may delete this comment.")
		return
	}

	if err := h.comments.Delete(cctx, id); err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			RespondNotFound(ctx, "Comment not found")
			return
		}
		RespondInternal(ctx, "Could not delete comment")
		return
	}

	ctx.Status(http.StatusNoContent)
}

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/kharelcodes/bloghub/internal/domain/blog"
	"github.com/kharelcodes/bloghub/internal/domain/comment"
	"github.com/kharelcodes/bloghub/internal/domain/job"
	"github.com/kharelcodes/bloghub/internal/domain/user"
	"github.com/kharelcodes/bloghub/internal/http/handlers"
	"github.com/kharelcodes/bloghub/internal/jobs"
)

// fakeTx satisfies pgx.Tx for the two methods the handler touches.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeCommentsRepo struct {
	tx         *fakeTx
	createTxFn func(ctx context.Context, tx pgx.Tx, c comment.Comment) (comment.Comment, error)
	getFn      func(ctx context.Context, id string) (comment.Comment, error)
	listFn     func(ctx context.Context, blogID string) ([]comment.Comment, error)
	deleteFn   func(ctx context.Context, id string) error
}

func (f *fakeCommentsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if f.tx == nil {
		f.tx = &fakeTx{}
	}
	return f.tx, nil
}

func (f *fakeCommentsRepo) CreateTx(ctx context.Context, tx pgx.Tx, c comment.Comment) (comment.Comment, error) {
	if f.createTxFn != nil {
		return f.createTxFn(ctx, tx, c)
	}
	return c, nil
}

func (f *fakeCommentsRepo) GetByID(ctx context.Context, id string) (comment.Comment, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return comment.Comment{ID: id}, nil
}

func (f *fakeCommentsRepo) ListByBlog(ctx context.Context, blogID string) ([]comment.Comment, error) {
	if f.listFn != nil {
		return f.listFn(ctx, blogID)
	}
	return nil, nil
}

func (f *fakeCommentsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeTxJobQueue struct {
	created []job.CreateRequest
}

func (f *fakeTxJobQueue) CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error) {
	f.created = append(f.created, req)
	return job.New(req), nil
}

func commentsRouter(h *handlers.CommentsHandler, actorID string, actorAdmin bool) *gin.Engine {
	r := gin.New()

	r.POST("/blogs/:id/comments", asUser(actorID, actorAdmin), h.Create)
	r.DELETE("/blogs/:id/comments/:commentId", asUser(actorID, actorAdmin), h.Delete)
	r.GET("/blogs/:id/comments", h.ListForBlog)

	return r
}

func blogOwnedBy(ownerID, ownerEmail string) *fakeBlogsRepo {
	return &fakeBlogsRepo{
		getFn: func(ctx context.Context, id string) (blog.Blog, error) {
			return blog.Blog{
				ID:     id,
				UserID: ownerID,
				Title:  "Owner's post",
				Author: user.Summary{ID: ownerID, Email: ownerEmail},
			}, nil
		},
	}
}

func TestCreateComment_NotifiesOwnerInSameTx(t *testing.T) {
	commentsRepo := &fakeCommentsRepo{}
	queue := &fakeTxJobQueue{}

	usersRepo := &fakeUsersRepo{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			return user.User{ID: id, FirstName: "Ada", LastName: "Lovelace"}, nil
		},
	}

	h := handlers.NewCommentsHandler(commentsRepo, blogOwnedBy("owner", "owner@example.com"), usersRepo, queue)

	r := commentsRouter(h, "commenter", false)

	req := httptest.NewRequest(http.MethodPost, "/blogs/b1/comments",
		bytes.NewBufferString(`{"content":"Nice post!"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201, body=%s", w.Code, w.Body.String())
	}

	if !commentsRepo.tx.committed {
		t.Fatalf("expected the transaction to commit")
	}

	if len(queue.created) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(queue.created))
	}

	created := queue.created[0]
	if created.Type != string(jobs.JobCommentNotifyEmail) {
		t.Fatalf("unexpected job type %q", created.Type)
	}
	if created.IdempotencyKey == nil {
		t.Fatalf("expected an idempotency key on the notification job")
	}

	var payload jobs.CommentNotifyEmailPayload
	if err := json.Unmarshal(created.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.RecipientEmail != "owner@example.com" {
		t.Fatalf("notification addressed to %q, want owner", payload.RecipientEmail)
	}
	if payload.CommenterName != "Ada Lovelace" {
		t.Fatalf("unexpected commenter name %q", payload.CommenterName)
	}
}

func TestCreateComment_OwnCommentSkipsNotification(t *testing.T) {
	commentsRepo := &fakeCommentsRepo{}
	queue := &fakeTxJobQueue{}

	h := handlers.NewCommentsHandler(commentsRepo, blogOwnedBy("owner", "owner@example.com"), &fakeUsersRepo{}, queue)

	r := commentsRouter(h, "owner", false)

	req := httptest.NewRequest(http.MethodPost, "/blogs/b1/comments",
		bytes.NewBufferString(`{"content":"Replying on my own post"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201, body=%s", w.Code, w.Body.String())
	}
	if len(queue.created) != 0 {
		t.Fatalf("expected no notification for the owner's own comment, got %d", len(queue.created))
	}
}

func TestCreateComment_InvalidParent(t *testing.T) {
	commentsRepo := &fakeCommentsRepo{
		createTxFn: func(ctx context.Context, tx pgx.Tx, c comment.Comment) (comment.Comment, error) {
			return comment.Comment{}, comment.ErrParentInvalid
		},
	}

	h := handlers.NewCommentsHandler(commentsRepo, blogOwnedBy("owner", "owner@example.com"), &fakeUsersRepo{}, &fakeTxJobQueue{})

	r := commentsRouter(h, "commenter", false)

	req := httptest.NewRequest(http.MethodPost, "/blogs/b1/comments",
		bytes.NewBufferString(`{"content":"reply","parentId":"6a0cb9bf-2b3f-4f60-9c1a-54c64f1a0a11"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}
}

func TestCreateComment_MissingBlog(t *testing.T) {
	blogs := &fakeBlogsRepo{
		getFn: func(ctx context.Context, id string) (blog.Blog, error) {
			return blog.Blog{}, blog.ErrNotFound
		},
	}

	h := handlers.NewCommentsHandler(&fakeCommentsRepo{}, blogs, &fakeUsersRepo{}, &fakeTxJobQueue{})

	r := commentsRouter(h, "commenter", false)

	req := httptest.NewRequest(http.MethodPost, "/blogs/missing/comments",
		bytes.NewBufferString(`{"content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
	}
}

// Comment removal allows the author and any admin, unlike blog edits.
func TestDeleteComment_Authorization(t *testing.T) {
	tests := []struct {
		name       string
		actorID    string
		actorAdmin bool
		wantStatus int
	}{
		{name: "author_allowed", actorID: "author", wantStatus: http.StatusNoContent},
		{name: "admin_allowed", actorID: "moderator", actorAdmin: true, wantStatus: http.StatusNoContent},
		{name: "other_forbidden", actorID: "intruder", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			commentsRepo := &fakeCommentsRepo{
				getFn: func(ctx context.Context, id string) (comment.Comment, error) {
					return comment.Comment{ID: id, BlogID: "b1", UserID: "author"}, nil
				},
			}

			h := handlers.NewCommentsHandler(commentsRepo, blogOwnedBy("owner", "owner@example.com"), &fakeUsersRepo{}, &fakeTxJobQueue{})

			r := commentsRouter(h, tt.actorID, tt.actorAdmin)

			req := httptest.NewRequest(http.MethodDelete, "/blogs/b1/comments/c1", nil)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

package comment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kharelcodes/bloghub/internal/domain/user"
)

type Comment struct {
	ID        string       `json:"id"`
	BlogID    string       `json:"blogId"`
	UserID    string       `json:"userId"`
	ParentID  *string      `json:"parentId,omitempty"` // nil for top-level comments
	Content   string       `json:"content"`
	Author    user.Summary `json:"author"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

var (
	ErrNotFound      = errors.New("comment not found")
	ErrParentInvalid = errors.New("parent comment does not belong to this blog")
)

type CreateCommentRequest struct {
	Content  string  `json:"content" binding:"required,min=1,max=2000"`
	ParentID *string `json:"parentId" binding:"omitempty,uuid"`
}

func NewFromCreateRequest(req CreateCommentRequest, blogID, authorID string) Comment {
	now := time.Now().UTC()

	return Comment{
		ID:        uuid.NewString(),
		BlogID:    blogID,
		UserID:    authorID,
		ParentID:  req.ParentID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

package blog

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateBlogRequest, ownerID string) Blog {
	now := time.Now().UTC()

	return Blog{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Title:     req.Title,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

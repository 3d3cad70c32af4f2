package blog

import (
	"errors"
	"time"

	"github.com/kharelcodes/bloghub/internal/domain/user"
)

type Blog struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	ImageURL  string       `json:"imageUrl,omitempty"`
	Author    user.Summary `json:"author"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

var ErrNotFound = errors.New("blog not found")

type CreateBlogRequest struct {
	Title    string `json:"title" binding:"required,min=3,max=200"`
	Content  string `json:"content" binding:"required"`
	ImageURL string `json:"imageUrl" binding:"omitempty,url"`
}

// Partial update; nil fields are left unchanged.
type UpdateBlogRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=3,max=200"`
	Content  *string `json:"content" binding:"omitempty"`
	ImageURL *string `json:"imageUrl" binding:"omitempty,url"`
}

type ListFilter struct {
	Page  int
	Limit int
	Title *string
}

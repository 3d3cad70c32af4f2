package user

import (
	"errors"
	"time"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	IsAdmin      bool       `json:"isAdmin"`
	ResetCode    *string    `json:"-"`
	ResetCodeExp *time.Time `json:"-"` // stored, not enforced
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

var (
	ErrNotFound         = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required,min=1,max=80"`
	LastName  string `json:"lastName" binding:"required,min=1,max=80"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=80"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=80"`
	Email     *string `json:"email" binding:"omitempty,email"`
}

// Summary is the public shape embedded in blog/comment responses.
type Summary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (u User) Summary() Summary {
	return Summary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

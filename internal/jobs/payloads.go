package jobs

import (
	"encoding/json"
	"time"
)

// PasswordResetEmailPayload carries the reset code issued for a user.
// Keep payloads minimal and ID-based; the worker loads anything else from DB.
type PasswordResetEmailPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Code        string    `json:"code"`
	RequestedAt time.Time `json:"requestedAt"`
}

// CommentNotifyEmailPayload tells a blog owner someone commented.
type CommentNotifyEmailPayload struct {
	BlogID         string `json:"blogId"`
	CommentID      string `json:"commentId"`
	BlogTitle      string `json:"blogTitle"`
	CommenterName  string `json:"commenterName"`
	RecipientEmail string `json:"recipientEmail"`
}

func (p PasswordResetEmailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func (p CommentNotifyEmailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

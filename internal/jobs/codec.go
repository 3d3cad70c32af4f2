package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobPasswordResetEmail:
		switch payload.(type) {
		case PasswordResetEmailPayload, *PasswordResetEmailPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}

	case JobCommentNotifyEmail:
		switch payload.(type) {
		case CommentNotifyEmailPayload, *CommentNotifyEmailPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals a raw job payload into the typed struct for the
// given job type.
func DecodePayload(t JobType, raw []byte) (any, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(raw) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch t {
	case JobPasswordResetEmail:
		var p PasswordResetEmailPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case JobCommentNotifyEmail:
		var p CommentNotifyEmailPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}

// ValidatePayload performs minimal validation on decoded payloads.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case JobPasswordResetEmail:
		var p PasswordResetEmailPayload
		switch v := payload.(type) {
		case PasswordResetEmailPayload:
			p = v
		case *PasswordResetEmailPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.UserID) == "" || trim(p.Email) == "" || trim(p.Code) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobCommentNotifyEmail:
		var p CommentNotifyEmailPayload
		switch v := payload.(type) {
		case CommentNotifyEmailPayload:
			p = v
		case *CommentNotifyEmailPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.BlogID) == "" || trim(p.CommentID) == "" || trim(p.RecipientEmail) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}

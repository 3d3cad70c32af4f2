package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecode_PasswordResetEmail(t *testing.T) {
	payload := PasswordResetEmailPayload{
		UserID:      "user-123",
		Email:       "reader@example.com",
		Code:        "Ab3dEf",
		RequestedAt: time.Now().UTC(),
	}

	b, err := EncodePayload(JobPasswordResetEmail, payload)
	if err != nil {
		t.Fatalf("EncodePayload error: %v", err)
	}

	decoded, err := DecodePayload(JobPasswordResetEmail, b)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}

	p, ok := decoded.(PasswordResetEmailPayload)
	if !ok {
		t.Fatalf("expected PasswordResetEmailPayload, got %T", decoded)
	}

	if p.Code != payload.Code {
		t.Fatalf("expected code %s, got %s", payload.Code, p.Code)
	}
	if p.Email != payload.Email {
		t.Fatalf("expected email %s, got %s", payload.Email, p.Email)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(JobPasswordResetEmail, CommentNotifyEmailPayload{
		BlogID:         "b1",
		CommentID:      "c1",
		RecipientEmail: "owner@example.com",
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestDecodePayload_InvalidType(t *testing.T) {
	_, err := DecodePayload(JobType("email.unknown"), []byte(`{}`))
	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestDecodePayload_EmptyRaw(t *testing.T) {
	_, err := DecodePayload(JobPasswordResetEmail, nil)
	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}

func TestValidatePayload_RequiredFields(t *testing.T) {
	err := ValidatePayload(JobPasswordResetEmail, PasswordResetEmailPayload{Email: "x@y.z"})
	if err == nil {
		t.Fatalf("expected error for missing code")
	}

	err = ValidatePayload(JobCommentNotifyEmail, CommentNotifyEmailPayload{BlogID: "b1"})
	if err == nil {
		t.Fatalf("expected error for missing recipient")
	}

	err = ValidatePayload(JobCommentNotifyEmail, CommentNotifyEmailPayload{
		BlogID:         "b1",
		CommentID:      "c1",
		RecipientEmail: "owner@example.com",
	})
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

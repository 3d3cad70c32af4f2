package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kharelcodes/bloghub/internal/config"
	"github.com/kharelcodes/bloghub/internal/domain/job"
	"github.com/kharelcodes/bloghub/internal/domain/user"
	"github.com/kharelcodes/bloghub/internal/jobs"
	"github.com/kharelcodes/bloghub/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error)
}

type ResetCodeStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	SetResetCode(ctx context.Context, id, code string, expiry time.Time) error
	ConsumeResetCode(ctx context.Context, id, passwordHash string) error
}

type TokenIssuer interface {
	GenerateToken(userID string, isAdmin bool) (string, error)
}

type JobEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	resets     ResetCodeStore
	jwt        TokenIssuer
	jobs       JobEnqueuer
}

func NewAuthHandler(users UserReader, userWriter UserWriter, resets ResetCodeStore, jwt TokenIssuer, jobQueue JobEnqueuer) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		resets:     resets,
		jwt:        jwt,
		jobs:       jobQueue,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ResetCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

const resetCodeTTL = 15 * time.Minute

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.userWriter.Create(cctx, req.Email, hash, req.FirstName, req.LastName)

	if err != nil {
		if errors.Is(err, user.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for the lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	accessToken, err := h.jwt.GenerateToken(foundUser.ID, foundUser.IsAdmin)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"user":        foundUser,
	})
}

// RequestResetCode issues a fresh code for the account and queues the email.
// A new request overwrites any code still outstanding.
func (h *AuthHandler) RequestResetCode(ctx *gin.Context) {
	var req ResetCodeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	foundUser, err := h.resets.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "No account found for that email.")
			return
		}
		RespondInternal(ctx, "Could not issue reset code")
		return
	}

	code, err := security.NewResetCode()

	if err != nil {
		RespondInternal(ctx, "Could not issue reset code")
		return
	}

	err = h.resets.SetResetCode(cctx, foundUser.ID, code, time.Now().UTC().Add(resetCodeTTL))

	if err != nil {
		RespondInternal(ctx, "Could not issue reset code")
		return
	}

	payload, err := jobs.PasswordResetEmailPayload{
		UserID:      foundUser.ID,
		Email:       foundUser.Email,
		Code:        code,
		RequestedAt: time.Now().UTC(),
	}.JSON()

	if err != nil {
		RespondInternal(ctx, "Could not issue reset code")
		return
	}

	_, err = h.jobs.Create(cctx, job.CreateRequest{
		Type:    string(jobs.JobPasswordResetEmail),
		Payload: payload,
	})

	if err != nil {
		RespondInternal(ctx, "Could not issue reset code")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Reset code sent."})
}

// ResetPassword verifies the presented code and swaps in the new password.
// The consume clears the code, so a second attempt with the same code fails.
func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	foundUser, err := h.resets.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "No account found for that email.")
			return
		}
		RespondInternal(ctx, "Could not reset password")
		return
	}

	if foundUser.ResetCode == nil || *foundUser.ResetCode != req.Code {
		RespondError(ctx, http.StatusBadRequest, "invalid_code", "Reset code is invalid.", nil)
		return
	}

	hash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	err = h.resets.ConsumeResetCode(cctx, foundUser.ID, hash)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password updated."})
}

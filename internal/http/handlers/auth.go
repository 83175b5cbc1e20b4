package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/citypulse/cityhub/internal/auth"
	"github.com/citypulse/cityhub/internal/config"
	"github.com/citypulse/cityhub/internal/domain/user"
	"github.com/citypulse/cityhub/internal/http/middlewares"
	"github.com/citypulse/cityhub/internal/store"
	"github.com/gin-gonic/gin"
)

// Keep the interface handler-sized so tests can fake it easily.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (user.User, string, error)
	Login(ctx context.Context, email, password string) (user.User, string, error)
	UserByID(ctx context.Context, id string) (user.User, error)
	UpdateProfile(ctx context.Context, userID string, upd store.UserUpdate) (user.User, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest uses pointers so an omitted field is distinguishable
// from an explicit zero value; omission leaves the stored value untouched.
type UpdateUserRequest struct {
	DisplayName *string           `json:"displayName"`
	UserName    *string           `json:"userName"`
	Preferences *user.Preferences `json:"preferences"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, token, err := h.svc.Signup(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, auth.ErrEmailAlreadyRegistered) {
			RespondError(ctx, http.StatusBadRequest, "email_taken", "Email already registered", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"user":  u,
		"token": token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, token, err := h.svc.Login(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password")
			return
		}

		RespondInternal(ctx, "Could not log in")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user":  u,
		"token": token,
	})
}

// Me returns the public projection of the token's subject. The bearer gate
// has already run; a 404 here means the token outlived its user.
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Invalid token")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.svc.UserByID(cctx, userID)

	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AuthHandler) UpdateUser(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Invalid token")
		return
	}

	var req UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.svc.UpdateProfile(cctx, userID, store.UserUpdate{
		DisplayName: req.DisplayName,
		UserName:    req.UserName,
		Preferences: req.Preferences,
	})

	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

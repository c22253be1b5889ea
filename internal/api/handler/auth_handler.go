package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/config"
	"loan-engine/internal/domain/user"
	"loan-engine/internal/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	users  user.UserRepository
	cfg    config.AuthConfig
	logger *slog.Logger
}

func NewAuthHandler(users user.UserRepository, cfg config.AuthConfig, l *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		cfg:    cfg,
		logger: l.With("component", "AuthHandler"),
	}
}

// Login authenticates a user and issues a JWT bearer token.
//
// @Summary Authenticate and obtain a bearer token
// @Description Verifies username and password and returns a signed JWT carrying the caller's role and linked customer id.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "credentials"
// @Success 200 {object} dto.LoginResponse "Token successfully generated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request parameters"
// @Failure 401 {object} dto.ErrorResponse "Bad credentials"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Error("failed to decode login request", "error", err)
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	account, err := h.users.FindByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.logger.Warn("Login attempt for unknown user", "username", req.Username)
			respondError(w, apperrors.ErrUnauthorized)
			return
		}
		respondError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		h.logger.Warn("Login attempt with bad password", "username", req.Username)
		respondError(w, apperrors.ErrUnauthorized)
		return
	}

	tokenTTL := h.cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	claims := jwt.MapClaims{
		"username": account.Username,
		"role":     string(account.Role),
		"exp":      time.Now().Add(tokenTTL).Unix(),
	}
	if account.CustomerID != nil {
		claims["customerId"] = *account.CustomerID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		h.logger.Error("failed to sign token", "error", err)
		respondError(w, apperrors.ErrInternalServer)
		return
	}

	h.logger.Info("Issued bearer token", "username", account.Username, "role", account.Role)
	respondJSON(w, http.StatusOK, dto.LoginResponse{
		Token:    tokenString,
		Username: account.Username,
		Role:     string(account.Role),
	})
}

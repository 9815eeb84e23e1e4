package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"plp-bookstore/internal/utils"
)

// Credentials is the single operator account allowed to call the step routes.
type Credentials struct {
	UserID   string
	Username string
	Password string
}

type AuthHandler struct {
	creds  Credentials
	logger *zap.Logger
}

func NewAuthHandler(creds Credentials, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{creds: creds, logger: logger}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// POST /login
func (a *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !a.matches(req) {
		a.logger.Info("login refused", zap.String("username", req.Username))
		utils.JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := utils.GenerateJWT(a.creds.UserID)
	if err != nil {
		a.logger.Error("token generation failed", zap.Error(err))
		utils.JSONError(w, "Token generation failed", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(LoginResponse{Token: token})
}

// an unset username disables login entirely
func (a *AuthHandler) matches(req LoginRequest) bool {
	if a.creds.Username == "" {
		return false
	}
	user := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.creds.Username))
	pass := subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.creds.Password))
	return user&pass == 1
}

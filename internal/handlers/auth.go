package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/vitalboard/server/internal/auth"
	"github.com/vitalboard/server/internal/credentials"
	"github.com/vitalboard/server/pkg/errors"
	"github.com/vitalboard/server/pkg/metrics"
	"github.com/vitalboard/server/pkg/response"
)

// AuthHandler manages the credential flows: verification codes,
// registration, login/logout, password reset, and session introspection.
type AuthHandler struct {
	credentials *credentials.Service
	jwt         *iauth.JWTService
	cookies     iauth.CookieWriter
}

func NewAuthHandler(creds *credentials.Service, jwt *iauth.JWTService, cookies iauth.CookieWriter) *AuthHandler {
	return &AuthHandler{credentials: creds, jwt: jwt, cookies: cookies}
}

type sendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/send-verification
func (h *AuthHandler) SendVerification(c *gin.Context) {
	var req sendVerificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.credentials.SendVerificationCode(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	metrics.VerificationCodesIssued.Inc()
	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Code     string `json:"code" validate:"required,len=6"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	identity, err := h.credentials.Register(c.Request.Context(), credentials.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Code,
	})
	if err != nil {
		metrics.Registrations.WithLabelValues(registrationResult(err)).Inc()
		response.Error(c, err)
		return
	}

	metrics.Registrations.WithLabelValues("success").Inc()
	// No session is issued here; the client logs in explicitly.
	response.Success(c, http.StatusOK, identity)
}

func registrationResult(err error) string {
	switch errors.FromError(err).Code {
	case errors.ErrInvalidCode.Code:
		return "invalid_code"
	case errors.ErrEmailAlreadyRegistered.Code:
		return "duplicate"
	default:
		return "error"
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	identity, token, err := h.credentials.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	h.cookies.Set(c, token)
	response.Success(c, http.StatusOK, identity)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.credentials.ResetPassword(c.Request.Context(), credentials.ResetInput{
		Email:    req.Email,
		Code:     req.Code,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}

// GET /api/auth/session
//
// Always 200: the response body, not the status code, says whether the
// caller holds a live session. The token is verified, never trusted for
// mere presence.
func (h *AuthHandler) Session(c *gin.Context) {
	token := iauth.Token(c)
	if token == "" {
		response.Success(c, http.StatusOK, gin.H{"authenticated": false})
		return
	}

	claims, err := h.jwt.Verify(token)
	if err != nil {
		response.Success(c, http.StatusOK, gin.H{"authenticated": false})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"authenticated": true,
		"user": gin.H{
			"name":  claims.Name,
			"email": claims.Email(),
		},
	})
}

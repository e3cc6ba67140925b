package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/config"
	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/security"
)

// AuthHandler handles registration, login, and refresh-token endpoints.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
	audit  *audit.Recorder
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, auditRec *audit.Recorder) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, audit: auditRec}
}

// registerRequest defines the request body for citizen registration.
type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	NationalID string `json:"nationalId"`
}

// Register creates a new citizen account.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	password := strings.TrimSpace(body.Password)
	fullName := strings.TrimSpace(body.FullName)
	if email == "" || password == "" || fullName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email, password or fullName"})
		return
	}
	if len(password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	var exists models.User
	if errCheck := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&exists).Error; errCheck == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user := models.User{
		Email:    email,
		Password: hash,
		FullName: fullName,
		Phone:    strings.TrimSpace(body.Phone),
		Role:     models.RoleCitizen,
		IsActive: true,
	}
	if nationalID := strings.TrimSpace(body.NationalID); nationalID != "" {
		user.NationalID = &nationalID
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "national id already registered"})
		return
	}

	h.audit.Record(&user.ID, audit.ActionRegister, "USER", &user.ID, nil)
	h.respondWithTokens(c, user, http.StatusCreated)
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an account and issues tokens unless MFA is enrolled.
func (h *AuthHandler) Login(c *gin.Context) {
	user, ok := h.authenticate(c)
	if !ok {
		return
	}
	if strings.TrimSpace(user.TOTPSecret) != "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "mfa required", "mfaRequired": true})
		return
	}
	h.audit.Record(&user.ID, audit.ActionLogin, "USER", &user.ID, nil)
	h.respondWithTokens(c, user, http.StatusOK)
}

// loginTOTPRequest defines the request body for MFA login.
type loginTOTPRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// LoginTOTP authenticates an MFA-enrolled account with a one-time code.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	user, ok := h.checkCredentials(c, body.Email, body.Password)
	if !ok {
		return
	}
	if strings.TrimSpace(user.TOTPSecret) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mfa not enrolled"})
		return
	}
	if !totp.Validate(strings.TrimSpace(body.Code), user.TOTPSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	h.audit.Record(&user.ID, audit.ActionLogin, "USER", &user.ID, nil)
	h.respondWithTokens(c, user, http.StatusOK)
}

// refreshRequest defines the request body for token refresh and logout.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates a refresh token and issues a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var body refreshRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	raw := strings.TrimSpace(body.RefreshToken)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing refreshToken"})
		return
	}

	var stored models.RefreshToken
	errFind := h.db.WithContext(c.Request.Context()).
		Where("token_hash = ?", security.HashToken(raw)).
		First(&stored).Error
	if errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	if stored.RevokedAt != nil || stored.ExpiresAt.Before(time.Now()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token expired"})
		return
	}

	var user models.User
	if errUser := h.db.WithContext(c.Request.Context()).First(&user, "id = ?", stored.UserID).Error; errUser != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}

	now := time.Now()
	if errRevoke := h.db.WithContext(c.Request.Context()).Model(&stored).Update("revoked_at", &now).Error; errRevoke != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rotate token failed"})
		return
	}
	h.respondWithTokens(c, user, http.StatusOK)
}

// Logout revokes a refresh token. Access tokens simply age out.
func (h *AuthHandler) Logout(c *gin.Context) {
	var body refreshRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	raw := strings.TrimSpace(body.RefreshToken)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing refreshToken"})
		return
	}
	now := time.Now()
	h.db.WithContext(c.Request.Context()).
		Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", security.HashToken(raw)).
		Update("revoked_at", &now)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// authenticate binds a loginRequest and checks credentials.
func (h *AuthHandler) authenticate(c *gin.Context) (models.User, bool) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return models.User{}, false
	}
	return h.checkCredentials(c, body.Email, body.Password)
}

func (h *AuthHandler) checkCredentials(c *gin.Context, email, password string) (models.User, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email or password"})
		return models.User{}, false
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return models.User{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return models.User{}, false
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return models.User{}, false
	}
	if !security.CheckPassword(user.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return models.User{}, false
	}
	return user, true
}

// respondWithTokens issues an access token and a persisted refresh token.
func (h *AuthHandler) respondWithTokens(c *gin.Context, user models.User, status int) {
	access, errAccess := security.GenerateToken(
		h.jwtCfg.Secret, user.ID, user.Email, user.FullName, user.Role, h.jwtCfg.AccessExpiry)
	if errAccess != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate token failed"})
		return
	}

	refresh, hash, errRefresh := security.NewRefreshToken()
	if errRefresh != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate token failed"})
		return
	}
	stored := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(h.jwtCfg.RefreshExpiry),
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&stored).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persist token failed"})
		return
	}

	c.JSON(status, gin.H{
		"accessToken":  access,
		"refreshToken": refresh,
		"user":         user,
	})
}

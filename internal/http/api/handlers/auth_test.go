package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/models"
)

func newAuthRouter(conn *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(conn, testJWTConfig(), audit.NewRecorder(conn))
	router := gin.New()
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)
	router.POST("/login/totp", handler.LoginTOTP)
	router.POST("/refresh", handler.Refresh)
	router.POST("/logout", handler.Logout)
	return router
}

type tokenResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         models.User `json:"user"`
}

func TestRegisterThenLogin(t *testing.T) {
	conn := newHandlerDB(t)
	router := newAuthRouter(conn)

	w := performJSON(t, router, http.MethodPost, "/register", gin.H{
		"email":    "Amina@Example.COM",
		"password": "s3cure-enough",
		"fullName": "Amina B",
	})
	mustStatus(t, w, http.StatusCreated)

	var created tokenResponse
	decodeBody(t, w, &created)
	if created.AccessToken == "" || created.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", created)
	}
	if created.User.Email != "amina@example.com" {
		t.Fatalf("expected lowercased email, got %q", created.User.Email)
	}
	if created.User.Role != models.RoleCitizen {
		t.Fatalf("expected citizen role, got %q", created.User.Role)
	}

	w = performJSON(t, router, http.MethodPost, "/login", gin.H{
		"email":    "amina@example.com",
		"password": "s3cure-enough",
	})
	mustStatus(t, w, http.StatusOK)

	w = performJSON(t, router, http.MethodPost, "/login", gin.H{
		"email":    "amina@example.com",
		"password": "wrong-password",
	})
	mustStatus(t, w, http.StatusUnauthorized)
}

func TestRegisterRejectsShortPasswordAndDuplicates(t *testing.T) {
	conn := newHandlerDB(t)
	router := newAuthRouter(conn)

	w := performJSON(t, router, http.MethodPost, "/register", gin.H{
		"email":    "short@example.com",
		"password": "short",
		"fullName": "Short P",
	})
	mustStatus(t, w, http.StatusBadRequest)

	body := gin.H{
		"email":    "dup@example.com",
		"password": "long-enough-pass",
		"fullName": "First In",
	}
	mustStatus(t, performJSON(t, router, http.MethodPost, "/register", body), http.StatusCreated)
	mustStatus(t, performJSON(t, router, http.MethodPost, "/register", body), http.StatusConflict)
}

func TestRefreshRotatesTokens(t *testing.T) {
	conn := newHandlerDB(t)
	router := newAuthRouter(conn)

	w := performJSON(t, router, http.MethodPost, "/register", gin.H{
		"email":    "rotate@example.com",
		"password": "rotate-me-please",
		"fullName": "Rotate R",
	})
	mustStatus(t, w, http.StatusCreated)
	var first tokenResponse
	decodeBody(t, w, &first)

	w = performJSON(t, router, http.MethodPost, "/refresh", gin.H{"refreshToken": first.RefreshToken})
	mustStatus(t, w, http.StatusOK)
	var second tokenResponse
	decodeBody(t, w, &second)
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("expected a new refresh token after rotation")
	}

	// The consumed token is revoked and cannot be replayed.
	w = performJSON(t, router, http.MethodPost, "/refresh", gin.H{"refreshToken": first.RefreshToken})
	mustStatus(t, w, http.StatusUnauthorized)

	w = performJSON(t, router, http.MethodPost, "/refresh", gin.H{"refreshToken": second.RefreshToken})
	mustStatus(t, w, http.StatusOK)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	conn := newHandlerDB(t)
	router := newAuthRouter(conn)

	w := performJSON(t, router, http.MethodPost, "/register", gin.H{
		"email":    "bye@example.com",
		"password": "goodbye-session",
		"fullName": "Bye B",
	})
	mustStatus(t, w, http.StatusCreated)
	var resp tokenResponse
	decodeBody(t, w, &resp)

	mustStatus(t, performJSON(t, router, http.MethodPost, "/logout", gin.H{"refreshToken": resp.RefreshToken}), http.StatusOK)
	mustStatus(t, performJSON(t, router, http.MethodPost, "/refresh", gin.H{"refreshToken": resp.RefreshToken}), http.StatusUnauthorized)
}

func TestLoginRequiresTOTPWhenEnrolled(t *testing.T) {
	conn := newHandlerDB(t)
	router := newAuthRouter(conn)

	admin := createTestUser(t, conn, "mfa@example.com", models.RoleAdmin)
	key, errGenerate := totp.Generate(totp.GenerateOpts{Issuer: "test", AccountName: admin.Email})
	if errGenerate != nil {
		t.Fatalf("generate totp: %v", errGenerate)
	}
	if errUpdate := conn.Model(&admin).Update("totp_secret", key.Secret()).Error; errUpdate != nil {
		t.Fatalf("enroll totp: %v", errUpdate)
	}

	w := performJSON(t, router, http.MethodPost, "/login", gin.H{
		"email":    admin.Email,
		"password": "correct-horse-battery",
	})
	mustStatus(t, w, http.StatusForbidden)
	var resp struct {
		MFARequired bool `json:"mfaRequired"`
	}
	decodeBody(t, w, &resp)
	if !resp.MFARequired {
		t.Fatalf("expected mfaRequired=true, got %s", w.Body.String())
	}

	code, errCode := totp.GenerateCode(key.Secret(), time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	w = performJSON(t, router, http.MethodPost, "/login/totp", gin.H{
		"email":    admin.Email,
		"password": "correct-horse-battery",
		"code":     code,
	})
	mustStatus(t, w, http.StatusOK)

	w = performJSON(t, router, http.MethodPost, "/login/totp", gin.H{
		"email":    admin.Email,
		"password": "correct-horse-battery",
		"code":     "not-a-code",
	})
	mustStatus(t, w, http.StatusUnauthorized)
}

func TestLoginDisabledAccount(t *testing.T) {
	conn := newHandlerDB(t)
	router := newAuthRouter(conn)

	user := createTestUser(t, conn, "off@example.com", models.RoleCitizen)
	if errUpdate := conn.Model(&user).Update("is_active", false).Error; errUpdate != nil {
		t.Fatalf("deactivate user: %v", errUpdate)
	}

	w := performJSON(t, router, http.MethodPost, "/login", gin.H{
		"email":    user.Email,
		"password": "correct-horse-battery",
	})
	mustStatus(t, w, http.StatusForbidden)
}

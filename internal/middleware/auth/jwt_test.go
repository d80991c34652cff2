package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func createJWT(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	tokenString, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return tokenString
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   sub,
		"email": "asha@example.com",
		"role":  "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
}

func TestJWTMiddleware(t *testing.T) {
	userID := "550e8400-e29b-41d4-a716-446655440000"

	config := JWTConfig{
		Secret:    testSecret,
		Logger:    zap.NewNop(),
		SkipPaths: []string{"/health", "/webhook"},
	}

	e := echo.New()
	handler := JWTMiddleware(config)(func(c echo.Context) error {
		user, err := GetUserFromContext(c)
		if err != nil {
			return c.JSON(http.StatusOK, map[string]string{"status": "anonymous"})
		}
		return c.JSON(http.StatusOK, map[string]string{"user_id": user.UserID.String(), "email": user.Email})
	})

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid token",
			path:       "/api/v1/payments/mobile-money",
			header:     "Bearer " + createJWT(t, jwt.SigningMethodHS256, validClaims(userID), testSecret),
			wantStatus: http.StatusOK,
			wantBody:   userID,
		},
		{
			name:       "missing header",
			path:       "/api/v1/payments/mobile-money",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "MISSING_AUTH_HEADER",
		},
		{
			name:       "missing bearer prefix",
			path:       "/api/v1/payments/mobile-money",
			header:     "Token abc",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "INVALID_AUTH_FORMAT",
		},
		{
			name:       "wrong secret",
			path:       "/api/v1/payments/mobile-money",
			header:     "Bearer " + createJWT(t, jwt.SigningMethodHS256, validClaims(userID), "other-secret"),
			wantStatus: http.StatusUnauthorized,
			wantBody:   "INVALID_TOKEN",
		},
		{
			name: "expired token",
			path: "/api/v1/payments/mobile-money",
			header: "Bearer " + createJWT(t, jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": userID,
				"exp": time.Now().Add(-time.Hour).Unix(),
			}, testSecret),
			wantStatus: http.StatusUnauthorized,
			wantBody:   "INVALID_TOKEN",
		},
		{
			name:       "subject is not a uuid",
			path:       "/api/v1/payments/mobile-money",
			header:     "Bearer " + createJWT(t, jwt.SigningMethodHS256, validClaims("user-42"), testSecret),
			wantStatus: http.StatusUnauthorized,
			wantBody:   "INVALID_SUBJECT",
		},
		{
			name:       "skip path",
			path:       "/webhook/mobile-money",
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler(c)

			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

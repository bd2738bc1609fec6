package jwt_test

import (
	"rental/config"
	"rental/infras/jwt"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "access-secret"

func sign(t *testing.T, claims jwt.Claims, key string) string {
	t.Helper()

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)

	return token
}

func claims(userID string, expiresIn time.Duration) jwt.Claims {
	now := time.Now()

	return jwt.Claims{
		UserID:  userID,
		Role:    "user",
		TokenID: "t1",
		Type:    jwt.AccessToken,
		RegisteredClaims: gojwt.RegisteredClaims{
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func TestValidateToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = secret

	service := jwt.New(cfg)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", sign(t, claims("u1", time.Hour), secret), nil},
		{"expired", sign(t, claims("u1", -time.Hour), secret), jwt.ErrExpiredToken},
		{"wrong secret", sign(t, claims("u1", time.Hour), "other"), jwt.ErrInvalidToken},
		{"missing user", sign(t, claims("", time.Hour), secret), jwt.ErrInvalidClaim},
		{"garbage", "not-a-token", jwt.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.ValidateToken(tt.token, jwt.AccessToken)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "u1", got.UserID)
			assert.Equal(t, "user", got.Role)
		})
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := jwt.ExtractTokenFromHeader("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	for _, header := range []string{"", "Basic abc", "Bearer "} {
		_, err := jwt.ExtractTokenFromHeader(header)
		assert.Error(t, err, header)
	}
}

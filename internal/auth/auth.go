package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/megacoinhq/megacoin/cmd/config"
)

const TokenExp = time.Hour * 24

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"userID"`
	IsAdmin bool   `json:"isAdmin"`
}

func GenerateToken(userID uuid.UUID, isAdmin bool) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenExp)),
		},
		UserID:  userID.String(),
		IsAdmin: isAdmin,
	})

	return token.SignedString([]byte(config.JWTSecret))
}

// ParseToken validates the signature and expiry and returns the caller's
// identity and role.
func ParseToken(tokenString string) (uuid.UUID, bool, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, false, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false, ErrInvalidToken
	}

	return userID, claims.IsAdmin, nil
}

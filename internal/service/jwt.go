package service

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

const tokenTTL = 24 * time.Hour

func InitJWT() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	jwtSecret = []byte(secret)
}

// Identity is what a session token carries.
type Identity struct {
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
}

func GenerateJWT(id Identity) (string, error) {
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"user_id": id.UserID,
		"email":   id.Email,
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iat":     now,
		"nbf":     now,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return Identity{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}

	// validate time-based claims
	now := time.Now().Unix()
	if exp, ok := claims["exp"].(float64); ok {
		if int64(exp) < now {
			return Identity{}, errors.New("token expired")
		}
	}
	if nbf, ok := claims["nbf"].(float64); ok {
		if int64(nbf) > now {
			return Identity{}, errors.New("token not valid yet")
		}
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Identity{}, errors.New("user_id not found")
	}
	email, _ := claims["email"].(string)

	return Identity{UserID: userID, Email: email}, nil
}

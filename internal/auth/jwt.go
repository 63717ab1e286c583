package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StudentClaims represents the claims in our JWT token
type StudentClaims struct {
	StudentID string `json:"student_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// TokenTTL is how long an issued student token stays valid
const TokenTTL = 7 * 24 * time.Hour

var jwtSecret = loadSecret()

// loadSecret reads JWT_SECRET from the environment. The fallback is for
// local development only.
func loadSecret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("brainy-dev-secret")
}

// SetSecret overrides the signing secret. Used by main after config load.
func SetSecret(secret string) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
}

// GenerateStudentToken generates a JWT token for student authentication
func GenerateStudentToken(studentID string) (string, error) {
	claims := &StudentClaims{
		StudentID: studentID,
		Role:      "student",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*StudentClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &StudentClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*StudentClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}

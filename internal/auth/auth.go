package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecomops/storefront/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// HashPassword returns a bcrypt hash of the plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Issuer creates and verifies HS256 bearer tokens. The secret is injected
// once at construction; lifecycle is process lifetime.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Claims is the verified principal extracted from a bearer token.
type Claims struct {
	Email    string
	UserType models.UserType
}

// Issue signs a token carrying the user's email and role.
func (i *Issuer) Issue(u *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       u.Email,
		"user_type": string(u.UserType),
		"exp":       time.Now().Add(i.ttl).Unix(),
	})
	return token.SignedString(i.secret)
}

// Verify parses and validates a bearer token, returning its claims.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userType, _ := claims["user_type"].(string)
	if sub == "" || userType == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{Email: sub, UserType: models.UserType(userType)}, nil
}

package auth

import (
	"fmt"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the custom JWT claims issued by the cycle tracker's identity
// provider. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email    string      `json:"email"`
	Plan     domain.Plan `json:"plan,omitempty"`
	Timezone string      `json:"tz,omitempty"`
}

// JWTManager validates bearer tokens. GenerateToken exists for tooling and
// tests; the login flow lives elsewhere.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWT manager.
func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// GenerateToken creates a signed JWT for the given user.
func (m *JWTManager) GenerateToken(userID uuid.UUID, email string, plan domain.Plan, timezone string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			ID:        uuid.New().String(),
		},
		Email:    email,
		Plan:     plan,
		Timezone: timezone,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT, returning claims if valid.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("missing email claim")
	}

	return claims, nil
}

// UserContext converts validated claims into the engine's view of the user.
// An unknown or missing timezone falls back to fallback, and an unknown plan
// is treated as free.
func (c *Claims) UserContext(fallback *time.Location) domain.UserContext {
	id, _ := uuid.Parse(c.Subject)

	loc := fallback
	if c.Timezone != "" {
		if l, err := time.LoadLocation(c.Timezone); err == nil {
			loc = l
		}
	}

	plan := c.Plan
	if domain.ValidatePlan(plan) != nil {
		plan = domain.PlanFree
	}

	return domain.UserContext{
		ID:       id,
		Email:    c.Email,
		Plan:     plan,
		Location: loc,
	}
}

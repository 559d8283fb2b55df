package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "menuservice/internal/errors"
	"menuservice/internal/model"
)

// DefaultTokenTTL is used when no expiry is configured.
const DefaultTokenTTL = 24 * time.Hour

// Claims represents JWT claims. ID (jti) identifies the token for revocation.
// PasswordStamp is the user's password change time in unix milliseconds when
// the token was issued.
type Claims struct {
	UserID        uint       `json:"id"`
	Role          model.Role `json:"role"`
	PasswordStamp int64      `json:"pwd,omitempty"`
	jwt.RegisteredClaims
}

// Remaining is how long the token stays valid from now.
func (c *Claims) Remaining() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return time.Until(c.ExpiresAt.Time)
}

// Issued returns the iat claim in unix seconds.
func (c *Claims) Issued() int64 {
	if c.IssuedAt == nil {
		return 0
	}
	return c.IssuedAt.Unix()
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret and token lifetime.
func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// GenerateAccessToken signs a token for the user.
func (s *JWTService) GenerateAccessToken(userID uint, role model.Role) (string, *Claims, error) {
	return s.sign(userID, role, 0)
}

// GenerateSessionToken signs a token for user stamped with its current
// password change time.
func (s *JWTService) GenerateSessionToken(user *model.User) (string, *Claims, error) {
	var stamp int64
	if user.PasswordChangedAt != nil {
		stamp = user.PasswordChangedAt.UnixMilli()
	}
	return s.sign(user.ID, user.Role, stamp)
}

func (s *JWTService) sign(userID uint, role model.Role, stamp int64) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID:        userID,
		Role:          role,
		PasswordStamp: stamp,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        generateTokenID(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken validates a JWT token and returns the claims. Every failure
// wraps ErrInvalidToken.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: missing subject", apperrors.ErrInvalidToken)
	}

	return claims, nil
}

func generateTokenID() string {
	return uuid.New().String()
}

package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents identity token claims issued by the platform.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string   `json:"user_id"`
	StageName string   `json:"stage_name"`
	Roles     []string `json:"roles"`
}

// StageClaims represents the short-lived credential granted to the live
// performer so the video-transport layer can admit them to a room.
type StageClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	RoomID string `json:"room_id"`
}

// Manager validates identity tokens and mints stage credentials.
type Manager struct {
	secret        []byte
	issuer        string
	stageDuration time.Duration
}

// NewManager creates a new JWT manager.
func NewManager(secret, issuer string, stageDuration time.Duration) *Manager {
	return &Manager{
		secret:        []byte(secret),
		issuer:        issuer,
		stageDuration: stageDuration,
	}
}

// ValidateToken validates an identity token and returns its claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateIdentityToken signs an identity token. The real identity provider
// lives elsewhere; this is used by moderation tooling and tests.
func (m *Manager) GenerateIdentityToken(userID, stageName string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    userID,
		StageName: stageName,
		Roles:     roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// GenerateStageToken mints the join credential for the performer who just
// won the live slot. Expires after the configured stage duration.
func (m *Manager) GenerateStageToken(userID, roomID string) (token string, expiresAt int64, err error) {
	now := time.Now()
	exp := now.Add(m.stageDuration)
	claims := &StageClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: userID,
		RoomID: roomID,
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", 0, err
	}
	return token, exp.Unix(), nil
}

// ValidateStageToken validates a stage credential and returns its claims.
func (m *Manager) ValidateStageToken(tokenString string) (*StageClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &StageClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*StageClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

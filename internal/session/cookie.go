package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName carries the signed session id.
const CookieName = "trivia_session"

var (
	ErrInvalidCookie = errors.New("invalid session cookie")
	ErrExpiredCookie = errors.New("session cookie expired")
)

type cookieClaims struct {
	SessionID uuid.UUID `json:"sid"`
	jwt.RegisteredClaims
}

// CookieSigner issues and validates HS256 session cookies.
type CookieSigner struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewCookieSigner defaults the ttl to 24h and the issuer to trivia-quiz.
func NewCookieSigner(secret []byte, ttl time.Duration, issuer string) *CookieSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if issuer == "" {
		issuer = "trivia-quiz"
	}
	return &CookieSigner{secret: secret, ttl: ttl, issuer: issuer}
}

func (s *CookieSigner) TTL() time.Duration {
	return s.ttl
}

func (s *CookieSigner) Sign(id uuid.UUID) (string, error) {
	now := time.Now()
	claims := cookieClaims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *CookieSigner) Parse(value string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(value, &cookieClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCookie
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredCookie
		}
		return uuid.Nil, ErrInvalidCookie
	}

	claims, ok := token.Claims.(*cookieClaims)
	if !ok || !token.Valid || claims.SessionID == uuid.Nil {
		return uuid.Nil, ErrInvalidCookie
	}
	return claims.SessionID, nil
}

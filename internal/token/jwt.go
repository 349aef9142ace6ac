// Package token issues and validates the bearer tokens handed out after a
// successful authentication.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when token validation fails
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when token is expired
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidClaims is returned when claims are invalid
	ErrInvalidClaims = errors.New("invalid claims")
)

// Claims identify the session an authentication token was issued for. The
// subject reference is only present as a digest.
type Claims struct {
	SessionID     string  `json:"sid"`
	SubjectDigest string  `json:"subject_digest"`
	ChallengeType string  `json:"challenge"`
	Score         float64 `json:"score"`
	jwt.RegisteredClaims
}

// Grant is what the session service needs to mint a token.
type Grant struct {
	SessionID        string
	SubjectReference string
	ChallengeType    string
	Score            float64
	ValidUntil       time.Time
}

// Service signs HS256 tokens.
type Service struct {
	secretKey []byte
	issuer    string
	now       func() time.Time
}

func NewService(secretKey, issuer string) *Service {
	return &Service{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		now:       time.Now,
	}
}

// Issue signs a token that expires at the grant's ValidUntil.
func (s *Service) Issue(g Grant) (string, error) {
	now := s.now()
	claims := Claims{
		SessionID:     g.SessionID,
		SubjectDigest: SubjectDigest(g.SubjectReference),
		ChallengeType: g.ChallengeType,
		Score:         g.Score,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   g.SessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(g.ValidUntil),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Validate parses a token and checks signature, issuer and expiry.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

// SubjectDigest hashes a subject reference so relying parties can match it
// without the token disclosing it.
func SubjectDigest(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:])
}

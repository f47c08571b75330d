package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crypto-vantro/apiserver/internal/apperr"
)

// TokenKind tags which secret a verified token was signed with.
type TokenKind string

const (
	// TokenAccess is the long-lived credential for routine calls.
	TokenAccess TokenKind = "access"
	// TokenRefresh is the short-lived fallback credential accepted on the
	// same endpoints when the access token no longer verifies.
	TokenRefresh TokenKind = "refresh"
)

const (
	msgInvalidHeader   = "Invalid credentials, please sign in."
	msgMissingSubject  = "Invalid credentials, please sign in."
	msgVerifyExhausted = "Invalid credentials, please sign in"
	bearerScheme       = "Bearer"
)

// Claims is the wire shape of issued tokens: the subject id travels in the
// "payload" claim.
type Claims struct {
	Payload string `json:"payload"`
	jwt.RegisteredClaims
}

// Verification is the outcome of a successful token check.
type Verification struct {
	Kind    TokenKind
	Subject string
}

// Manager issues and verifies the access/refresh token pair. Secrets and
// lifetimes are fixed at construction and never reloaded.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess signs an access token asserting subjectID.
func (m *Manager) IssueAccess(subjectID string) (string, error) {
	return issue(subjectID, m.accessSecret, m.accessTTL)
}

// IssueRefresh signs a refresh token asserting subjectID.
func (m *Manager) IssueRefresh(subjectID string) (string, error) {
	return issue(subjectID, m.refreshSecret, m.refreshTTL)
}

func issue(subjectID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Payload: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ExtractBearer pulls the token out of an Authorization header value. The
// header must be exactly two space-separated parts with the first part
// literally "Bearer".
func ExtractBearer(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != bearerScheme || parts[1] == "" {
		return "", apperr.Unauthorized(msgInvalidHeader)
	}
	return parts[1], nil
}

// Verify checks tokenString against the access secret first and the refresh
// secret second, returning the kind that verified and the embedded subject.
// A token that fails both attempts is rejected with 422; a refresh token
// without a subject is rejected with 422 as well.
func (m *Manager) Verify(tokenString string) (Verification, error) {
	if subject, err := parseSubject(tokenString, m.accessSecret); err == nil && subject != "" {
		return Verification{Kind: TokenAccess, Subject: subject}, nil
	}

	subject, err := parseSubject(tokenString, m.refreshSecret)
	if err != nil {
		return Verification{}, apperr.Unprocessable(msgVerifyExhausted)
	}
	if subject == "" {
		return Verification{}, apperr.Unprocessable(msgMissingSubject)
	}
	return Verification{Kind: TokenRefresh, Subject: subject}, nil
}

func parseSubject(tokenString string, secret []byte) (string, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	return strings.TrimSpace(claims.Payload), nil
}

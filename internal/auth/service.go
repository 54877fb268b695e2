package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/loykin/recbridge/internal/config"
)

// Anonymous is the caller identity used when authentication is disabled.
const Anonymous = "anonymous"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

// Token is an issued bearer token.
type Token struct {
	Type      string    `json:"type"` // "Bearer"
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims are the JWT claims carried by recbridge tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// Service issues and verifies bearer tokens against the user list from the
// configuration file. When disabled, every caller resolves to Anonymous.
type Service struct {
	enabled bool
	secret  []byte
	ttl     time.Duration
	users   map[string]string
}

// New builds a Service from the config auth section. A missing secret gets
// a random one, which invalidates outstanding tokens across restarts.
func New(cfg config.AuthConfig) *Service {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	users := make(map[string]string, len(cfg.Users))
	for _, u := range cfg.Users {
		if u.Username != "" && u.Password != "" {
			users[u.Username] = u.Password
		}
	}
	return &Service{
		enabled: cfg.Enable,
		secret:  secret,
		ttl:     time.Duration(cfg.ExpireMinutes) * time.Minute,
		users:   users,
	}
}

// Enabled reports whether authentication is enforced.
func (s *Service) Enabled() bool { return s.enabled }

// Login checks the credentials and issues a token.
func (s *Service) Login(username, password string) (*Token, error) {
	if !s.enabled {
		return nil, ErrAuthDisabled
	}
	stored, ok := s.users[username]
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return s.issue(username)
}

func (s *Service) issue(username string) (*Token, error) {
	expiresAt := time.Now().Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "recbridge",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Type: "Bearer", Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify parses a bearer token and returns the caller identity.
func (s *Service) Verify(tokenString string) (string, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

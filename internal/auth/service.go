package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"mockprep-service/internal/domain"
)

// UserRepository abstracts account storage (in-memory, Postgres).
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User, passwordHash string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, string, error)
}

// Service implements signup and login with bcrypt password hashing and HS256
// token issuance.
type Service struct {
	users    UserRepository
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(users UserRepository, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// NewServiceWithClock is test-only for deterministic token expiry.
func NewServiceWithClock(users UserRepository, secret string, tokenTTL time.Duration, now func() time.Time) *Service {
	s := NewService(users, secret, tokenTTL)
	s.now = now
	return s
}

// Signup registers a new account and returns the user with a fresh token.
func (s *Service) Signup(ctx context.Context, name, email, purpose, password string) (domain.User, string, error) {
	email = normalizeEmail(email)
	if name == "" || email == "" || len(password) < 8 {
		return domain.User{}, "", fmt.Errorf("invalid signup input: name, email, and a password of at least 8 characters are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, domain.User{
		Name:    strings.TrimSpace(name),
		Email:   email,
		Purpose: purpose,
	}, string(hash))
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token.
// A missing account and a wrong password both map to ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, hash, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Verify parses a bearer token and returns the subject and email claims.
func (s *Service) Verify(token string) (subject, email string, err error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", "", fmt.Errorf("invalid token claims")
	}
	subject, _ = claims["sub"].(string)
	email, _ = claims["email"].(string)
	if subject == "" || email == "" {
		return "", "", fmt.Errorf("token missing subject or email")
	}
	return subject, email, nil
}

func (s *Service) issueToken(user domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"exp":   s.now().Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

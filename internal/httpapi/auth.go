package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTooManyAttempts    = errors.New("too many attempts")
)

// attemptLimiter is a sliding-window counter keyed by caller identity.
// It throttles credential and PIN guessing.
type attemptLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	attempts map[string][]time.Time
}

func newAttemptLimiter(window time.Duration, max int) *attemptLimiter {
	return &attemptLimiter{
		window:   window,
		max:      max,
		attempts: make(map[string][]time.Time),
	}
}

func (l *attemptLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-l.window)
	kept := l.attempts[key][:0]
	for _, at := range l.attempts[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) >= l.max {
		l.attempts[key] = kept
		return false
	}
	l.attempts[key] = append(kept, now)
	return true
}

func (l *attemptLimiter) reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

// AuthManager issues and validates access tokens and handles supervisor
// elevation via PIN. The PIN is stored hashed; tokens are HS256.
type AuthManager struct {
	repo       store.Repository
	secret     []byte
	ttl        time.Duration
	pinHash    []byte
	loginLimit *attemptLimiter
	pinLimit   *attemptLimiter
}

func NewAuthManager(repo store.Repository, secret string, ttl time.Duration, supervisorPIN string) (*AuthManager, error) {
	if secret == "" {
		return nil, errors.New("auth secret required")
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte(supervisorPIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash supervisor pin: %w", err)
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &AuthManager{
		repo:       repo,
		secret:     []byte(secret),
		ttl:        ttl,
		pinHash:    pinHash,
		loginLimit: newAttemptLimiter(5*time.Minute, 5),
		pinLimit:   newAttemptLimiter(5*time.Minute, 5),
	}, nil
}

func (m *AuthManager) Login(ctx context.Context, username, password string) (*domain.LoginResponse, error) {
	username = strings.TrimSpace(username)
	if !m.loginLimit.allow("login:" + username) {
		return nil, ErrTooManyAttempts
	}
	user, err := m.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	m.loginLimit.reset("login:" + username)
	return m.issue(user.Username, user.Role)
}

// Elevate returns a supervisor token for an already authenticated caller
// that presents the register PIN.
func (m *AuthManager) Elevate(actor domain.Actor, pin string) (*domain.LoginResponse, error) {
	if actor.Username == "" {
		return nil, ErrInvalidCredentials
	}
	if !m.pinLimit.allow("pin:" + actor.Username) {
		return nil, ErrTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword(m.pinHash, []byte(pin)) != nil {
		return nil, ErrInvalidCredentials
	}
	m.pinLimit.reset("pin:" + actor.Username)
	return m.issue(actor.Username, domain.RoleSupervisor)
}

func (m *AuthManager) issue(username, role string) (*domain.LoginResponse, error) {
	now := time.Now().UTC()
	expires := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  username,
		"role": role,
		"iat":  now.Unix(),
		"exp":  expires.Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResponse{
		Token:     signed,
		ExpiresAt: expires,
		Role:      role,
		Username:  username,
	}, nil
}

// ParseToken validates a bearer token and returns its actor.
func (m *AuthManager) ParseToken(tokenString string) (domain.Actor, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{Username: sub, Role: role}, nil
}

// Package auth handles the admin password, login tokens and the middleware
// guarding write routes.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"github.com/aTrapDeer/portfolio-api/internal/models"
	"github.com/aTrapDeer/portfolio-api/internal/store"
)

// MaxPasswordLength is the longest password bcrypt accepts.
const MaxPasswordLength = 72

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrInvalidToken       = errors.New("invalid token")
)

// HashPassword returns the bcrypt hash stored for an admin password.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches a stored hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ProfileSource yields the profile whose password unlocks the admin API.
type ProfileSource interface {
	Active(ctx context.Context) (*models.Profile, error)
}

type Options struct {
	Secret []byte
	TTL    time.Duration
	// MaxAttempts failed logins per client are allowed within Lockout.
	MaxAttempts int
	Lockout     time.Duration
}

type Authenticator struct {
	profiles    ProfileSource
	secret      []byte
	ttl         time.Duration
	maxAttempts int
	attempts    *cache.Cache // client -> failed login count
	now         func() time.Time
}

func New(profiles ProfileSource, opts Options) *Authenticator {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Lockout <= 0 {
		opts.Lockout = 15 * time.Minute
	}
	return &Authenticator{
		profiles:    profiles,
		secret:      opts.Secret,
		ttl:         opts.TTL,
		maxAttempts: opts.MaxAttempts,
		attempts:    cache.New(opts.Lockout, 2*opts.Lockout),
		now:         time.Now,
	}
}

// Login checks password against the active profile and returns a signed
// token. client identifies the caller for throttling.
func (a *Authenticator) Login(ctx context.Context, client, password string) (string, error) {
	if n, ok := a.attempts.Get(client); ok && n.(int) >= a.maxAttempts {
		return "", ErrTooManyAttempts
	}

	profile, err := a.profiles.Active(ctx)
	switch {
	case store.IsNotFound(err):
		a.recordFailure(client)
		return "", ErrInvalidCredentials
	case err != nil:
		return "", err
	}

	if !CheckPassword(profile.AdminPassword, password) {
		a.recordFailure(client)
		return "", ErrInvalidCredentials
	}

	a.attempts.Delete(client)
	return a.Issue(profile.ID)
}

func (a *Authenticator) recordFailure(client string) {
	if _, err := a.attempts.IncrementInt(client, 1); err != nil {
		a.attempts.Set(client, 1, cache.DefaultExpiration)
	}
}

// Issue signs a token for the given profile id.
func (a *Authenticator) Issue(profileID uint) (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(profileID), 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token issued by Issue.
func (a *Authenticator) Verify(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "Authorization header is required")
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
			unauthorized(w, "Invalid authorization header format")
			return
		}

		if _, err := a.Verify(bearerToken[1]); err != nil {
			unauthorized(w, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

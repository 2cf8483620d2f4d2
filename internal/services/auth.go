package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pixelnest/internal/apperror"
	"pixelnest/internal/models"
	"pixelnest/internal/store"
	"pixelnest/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

const (
	minNameLen     = 3
	minPasswordLen = 6

	userCacheSize = 1024
	userCacheTTL  = 5 * time.Minute
)

// Claims is the JWT payload of a session token.
type Claims struct {
	Email string `json:"email"`
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users    store.Users
	secret   []byte
	tokenTTL time.Duration
	// users are write-once, so cached entries never go stale
	cache    *utils.TTLCache[uint, models.User]
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthService(users store.Users, secret string, tokenTTL time.Duration) (*AuthService, error) {
	cache, err := utils.NewTTLCache[uint, models.User](userCacheSize, userCacheTTL)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		cache:    cache,
		validate: validator.New(),
		now:      time.Now,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" || email == "" || password == "" {
		return nil, apperror.NewValidation("All fields are required")
	}
	if utils.CharCount(name) < minNameLen {
		return nil, apperror.NewValidation(fmt.Sprintf("Name must be at least %d characters", minNameLen))
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, apperror.NewValidation("Please provide a valid email address")
	}
	if utils.CharCount(password) < minPasswordLen {
		return nil, apperror.NewValidation(fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperror.NewDuplicateEmail("User already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NewInternal("Failed to look up user", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperror.NewInternal("Failed to hash password", err)
	}

	user := &models.User{Name: name, Email: email, Password: hash}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent signup for the same email
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperror.NewDuplicateEmail("User already exists")
		}
		return nil, apperror.NewInternal("Failed to create user", err)
	}
	return user, nil
}

// Authenticate verifies the credentials and issues a session token.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (string, *models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, apperror.NewValidation("Email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, apperror.NewNotFound("User not found")
	}
	if err != nil {
		return "", nil, apperror.NewInternal("Failed to look up user", err)
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return "", nil, apperror.NewInvalidCredential("Invalid credentials")
	}

	token, err := s.NewToken(user)
	if err != nil {
		return "", nil, apperror.NewInternal("Failed to issue token", err)
	}
	s.cache.Set(user.ID, *user)
	return token, user, nil
}

func (s *AuthService) NewToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		Email: user.Email,
		ID:    user.ID,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Resolve maps a session token to its user. Any token that is malformed,
// signed with another key or method, expired, or whose user is gone is
// rejected as Unauthorized.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperror.NewUnauthorized("Authentication required", nil)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, apperror.NewUnauthorized("Invalid or expired token", err)
	}

	if user, ok := s.cache.Get(claims.ID); ok {
		return &user, nil
	}

	user, err := s.users.FindByID(ctx, claims.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NewUnauthorized("User no longer exists", nil)
	}
	if err != nil {
		return nil, apperror.NewInternal("Failed to look up user", err)
	}
	s.cache.Set(user.ID, *user)
	return user, nil
}

package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"room_controller/internal/repository"
)

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrEmptyPassword   = errors.New("password is empty")
)

// AuthSettings configures token signing.
type AuthSettings struct {
	SigningKey string
	TokenTTL   time.Duration
}

// AuthService handles operator accounts and JWT bearer tokens.
type AuthService struct {
	authRepo repository.Authorization
	key      []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthService(repo repository.Authorization, s AuthSettings) *AuthService {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthService{authRepo: repo, key: []byte(s.SigningKey), ttl: ttl, now: time.Now}
}

// SignUp hashes password and creates a regular (non admin) user.
func (s *AuthService) SignUp(username, password string) (int, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("invalid password: %w", err)
	}
	return s.authRepo.Create(username, hash, false)
}

// EnsureAdmin creates the bootstrap admin unless a user with that name exists.
// It reports whether a user was created.
func (s *AuthService) EnsureAdmin(username, password string) (bool, error) {
	if username == "" {
		return false, nil
	}
	u, err := s.authRepo.GetByUsername(username)
	if err != nil {
		return false, err
	}
	if u != nil {
		return false, nil
	}
	hash, err := hashPassword(password)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin %q: %w", username, err)
	}
	if _, err := s.authRepo.Create(username, hash, true); err != nil {
		return false, err
	}
	return true, nil
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID int  `json:"user_id"`
	Admin  bool `json:"admin,omitempty"`
}

// GenerateToken validates credentials and returns a signed JWT.
func (s *AuthService) GenerateToken(username, password string) (string, error) {
	u, err := s.authRepo.GetByUsername(username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	if err := verifyPassword(u.PasswordHash, password); err != nil {
		return "", ErrInvalidPassword
	}
	return s.issueToken(u.ID, u.Admin)
}

// ParseToken parses a JWT and returns the user ID.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	claims, err := s.parse(accessToken)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// IsAdmin reports whether the user still exists and holds the admin flag.
// The flag is read from storage, not from the token.
func (s *AuthService) IsAdmin(userID int) (bool, error) {
	u, err := s.authRepo.GetByID(userID)
	if err != nil {
		return false, err
	}
	return u != nil && u.Admin, nil
}

func (s *AuthService) parse(accessToken string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) issueToken(userID int, admin bool) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
		Admin:  admin,
	})
	return token.SignedString(s.key)
}

func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

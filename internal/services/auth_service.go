package services

import (
	"errors"
	"fmt"
	"time"

	"ulasan/internal/models"
	"ulasan/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and session tokens.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	tokenDurat time.Duration // lifetime of a session token
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenDurat time.Duration) *AuthService {
	if tokenDurat <= 0 {
		tokenDurat = 24 * time.Hour
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenDurat,
	}
}

// RegisterUser stores a new user with the user role and a hashed password.
func (s *AuthService) RegisterUser(user *models.User) error {
	if user.Username == "" || user.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrMissingField)
	}

	existing, err := s.userRepo.GetByUsername(user.Username)
	if err == nil && existing != nil {
		return fmt.Errorf("%w: %s", ErrUsernameTaken, user.Username)
	}
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)
	user.Role = models.RoleUser

	// A concurrent registration can still win the insert.
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return fmt.Errorf("%w: %s", ErrUsernameTaken, user.Username)
		}
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// LoginUser checks the credentials and returns a signed session token for
// the matching user. Unknown users and wrong passwords fail the same way.
func (s *AuthService) LoginUser(username, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Error().Err(err).Str("username", username).Msg("user lookup failed during login")
		}
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	tokenString, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return tokenString, user, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      now.Add(s.tokenDurat).Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a session token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// CurrentIdentity resolves the user behind a session token. It returns nil
// for an empty, invalid or expired token and for users that no longer exist.
// The role always comes from the store, never from the token.
func (s *AuthService) CurrentIdentity(tokenString string) *models.User {
	if tokenString == "" {
		return nil
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		log.Debug().Err(err).Msg("ignoring session token")
		return nil
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Error().Err(err).Str("user_id", userID).Msg("identity lookup failed")
		}
		return nil
	}
	return user
}

// EnsureAdmin creates the admin user, or promotes and resets the password of
// an existing user with that name.
func (s *AuthService) EnsureAdmin(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: admin username and password are required", ErrMissingField)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	existing, err := s.userRepo.GetByUsername(username)
	switch {
	case err == nil:
		existing.Password = string(hashedPassword)
		existing.Role = models.RoleAdmin
		if err := s.userRepo.Update(existing); err != nil {
			return fmt.Errorf("failed to promote admin %s: %w", username, err)
		}
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		admin := &models.User{Username: username, Password: string(hashedPassword), Role: models.RoleAdmin}
		if err := s.userRepo.Create(admin); err != nil {
			return fmt.Errorf("failed to create admin %s: %w", username, err)
		}
		return nil
	default:
		return fmt.Errorf("failed to look up admin %s: %w", username, err)
	}
}

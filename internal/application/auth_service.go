package application

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/ims-platform/inventory-service/pkg/errors"
	"github.com/ims-platform/inventory-service/pkg/logging"
)

// AuthConfig carries the credentials and signing material for the single
// back-office account. All values come from the environment.
type AuthConfig struct {
	Username string
	Password string
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// AuthService issues and verifies HS256 access tokens
type AuthService struct {
	config AuthConfig
	logger *logging.Logger
	now    func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(config AuthConfig, logger *logging.Logger) *AuthService {
	if config.TokenTTL <= 0 {
		config.TokenTTL = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "inventory-service"
	}
	return &AuthService{
		config: config,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the credentials and issues a signed token
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResponseDTO, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.config.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.config.Password)) == 1
	if !userOK || !passOK {
		s.logger.Warn("Rejected login attempt", "username", username)
		return nil, apperrors.ErrUnauthorized("invalid credentials")
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.TokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    s.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		s.logger.Error("Failed to sign token", "error", err)
		return nil, apperrors.ErrInternal("failed to issue token").Wrap(err)
	}

	s.logger.Info("Issued access token", "username", username, "expiresAt", expiresAt)
	return &AuthResponseDTO{
		Token:     token,
		Username:  username,
		Roles:     []string{"admin"},
		ExpiresAt: expiresAt,
	}, nil
}

// Verify validates a token and returns its subject. Satisfies
// middleware.TokenVerifier.
func (s *AuthService) Verify(ctx context.Context, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", apperrors.ErrUnauthorized("invalid or expired token").Wrap(err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", apperrors.ErrUnauthorized("invalid or expired token")
	}
	return claims.Subject, nil
}

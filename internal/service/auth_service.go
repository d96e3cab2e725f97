package service

import (
	"crypto/subtle"
	"errors"
	"time"

	"docbrain-go/internal/config"
	"docbrain-go/pkg/hash"
	"docbrain-go/pkg/log"
	"docbrain-go/pkg/token"
)

var (
	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAuthDisabled is returned by Login when no admin account is configured.
	ErrAuthDisabled = errors.New("authentication is not configured")
)

// LoginResult carries a signed admin token.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService authenticates the single configured admin account.
type AuthService interface {
	Login(username, password string) (LoginResult, error)
	// Enabled reports whether admin routes require a token.
	Enabled() bool
}

type authService struct {
	cfg        config.AuthConfig
	jwtManager *token.JWTManager
}

// NewAuthService creates an AuthService. jwtManager may be nil when
// authentication is disabled.
func NewAuthService(cfg config.AuthConfig, jwtManager *token.JWTManager) AuthService {
	return &authService{cfg: cfg, jwtManager: jwtManager}
}

func (s *authService) Enabled() bool {
	return s.jwtManager != nil && s.cfg.AdminPasswordHash != ""
}

func (s *authService) Login(username, password string) (LoginResult, error) {
	if !s.Enabled() {
		return LoginResult{}, ErrAuthDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1
	passOK := hash.CheckPasswordHash(password, s.cfg.AdminPasswordHash)
	if !userOK || !passOK {
		log.Warnf("[AuthService] failed login for %q", username)
		return LoginResult{}, ErrInvalidCredentials
	}
	signed, expires, err := s.jwtManager.GenerateToken(username, token.RoleAdmin)
	if err != nil {
		return LoginResult{}, err
	}
	log.Infof("[AuthService] %s logged in", username)
	return LoginResult{Token: signed, ExpiresAt: expires}, nil
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/briefdesk/brief-service/internal/auth"
	"github.com/briefdesk/brief-service/internal/config"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

// OperatorService authenticates the single configured operator account.
type OperatorService struct {
	email        string
	passwordHash string
	tokenMgr     *auth.TokenManager
}

// NewOperatorService builds the service.
func NewOperatorService(cfg config.AuthConfig, tokens *auth.TokenManager) *OperatorService {
	return &OperatorService{
		email:        strings.ToLower(cfg.OperatorEmail),
		passwordHash: cfg.OperatorPasswordHash,
		tokenMgr:     tokens,
	}
}

// Login verifies credentials and issues an operator token.
func (s *OperatorService) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	if s.email == "" || s.passwordHash == "" {
		return "", time.Time{}, apperrors.NewServiceUnavailable("operator login is not configured")
	}
	if !strings.EqualFold(strings.TrimSpace(email), s.email) {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(s.passwordHash, password); err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(s.email)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tourbooking/internal/domain"
	"tourbooking/internal/pkg/logger"
	"tourbooking/internal/repository"
)

// Service authenticates dashboard operators.
type Service struct {
	admins adminStore
	jwt    tokenIssuer
	log    logrus.FieldLogger
}

func NewService(admins adminStore, jwt tokenIssuer, log logrus.FieldLogger) *Service {
	return &Service{admins: admins, jwt: jwt, log: logger.OrDiscard(log).WithField("component", "auth")}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			// unknown emails pay the bcrypt cost too
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		s.log.WithField("email", email).Warn("admin login rejected")
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return nil, err
	}
	s.log.WithField("admin_id", admin.ID).Info("admin logged in")
	return &LoginResult{Admin: admin, Token: token, ExpiresIn: int64(s.jwt.TTL().Seconds())}, nil
}

func (s *Service) Me(ctx context.Context, adminID int64) (*domain.AdminUser, error) {
	if adminID == 0 {
		return nil, ErrUnauthorized
	}
	return s.admins.GetByID(ctx, adminID)
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

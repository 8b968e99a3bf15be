package services

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/repomanager"
)

const maxProfileFieldLen = 100

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewUserService(db *sql.DB, repomanager repomanager.RepositoryManager, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: repomanager,
		logger:      logger.With("module", "users"),
	}
}

// Ensure creates the local row for an authenticated identity on first sight
// and returns the stored row on every later call.
func (s *UserService) Ensure(ctx context.Context, clerkID, name, email string) (*models.User, error) {
	if err := requireUser(clerkID); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).Ensure(ctx, &models.User{ClerkID: clerkID, Name: name, Email: email})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, clerkID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByClerkID(ctx, clerkID)
}

func (s *UserService) UpdateProfile(ctx context.Context, clerkID, name, phone string) (*models.User, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)

	if name == "" {
		return nil, validationError("name is required")
	}
	if utf8.RuneCountInString(name) > maxProfileFieldLen || utf8.RuneCountInString(phone) > maxProfileFieldLen {
		return nil, validationError("profile fields are limited to %d characters", maxProfileFieldLen)
	}

	user, err := s.repomanager.Users(s.db).UpdateProfile(ctx, clerkID, name, phone)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "profile updated", "user_id", clerkID)
	return user, nil
}

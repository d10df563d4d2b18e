package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"datalib/internal/models"
	"datalib/internal/repositories"
)

// UserRequest carries the editable fields of a user.
type UserRequest struct {
	FullName string
	Email    string
}

// validate applies the same "email" rule gin uses when binding requests.
var validate = validator.New(validator.WithRequiredStructEnabled())

func (r UserRequest) validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return validationf("Non empty full name is required.")
	}
	if strings.TrimSpace(r.Email) == "" {
		return validationf("Non empty email is required.")
	}
	if err := validate.Var(r.Email, "email"); err != nil {
		return validationf("Valid email address is required.")
	}
	return nil
}

type UserService interface {
	CreateUser(ctx context.Context, req UserRequest) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req UserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	db       *gorm.DB
	userRepo repositories.UserRepository
}

func NewUserService(db *gorm.DB, userRepo repositories.UserRepository) UserService {
	return &userService{db: db, userRepo: userRepo}
}

// CreateUser registers a user. Email addresses are unique.
func (s *userService) CreateUser(ctx context.Context, req UserRequest) (*models.User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	user := &models.User{FullName: req.FullName, Email: req.Email}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureEmailFree(tx, req.Email, uuid.Nil); err != nil {
			return err
		}
		if err := s.userRepo.Create(tx, user); err != nil {
			if isUniqueViolation(err) {
				return conflictf("User with Email=%s already exists.", req.Email)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !IsFailure(err) {
			log.Printf("[ERROR] CreateUser: failed to create user: %v", err)
		}
		return nil, err
	}
	log.Printf("[INFO] CreateUser: created user %s", user.ID)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.List(s.db.WithContext(ctx))
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, lookupErr(err, "User with Id=%s not found.", id)
	}
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, req UserRequest) (*models.User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.userRepo.GetByID(tx, id)
		if err != nil {
			return lookupErr(err, "User with Id=%s not found.", id)
		}
		if err := s.ensureEmailFree(tx, req.Email, id); err != nil {
			return err
		}
		user.Update(req.FullName, req.Email)
		if err := s.userRepo.Update(tx, user); err != nil {
			if isUniqueViolation(err) {
				return conflictf("User with Email=%s already exists.", req.Email)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !IsFailure(err) {
			log.Printf("[ERROR] UpdateUser: failed to update user %s: %v", id, err)
		}
		return nil, err
	}
	log.Printf("[INFO] UpdateUser: updated user %s", id)
	return user, nil
}

// DeleteUser removes a user record. Checkouts issued to the user are kept.
func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.userRepo.GetByID(tx, id); err != nil {
			return lookupErr(err, "User with Id=%s not found.", id)
		}
		return s.userRepo.Delete(tx, id)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] DeleteUser: deleted user %s", id)
	return nil
}

// ensureEmailFree fails with a conflict if email belongs to a user other than self.
func (s *userService) ensureEmailFree(tx *gorm.DB, email string, self uuid.UUID) error {
	existing, err := s.userRepo.GetByEmail(tx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return conflictf("User with Email=%s already exists.", email)
	}
	return nil
}

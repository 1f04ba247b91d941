package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/auratask/internal/constants"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailTaken           = errors.New("email already registered")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrNameRequired         = errors.New("name is required")
	ErrInvalidEmail         = errors.New("email is invalid")
	ErrOrganizationRequired = errors.New("organization name is required")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
	ErrFailedToCreateOrg    = errors.New("failed to create organization")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// SignupInput represents the information needed to open a new organization.
type SignupInput struct {
	Name             string
	Email            string
	Password         string
	OrganizationName string
}

// Signup creates an organization on a free trial together with its OWNER.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	orgName := strings.TrimSpace(input.OrganizationName)
	if orgName == "" {
		return nil, ErrOrganizationRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	org := &models.Organization{
		Name:               orgName,
		SubscriptionStatus: models.SubscriptionTrial,
		Plan:               models.PlanFreeTrial,
		TrialStartDate:     now,
		TrialEndDate:       now.AddDate(0, 0, constants.TrialPeriodDays),
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         models.RoleOwner,
	}

	if err := s.userRepo.CreateWithOrganization(ctx, user, org); err != nil {
		switch {
		case errors.Is(err, repository.ErrCreateUser):
			return nil, ErrFailedToCreateUser
		case errors.Is(err, repository.ErrCreateOrganization):
			return nil, ErrFailedToCreateOrg
		default:
			return nil, fmt.Errorf("failed to complete signup: %w", err)
		}
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", ErrFailedToHashPassword
	}
	return string(hashed), nil
}

var validate = validator.New()

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

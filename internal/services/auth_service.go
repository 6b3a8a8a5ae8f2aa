// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/repository"
	"github.com/bierstube/storefront/internal/utils"
)

// AuthService manages user profiles and issues the bearer tokens the HTTP
// layer resolves into callers.
type AuthService struct {
	store  repository.Store
	tokens *utils.TokenIssuer
	now    func() time.Time
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,strong_password"`
	DisplayName string `json:"display_name,omitempty" validate:"max=100"`
	FirstName   string `json:"first_name,omitempty" validate:"max=100"`
	LastName    string `json:"last_name,omitempty" validate:"max=100"`
	Phone       string `json:"phone,omitempty" validate:"max=30"`
}

type AuthResponse struct {
	User        *models.UserProfile `json:"user"`
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	ExpiresIn   int                 `json:"expires_in"` // in seconds
}

type ProfileUpdate struct {
	DisplayName *string                 `json:"display_name,omitempty" validate:"omitempty,max=100"`
	PhotoURL    *string                 `json:"photo_url,omitempty" validate:"omitempty,url,max=500"`
	FirstName   *string                 `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName    *string                 `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone       *string                 `json:"phone,omitempty" validate:"omitempty,max=30"`
	Addresses   *models.Addresses       `json:"addresses,omitempty" validate:"omitempty,max=10,dive"`
	Preferences *models.UserPreferences `json:"preferences,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
}

type SetAdminClaimRequest struct {
	IsAdmin bool `json:"is_admin"`
}

func NewAuthService(store repository.Store, tokens *utils.TokenIssuer) *AuthService {
	return &AuthService{
		store:  store,
		tokens: tokens,
		now:    time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidErr(err)
	}
	return s.createUser(ctx, req, false)
}

// CreateAdminUser registers a user that already holds the admin claim.
func (s *AuthService) CreateAdminUser(ctx context.Context, caller models.Caller, req *RegisterRequest) (*models.UserProfile, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidErr(err)
	}
	resp, err := s.createUser(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (s *AuthService) createUser(ctx context.Context, req *RegisterRequest, isAdmin bool) (*AuthResponse, error) {
	now := s.now()
	user := &models.UserProfile{
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		IsAdmin:     isAdmin,
		Preferences: models.UserPreferences{EmailNotifications: true},
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.DisplayName == "" {
		user.DisplayName = strings.TrimSpace(req.FirstName + " " + req.LastName)
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, storeErr(err, "user", user.Email)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"is_admin": user.IsAdmin,
	}).Info("User registered")
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidErr(err)
	}

	user, err := s.store.Users().FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeErr(err, "user", req.Email)
	}
	if err := user.CheckPassword(req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.store.Users().Update(ctx, user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *models.UserProfile) (*AuthResponse, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

func (s *AuthService) Me(ctx context.Context, caller models.Caller) (*models.UserProfile, error) {
	if caller.UID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.store.Users().FindByID(ctx, caller.UID)
	if err != nil {
		return nil, storeErr(err, "user", caller.UID)
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, caller models.Caller, userID uuid.UUID, update *ProfileUpdate) (*models.UserProfile, error) {
	if err := requireSelf(caller, userID); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(update); err != nil {
		return nil, invalidErr(err)
	}

	var updated *models.UserProfile
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return storeErr(err, "user", userID)
		}

		if update.DisplayName != nil {
			user.DisplayName = *update.DisplayName
		}
		if update.PhotoURL != nil {
			user.PhotoURL = *update.PhotoURL
		}
		if update.FirstName != nil {
			user.FirstName = *update.FirstName
		}
		if update.LastName != nil {
			user.LastName = *update.LastName
		}
		if update.Phone != nil {
			user.Phone = *update.Phone
		}
		if update.Addresses != nil {
			user.Addresses = *update.Addresses
		}
		if update.Preferences != nil {
			user.Preferences = *update.Preferences
		}
		user.UpdatedAt = s.now()

		if err := tx.Users().Update(ctx, user); err != nil {
			return storeErr(err, "user", userID)
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, caller models.Caller, req *ChangePasswordRequest) error {
	if caller.UID == uuid.Nil {
		return ErrUnauthenticated
	}
	if err := utils.ValidateStruct(req); err != nil {
		return invalidErr(err)
	}

	return atomically(ctx, s.store, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, caller.UID)
		if err != nil {
			return storeErr(err, "user", caller.UID)
		}
		if err := user.CheckPassword(req.CurrentPassword); err != nil {
			return ErrInvalidCredentials
		}
		if err := user.SetPassword(req.NewPassword); err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.UpdatedAt = s.now()
		return storeErr(tx.Users().Update(ctx, user), "user", caller.UID)
	})
}

// SetAdminClaim grants or revokes the admin claim. It takes effect on the
// user's next login, when a new token is issued.
func (s *AuthService) SetAdminClaim(ctx context.Context, caller models.Caller, userID uuid.UUID, isAdmin bool) (*models.UserProfile, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if caller.UID == userID && !isAdmin {
		return nil, invalid("admins cannot revoke their own admin claim")
	}

	var updated *models.UserProfile
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return storeErr(err, "user", userID)
		}
		user.IsAdmin = isAdmin
		user.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, user); err != nil {
			return storeErr(err, "user", userID)
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"is_admin":   isAdmin,
		"changed_by": caller.UID,
	}).Info("Admin claim updated")
	return updated, nil
}

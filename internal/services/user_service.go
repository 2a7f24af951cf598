// internal/services/user_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

type UserService struct {
	db *gorm.DB
}

type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Name     string          `json:"name" validate:"required,min=1,max=100"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Role     models.UserRole `json:"role" validate:"required,oneof=admin staff"`
}

type UpdateUserStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type UserSearchParams struct {
	utils.PaginationParams
	Role   models.UserRole `json:"role,omitempty"`
	Active *bool           `json:"active,omitempty"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user := &models.User{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Name:     strings.TrimSpace(req.Name),
		Role:     req.Role,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", translate(err))
	}
	return user, nil
}

// SetActive enables or disables a login. An administrator cannot disable their own account.
func (s *UserService) SetActive(ctx context.Context, actorID, userID uint, active bool) (*models.User, error) {
	if actorID == userID && !active {
		return nil, fmt.Errorf("cannot deactivate own account: %w", ErrForbidden)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, translate(err))
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	user.IsActive = active
	return &user, nil
}

func (s *UserService) ListUsers(ctx context.Context, params UserSearchParams) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", pattern, pattern)
	}
	if params.Role != "" {
		query = query.Where("role = ?", params.Role)
	}
	if params.Active != nil {
		query = query.Where("is_active = ?", *params.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "email", "name", "last_login_at"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, total, nil
}

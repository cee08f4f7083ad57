package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"occupancy-backend/models"
)

type RoleService struct {
	DB *gorm.DB
}

func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{DB: db}
}

func (s *RoleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles := []models.Role{}
	if err := s.DB.WithContext(ctx).Preload("Permissions").Order("name ASC").Find(&roles).Error; err != nil {
		return nil, classifyDBError(err, "list roles")
	}
	return roles, nil
}

// HasPermission reports whether the role (matched case-insensitively) was
// granted perm. Unknown roles have no permissions.
func (s *RoleService) HasPermission(ctx context.Context, roleName, perm string) (bool, error) {
	roleName = strings.ToLower(strings.TrimSpace(roleName))
	if roleName == "" {
		return false, nil
	}

	var role models.Role
	err := s.DB.WithContext(ctx).Where("LOWER(name) = ?", roleName).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, classifyDBError(err, "role "+roleName)
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.RolePermission{}).
		Where("role_id = ? AND permission = ?", role.ID, perm).
		Count(&count).Error; err != nil {
		return false, classifyDBError(err, "permissions of role "+roleName)
	}
	return count > 0, nil
}

package rbac

import "gorm.io/gorm"

//go:generate mockgen -source=rbac_repo.go -destination=mock/rbac_repo_mock.go -package=mock
type Repository interface {
	GetRolePermissions() ([]RolePermissionRow, error)
	SeedRolePermissions(rows []RolePermissionRow) error
}

type RolePermissionRow struct {
	Role     string `gorm:"primaryKey"`
	Resource string `gorm:"primaryKey"`
	Action   string `gorm:"primaryKey"`
}

func (RolePermissionRow) TableName() string {
	return "role_permissions"
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetRolePermissions() ([]RolePermissionRow, error) {
	var result []RolePermissionRow
	err := r.db.Find(&result).Error
	return result, err
}

// SeedRolePermissions fills the table only when it is empty, so operator
// customizations survive restarts.
func (r *repository) SeedRolePermissions(rows []RolePermissionRow) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&RolePermissionRow{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

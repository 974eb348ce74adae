package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/paystub/internal/auth/domain"
	"github.com/smallbiznis/paystub/internal/auth/password"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultUserDisplay = "Payroll Admin"

// EnsureDefaultUser creates the bootstrap operator when the users table is
// empty. Existing installations are left untouched.
func EnsureDefaultUser(ctx context.Context, db *gorm.DB, node *snowflake.Node, log *zap.Logger, email, pass string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("seed user email is required")
	}
	if err := password.Validate(pass); err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&authdomain.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hashed, err := password.Hash(pass)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		user := authdomain.User{
			ID:           node.Generate(),
			Email:        email,
			DisplayName:  defaultUserDisplay,
			PasswordHash: &hashed,
			IsDefault:    true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		if log != nil {
			log.Info("default user seeded", zap.String("email", email))
		}
		return nil
	})
}

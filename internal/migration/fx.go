package migration

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paystub/internal/config"
	"github.com/smallbiznis/paystub/internal/seed"
	"github.com/smallbiznis/paystub/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		log = log.Named("migration")

		if strings.EqualFold(strings.TrimSpace(cfg.DBType), db.TypePostgres) {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}
		log.Info("schema ready", zap.String("dialect", cfg.DBType))

		if !cfg.Bootstrap.EnsureDefaultUser {
			return nil
		}
		return seed.EnsureDefaultUser(
			context.Background(),
			conn,
			node,
			log,
			cfg.Bootstrap.DefaultUserEmail,
			cfg.Bootstrap.DefaultUserPass,
		)
	}),
)

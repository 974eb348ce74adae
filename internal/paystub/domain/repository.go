package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, paystub *Paystub) error
	FindByID(ctx context.Context, db *gorm.DB, clientID, id snowflake.ID) (*Paystub, error)
	ListByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) ([]*Paystub, error)
	Latest(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (*Paystub, error)
	Delete(ctx context.Context, db *gorm.DB, clientID, id snowflake.ID) (int64, error)
}

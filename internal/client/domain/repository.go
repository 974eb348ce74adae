package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// YTDUpdate moves a client to new cumulative totals. ExpectedVersion, when
// set, makes the update conditional on the stored version.
type YTDUpdate struct {
	ClientID        snowflake.ID
	YTD             YTD
	ExpectedVersion *int64
	UpdatedAt       time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Client, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*Client, error)
	Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error)
	UpdateYTD(ctx context.Context, db *gorm.DB, update YTDUpdate) (int64, error)
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paystub/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const clientColumns = `id, user_id, name, company, region, hourly_rate, ytd_regular, ytd_overtime,
	total_taxes_ytd, baseline_ytd_regular, baseline_ytd_overtime, version, created_at, last_updated`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (`+clientColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.UserID,
		client.Name,
		client.Company,
		client.Region,
		client.HourlyRate,
		client.YTDRegular,
		client.YTDOvertime,
		client.TotalTaxesYTD,
		client.BaselineYTDRegular,
		client.BaselineYTDOvertime,
		client.Version,
		client.CreatedAt,
		client.LastUpdated,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT `+clientColumns+`
		 FROM clients WHERE user_id = ? AND id = ?`,
		userID,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*domain.Client, error) {
	var clients []*domain.Client
	err := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("user_id = ?", userID).
		Order("name asc, id asc").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

// Delete removes the client and every paystub recorded for it. Callers pass a
// transaction so both statements commit together.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error) {
	err := db.WithContext(ctx).Exec(
		`DELETE FROM paystubs WHERE client_id IN (SELECT id FROM clients WHERE user_id = ? AND id = ?)`,
		userID,
		id,
	).Error
	if err != nil {
		return 0, err
	}

	res := db.WithContext(ctx).Exec(
		`DELETE FROM clients WHERE user_id = ? AND id = ?`,
		userID,
		id,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) UpdateYTD(ctx context.Context, db *gorm.DB, update domain.YTDUpdate) (int64, error) {
	query := `UPDATE clients
		 SET ytd_regular = ?, ytd_overtime = ?, total_taxes_ytd = ?, version = version + 1, last_updated = ?
		 WHERE id = ?`
	args := []any{
		update.YTD.Regular,
		update.YTD.Overtime,
		update.YTD.TotalTaxes,
		update.UpdatedAt,
		update.ClientID,
	}
	if update.ExpectedVersion != nil {
		query += ` AND version = ?`
		args = append(args, *update.ExpectedVersion)
	}

	res := db.WithContext(ctx).Exec(query, args...)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
